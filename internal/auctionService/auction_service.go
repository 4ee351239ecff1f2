package auction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vehicle-auction/internal/auctionerrors"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/events"
	"vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"
	"vehicle-auction/utils"
)

const minVehicleYear = 1886

// CreateAuctionInput is what a seller supplies to list a vehicle
type CreateAuctionInput struct {
	Title         string
	Make          string
	Model         string
	Year          int
	BodyType      string
	Description   string
	StartingPrice decimal.Decimal
	ReservePrice  *decimal.Decimal
	EndTime       time.Time
}

// AuctionView is an auction with its state derived at read time
type AuctionView struct {
	models.Auction
	Status     models.Status `json:"status"`
	ReserveMet bool          `json:"reserve_met"`
	BidCount   *int          `json:"bid_count,omitempty"`
}

// AuctionStatus answers whether an auction is taking bids right now
type AuctionStatus struct {
	AuctionID     string        `json:"auction_id"`
	Status        models.Status `json:"status"`
	IsActive      bool          `json:"is_active"`
	IsEnded       bool          `json:"is_ended"`
	IsPaused      bool          `json:"is_paused"`
	IsClosed      bool          `json:"is_closed"`
	IsSold        bool          `json:"is_sold"`
	EndTime       time.Time     `json:"end_time"`
	TimeRemaining int64         `json:"time_remaining_seconds"`
}

// AuctionService manages the vehicle listing catalog
type AuctionService struct {
	repo      repository.AuctionDB
	clock     clock.Clock
	publisher events.Publisher
}

// NewAuctionService creates a new AuctionService instance
func NewAuctionService(repo repository.AuctionDB, clk clock.Clock, publisher events.Publisher) *AuctionService {
	if clk == nil {
		clk = clock.Real{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &AuctionService{repo: repo, clock: clk, publisher: publisher}
}

// CreateAuction lists a vehicle. Only sellers and administrators may list.
func (s *AuctionService) CreateAuction(ctx context.Context, actor models.Actor, in CreateAuctionInput) (models.Auction, error) {
	if actor.UserID == "" {
		return models.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrUnauthenticated)
	}
	if actor.Role != models.RoleSeller && !actor.IsAdmin() {
		return models.Auction{}, fmt.Errorf("service: %w - only sellers may list vehicles", auctionerrors.ErrForbidden)
	}

	now := s.clock.Now()
	if err := validateCreate(in, now); err != nil {
		return models.Auction{}, err
	}

	a := models.Auction{
		AuctionID:     utils.GenerateID(),
		SellerID:      actor.UserID,
		Title:         strings.TrimSpace(in.Title),
		Make:          strings.TrimSpace(in.Make),
		Model:         strings.TrimSpace(in.Model),
		Year:          in.Year,
		BodyType:      strings.TrimSpace(in.BodyType),
		Description:   in.Description,
		StartingPrice: in.StartingPrice,
		CurrentPrice:  in.StartingPrice,
		ReservePrice:  in.ReservePrice,
		EndTime:       in.EndTime.UTC(),
		CreatedAt:     now,
	}
	if err := s.repo.CreateAuction(ctx, a); err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("Auction created", map[string]any{
		"auction_id": a.AuctionID,
		"seller_id":  a.SellerID,
		"end_time":   a.EndTime,
	})
	s.publish(ctx, events.Event{
		Type:       events.TypeAuctionUpdated,
		AuctionID:  a.AuctionID,
		ActorID:    actor.UserID,
		Amount:     events.Ptr(a.StartingPrice),
		EndTime:    events.Ptr(a.EndTime),
		Reason:     "created",
		OccurredAt: now,
	})
	return a, nil
}

func validateCreate(in CreateAuctionInput, now time.Time) error {
	if !in.EndTime.After(now) {
		return fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidInput)
	}
	return validateListing(in.Title, in.Year, in.StartingPrice, in.ReservePrice, now)
}

func validateListing(title string, year int, startingPrice decimal.Decimal, reservePrice *decimal.Decimal, now time.Time) error {
	switch {
	case strings.TrimSpace(title) == "":
		return fmt.Errorf("service: %w - title is required", auctionerrors.ErrInvalidInput)
	case !startingPrice.IsPositive():
		return fmt.Errorf("service: %w - starting price must be positive", auctionerrors.ErrInvalidInput)
	case !models.ValidMoney(startingPrice):
		return fmt.Errorf("service: %w - starting price must be whole cents within range", auctionerrors.ErrInvalidInput)
	case reservePrice != nil && !models.ValidMoney(*reservePrice):
		return fmt.Errorf("service: %w - reserve price must be whole cents within range", auctionerrors.ErrInvalidInput)
	case reservePrice != nil && reservePrice.LessThan(startingPrice):
		return fmt.Errorf("service: %w - reserve price below starting price", auctionerrors.ErrInvalidInput)
	case year != 0 && (year < minVehicleYear || year > now.Year()+1):
		return fmt.Errorf("service: %w - implausible model year %d", auctionerrors.ErrInvalidInput, year)
	}
	return nil
}

// UpdateAuctionInput holds the listing fields to change. Nil fields are left as they are.
type UpdateAuctionInput struct {
	Title         *string
	Make          *string
	Model         *string
	Year          *int
	BodyType      *string
	Description   *string
	StartingPrice *decimal.Decimal
	ReservePrice  *decimal.Decimal
}

func (in UpdateAuctionInput) empty() bool {
	return in.Title == nil && in.Make == nil && in.Model == nil && in.Year == nil &&
		in.BodyType == nil && in.Description == nil && in.StartingPrice == nil && in.ReservePrice == nil
}

func (in UpdateAuctionInput) apply(a models.Auction) models.Auction {
	if in.Title != nil {
		a.Title = strings.TrimSpace(*in.Title)
	}
	if in.Make != nil {
		a.Make = strings.TrimSpace(*in.Make)
	}
	if in.Model != nil {
		a.Model = strings.TrimSpace(*in.Model)
	}
	if in.Year != nil {
		a.Year = *in.Year
	}
	if in.BodyType != nil {
		a.BodyType = strings.TrimSpace(*in.BodyType)
	}
	if in.Description != nil {
		a.Description = *in.Description
	}
	if in.StartingPrice != nil && !in.StartingPrice.Equal(a.StartingPrice) {
		a.StartingPrice = *in.StartingPrice
		a.CurrentPrice = *in.StartingPrice
	}
	if in.ReservePrice != nil {
		reserve := *in.ReservePrice
		a.ReservePrice = &reserve
	}
	return a
}

// UpdateAuction edits the listing of an auction that is not yet closed. The
// starting price is fixed once the first bid lands; the deadline moves only
// through the lifecycle extension.
func (s *AuctionService) UpdateAuction(ctx context.Context, actor models.Actor, auctionID string, in UpdateAuctionInput) (models.Auction, error) {
	if actor.UserID == "" {
		return models.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrUnauthenticated)
	}
	if auctionID == "" || in.empty() {
		return models.Auction{}, fmt.Errorf("service: %w - nothing to update", auctionerrors.ErrInvalidInput)
	}

	now := s.clock.Now()
	var updated models.Auction
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		a, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if !actor.CanManage(a) {
			return fmt.Errorf("%w - only the seller or an administrator may edit auction %s", auctionerrors.ErrForbidden, auctionID)
		}
		if a.IsClosed || a.IsSold {
			return fmt.Errorf("%w - cannot edit a closed auction", auctionerrors.ErrInvalidState)
		}
		if in.StartingPrice != nil && !in.StartingPrice.Equal(a.StartingPrice) {
			_, err := tx.LeadingBid(ctx, auctionID)
			switch {
			case err == nil:
				return fmt.Errorf("%w - starting price is fixed once bidding has started", auctionerrors.ErrInvalidState)
			case !errors.Is(err, auctionerrors.ErrNoBids):
				return err
			}
		}

		next := in.apply(a)
		if err := validateListing(next.Title, next.Year, next.StartingPrice, next.ReservePrice, now); err != nil {
			return err
		}
		updated = next
		return tx.SaveListing(ctx, next)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
	}

	utils.Info("Auction listing updated", map[string]any{
		"auction_id": auctionID,
		"actor_id":   actor.UserID,
	})
	s.publish(ctx, events.Event{
		Type:       events.TypeAuctionUpdated,
		AuctionID:  auctionID,
		ActorID:    actor.UserID,
		Amount:     events.Ptr(updated.CurrentPrice),
		Reason:     "listing_updated",
		OccurredAt: now,
	})
	return updated, nil
}

// GetAuction returns one auction with its derived status and bid count
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (AuctionView, error) {
	a, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return AuctionView{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	count, err := s.repo.CountBids(ctx, auctionID)
	if err != nil {
		return AuctionView{}, fmt.Errorf("service: failed to count bids for auction %s: %w", auctionID, err)
	}

	view := s.view(a)
	view.BidCount = &count
	return view, nil
}

// ListAuctions returns auctions matching the filter, newest first
func (s *AuctionService) ListAuctions(ctx context.Context, filter models.AuctionFilter) ([]AuctionView, error) {
	filter.Now = s.clock.Now()
	auctions, err := s.repo.ListAuctions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}

	views := make([]AuctionView, 0, len(auctions))
	for _, a := range auctions {
		views = append(views, s.viewAt(a, filter.Now))
	}
	return views, nil
}

// GetAuctionStatus reports the derived state of an auction
func (s *AuctionService) GetAuctionStatus(ctx context.Context, auctionID string) (AuctionStatus, error) {
	a, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return AuctionStatus{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	now := s.clock.Now()
	status := models.DeriveStatus(a, now)
	remaining := a.EndTime.Sub(now)
	if remaining < 0 || a.IsClosed {
		remaining = 0
	}
	return AuctionStatus{
		AuctionID:     a.AuctionID,
		Status:        status,
		IsActive:      status == models.StatusOpen,
		IsEnded:       models.HasEnded(a, now),
		IsPaused:      a.IsPaused,
		IsClosed:      a.IsClosed,
		IsSold:        a.IsSold,
		EndTime:       a.EndTime,
		TimeRemaining: int64(remaining / time.Second),
	}, nil
}

// GetWinner returns the winner record of a sold auction
func (s *AuctionService) GetWinner(ctx context.Context, auctionID string) (models.Winner, error) {
	if _, err := s.repo.GetAuction(ctx, auctionID); err != nil {
		return models.Winner{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	w, err := s.repo.GetWinner(ctx, auctionID)
	if err != nil {
		return models.Winner{}, fmt.Errorf("service: failed to get winner for auction %s: %w", auctionID, err)
	}
	return w, nil
}

// DeleteAuction removes an auction with its bids, winner and watchlist entries
func (s *AuctionService) DeleteAuction(ctx context.Context, actor models.Actor, auctionID string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("service: %w - only administrators may delete auctions", auctionerrors.ErrForbidden)
	}
	if err := s.repo.DeleteAuction(ctx, auctionID); err != nil {
		return fmt.Errorf("service: failed to delete auction %s: %w", auctionID, err)
	}

	utils.Info("Auction deleted", map[string]any{"auction_id": auctionID, "admin_id": actor.UserID})
	s.publish(ctx, events.Event{
		Type:       events.TypeAuctionUpdated,
		AuctionID:  auctionID,
		ActorID:    actor.UserID,
		Reason:     "deleted",
		OccurredAt: s.clock.Now(),
	})
	return nil
}

// Ping checks the backing store
func (s *AuctionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *AuctionService) view(a models.Auction) AuctionView {
	return s.viewAt(a, s.clock.Now())
}

func (s *AuctionService) viewAt(a models.Auction, now time.Time) AuctionView {
	return AuctionView{
		Auction:    a,
		Status:     models.DeriveStatus(a, now),
		ReserveMet: a.ReserveMet(),
	}
}

func (s *AuctionService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		utils.Warn("Event not published", map[string]any{
			"type":       event.Type,
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
	}
}
