package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"vehicle-auction/internal/auctionerrors"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/events"
	"vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"
	"vehicle-auction/utils"
)

// Options tunes the bid acceptance policy
type Options struct {
	// AntiSnipeWindow > 0 enables extension of endTime for bids landing this close to the deadline.
	AntiSnipeWindow    time.Duration
	AntiSnipeExtension time.Duration
	SellerCanBid       bool
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo      repository.AuctionDB
	clock     clock.Clock
	publisher events.Publisher
	opts      Options
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, clk clock.Clock, publisher events.Publisher, opts Options) *BiddingService {
	if clk == nil {
		clk = clock.Real{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &BiddingService{
		repo:      repo,
		clock:     clk,
		publisher: publisher,
		opts:      opts,
	}
}

// PlaceBid validates and records a bid. The bid insert and the price update
// commit together; the auction row is held for the whole check-then-write.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (models.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - missing auctionID or bidderID", auctionerrors.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return models.Bid{}, fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidInput)
	}
	if !models.ValidMoney(amount) {
		return models.Bid{}, fmt.Errorf("service: %w - bid amount %s must be whole cents within range", auctionerrors.ErrInvalidInput, amount.String())
	}

	var (
		bid      models.Bid
		extended bool
		endTime  time.Time
	)
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		auction, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.validateBid(auction, bidderID, amount, now); err != nil {
			return err
		}

		bid = models.Bid{
			BidID:     utils.GenerateID(),
			AuctionID: auctionID,
			BidderID:  bidderID,
			Amount:    amount,
			PlacedAt:  now,
		}
		if err := tx.InsertBid(ctx, bid); err != nil {
			return err
		}

		auction.CurrentPrice = amount
		if s.opts.AntiSnipeWindow > 0 && auction.EndTime.Sub(now) <= s.opts.AntiSnipeWindow {
			if pushed := now.Add(s.opts.AntiSnipeExtension); pushed.After(auction.EndTime) {
				auction.EndTime = pushed
				extended = true
			}
		}
		endTime = auction.EndTime
		return tx.SaveAuctionState(ctx, auction)
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to place bid on auction %s by user %s: %w", auctionID, bidderID, err)
	}

	fields := map[string]any{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"bid_id":     bid.BidID,
		"amount":     amount.String(),
	}
	if extended {
		fields["end_time"] = endTime
	}
	utils.Info("Bid accepted", fields)

	event := events.Event{
		Type:       events.TypeBidPlaced,
		AuctionID:  auctionID,
		ActorID:    bidderID,
		BidID:      bid.BidID,
		Amount:     events.Ptr(amount),
		OccurredAt: bid.PlacedAt,
	}
	if extended {
		event.EndTime = events.Ptr(endTime)
	}
	s.publish(ctx, event)

	return bid, nil
}

// validateBid applies the acceptance rules in order; the first failure wins
func (s *BiddingService) validateBid(auction models.Auction, bidderID string, amount decimal.Decimal, now time.Time) error {
	if models.HasEnded(auction, now) {
		return fmt.Errorf("service: %w - auction %s", auctionerrors.ErrAuctionEnded, auction.AuctionID)
	}
	if auction.IsPaused {
		return fmt.Errorf("service: %w - auction %s", auctionerrors.ErrAuctionPaused, auction.AuctionID)
	}
	if !amount.GreaterThan(auction.CurrentPrice) {
		return fmt.Errorf("service: %w", &auctionerrors.BidTooLowError{CurrentPrice: auction.CurrentPrice})
	}
	if !s.opts.SellerCanBid && bidderID == auction.SellerID {
		return fmt.Errorf("service: %w - auction %s", auctionerrors.ErrSellerCannotBid, auction.AuctionID)
	}
	return nil
}

// GetBidsForAuction returns all bids for an auction, newest first
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetLeadingBid returns the highest bid for an auction, earliest first on ties
func (s *BiddingService) GetLeadingBid(ctx context.Context, auctionID string) (models.Bid, error) {
	if auctionID == "" {
		return models.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidInput)
	}

	var leading models.Bid
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		if _, err := tx.LockAuction(ctx, auctionID); err != nil {
			return err
		}
		var err error
		leading, err = tx.LeadingBid(ctx, auctionID)
		return err
	})
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to get leading bid for auction %s: %w", auctionID, err)
	}

	return leading, nil
}

// GetAuctionsByBidder returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByBidder(ctx context.Context, userID string) ([]models.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidInput)
	}

	auctions, err := s.repo.GetAuctionsByBidder(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}

	return auctions, nil
}

// ListBids returns bids across auctions for administrators
func (s *BiddingService) ListBids(ctx context.Context, actor models.Actor, filter models.BidFilter) ([]models.Bid, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("service: %w - only administrators may list all bids", auctionerrors.ErrForbidden)
	}

	bids, err := s.repo.ListBids(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list bids: %w", err)
	}

	return bids, nil
}

// DeleteBid removes a bid by administrative override and re-derives the
// auction's current price from the remaining bids in the same transaction
func (s *BiddingService) DeleteBid(ctx context.Context, actor models.Actor, bidID string) (models.Auction, error) {
	if !actor.IsAdmin() {
		return models.Auction{}, fmt.Errorf("service: %w - only administrators may delete bids", auctionerrors.ErrForbidden)
	}
	if bidID == "" {
		return models.Auction{}, fmt.Errorf("service: %w - empty bid ID", auctionerrors.ErrInvalidInput)
	}

	var auction models.Auction
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		bid, err := tx.GetBid(ctx, bidID)
		if err != nil {
			return err
		}
		auction, err = tx.LockAuction(ctx, bid.AuctionID)
		if err != nil {
			return err
		}
		if auction.IsClosed {
			return fmt.Errorf("%w - auction %s is closed", auctionerrors.ErrInvalidState, auction.AuctionID)
		}
		if err := tx.DeleteBid(ctx, bidID); err != nil {
			return err
		}

		leading, err := tx.LeadingBid(ctx, auction.AuctionID)
		switch {
		case err == nil:
			auction.CurrentPrice = leading.Amount
		case errors.Is(err, auctionerrors.ErrNoBids):
			auction.CurrentPrice = auction.StartingPrice
		default:
			return err
		}
		return tx.SaveAuctionState(ctx, auction)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to delete bid %s: %w", bidID, err)
	}

	utils.Info("Bid deleted", map[string]any{
		"bid_id":        bidID,
		"auction_id":    auction.AuctionID,
		"admin_id":      actor.UserID,
		"current_price": auction.CurrentPrice.String(),
	})
	s.publish(ctx, events.Event{
		Type:       events.TypeAuctionUpdated,
		AuctionID:  auction.AuctionID,
		ActorID:    actor.UserID,
		BidID:      bidID,
		Amount:     events.Ptr(auction.CurrentPrice),
		Reason:     "bid_deleted",
		OccurredAt: s.clock.Now(),
	})

	return auction, nil
}

func (s *BiddingService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		utils.Warn("Event not published", map[string]any{
			"type":       event.Type,
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
	}
}
