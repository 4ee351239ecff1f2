package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle-auction/internal/auctionerrors"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/events"
	"vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"
	"vehicle-auction/utils"
)

const (
	DefaultExtendMinutes = 5
	MaxExtendMinutes     = 24 * 60
)

// Options tunes lifecycle rules
type Options struct {
	DefaultExtendMinutes int
	MaxExtendMinutes     int
	// EnforceReserve closes an auction unsold when its leading bid is below the reserve.
	EnforceReserve bool
}

// LifecycleService drives auctions through pause, extension and close
type LifecycleService struct {
	repo      repository.AuctionDB
	clock     clock.Clock
	publisher events.Publisher
	opts      Options
}

// NewLifecycleService creates a new LifecycleService instance
func NewLifecycleService(repo repository.AuctionDB, clk clock.Clock, publisher events.Publisher, opts Options) *LifecycleService {
	if clk == nil {
		clk = clock.Real{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if opts.DefaultExtendMinutes <= 0 {
		opts.DefaultExtendMinutes = DefaultExtendMinutes
	}
	if opts.MaxExtendMinutes <= 0 {
		opts.MaxExtendMinutes = MaxExtendMinutes
	}
	return &LifecycleService{
		repo:      repo,
		clock:     clk,
		publisher: publisher,
		opts:      opts,
	}
}

// Pause suspends bidding. Pausing a paused auction changes nothing.
func (s *LifecycleService) Pause(ctx context.Context, actor models.Actor, auctionID string) (models.Auction, error) {
	return s.setPaused(ctx, actor, auctionID, func(bool) bool { return true })
}

// Resume re-opens bidding on a paused auction
func (s *LifecycleService) Resume(ctx context.Context, actor models.Actor, auctionID string) (models.Auction, error) {
	return s.setPaused(ctx, actor, auctionID, func(bool) bool { return false })
}

// TogglePause flips the paused flag
func (s *LifecycleService) TogglePause(ctx context.Context, actor models.Actor, auctionID string) (models.Auction, error) {
	return s.setPaused(ctx, actor, auctionID, func(paused bool) bool { return !paused })
}

func (s *LifecycleService) setPaused(ctx context.Context, actor models.Actor, auctionID string, next func(bool) bool) (models.Auction, error) {
	var (
		auction models.Auction
		changed bool
	)
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		var err error
		auction, err = s.lockManaged(ctx, tx, actor, auctionID)
		if err != nil {
			return err
		}
		if auction.IsClosed || auction.IsSold {
			return fmt.Errorf("%w - cannot pause or resume a closed auction", auctionerrors.ErrInvalidState)
		}

		paused := next(auction.IsPaused)
		if paused == auction.IsPaused {
			return nil
		}
		auction.IsPaused = paused
		changed = true
		return tx.SaveAuctionState(ctx, auction)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to update pause state of auction %s: %w", auctionID, err)
	}

	if changed {
		utils.Info("Auction pause state changed", map[string]any{
			"auction_id": auctionID,
			"actor_id":   actor.UserID,
			"is_paused":  auction.IsPaused,
		})
		s.publish(ctx, events.Event{
			Type:       events.TypeAuctionUpdated,
			AuctionID:  auctionID,
			ActorID:    actor.UserID,
			IsPaused:   events.Ptr(auction.IsPaused),
			Reason:     pauseReason(auction.IsPaused),
			OccurredAt: s.clock.Now(),
		})
	}
	return auction, nil
}

// Extend pushes the deadline back. A nil minutes uses the configured default.
func (s *LifecycleService) Extend(ctx context.Context, actor models.Actor, auctionID string, minutes *int) (models.Auction, error) {
	extendBy := s.opts.DefaultExtendMinutes
	if minutes != nil {
		extendBy = *minutes
	}
	if extendBy < 1 || extendBy > s.opts.MaxExtendMinutes {
		return models.Auction{}, fmt.Errorf("service: %w - extension must be between 1 and %d minutes", auctionerrors.ErrInvalidInput, s.opts.MaxExtendMinutes)
	}

	var auction models.Auction
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		var err error
		auction, err = s.lockManaged(ctx, tx, actor, auctionID)
		if err != nil {
			return err
		}
		if auction.IsClosed || auction.IsSold {
			return fmt.Errorf("%w - cannot extend a closed auction", auctionerrors.ErrInvalidState)
		}
		auction.EndTime = auction.EndTime.Add(time.Duration(extendBy) * time.Minute)
		return tx.SaveAuctionState(ctx, auction)
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to extend auction %s: %w", auctionID, err)
	}

	utils.Info("Auction extended", map[string]any{
		"auction_id": auctionID,
		"actor_id":   actor.UserID,
		"minutes":    extendBy,
		"end_time":   auction.EndTime,
	})
	s.publish(ctx, events.Event{
		Type:       events.TypeAuctionUpdated,
		AuctionID:  auctionID,
		ActorID:    actor.UserID,
		EndTime:    events.Ptr(auction.EndTime),
		Reason:     "extended",
		OccurredAt: s.clock.Now(),
	})
	return auction, nil
}

// CloseEnded closes every unclosed auction whose deadline has passed, paused
// ones included, recording a winner where a leading bid exists. Each auction
// closes in its own transaction; failures are logged and joined and the sweep
// carries on. Already closed auctions are skipped, so reruns are no-ops.
func (s *LifecycleService) CloseEnded(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.repo.ListDueAuctionIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("service: failed to list ended auctions: %w", err)
	}

	var (
		closed int
		errs   []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		auction, winner, ok, err := s.closeDue(ctx, id, now)
		if err != nil {
			utils.Error("Failed to close ended auction", map[string]any{"auction_id": id, "error": err.Error()})
			errs = append(errs, fmt.Errorf("auction %s: %w", id, err))
			continue
		}
		if ok {
			closed++
			s.closedEvent(ctx, "", auction, winner, "ended")
		}
	}

	if closed > 0 || len(errs) > 0 {
		utils.Info("Sweep finished", map[string]any{"closed": closed, "failed": len(errs)})
	}
	if len(errs) > 0 {
		return closed, fmt.Errorf("service: sweep incomplete: %w", errors.Join(errs...))
	}
	return closed, nil
}

// closeDue re-checks the auction under lock before closing it
func (s *LifecycleService) closeDue(ctx context.Context, auctionID string, now time.Time) (models.Auction, *models.Winner, bool, error) {
	var (
		auction models.Auction
		winner  *models.Winner
		closed  bool
	)
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		var err error
		auction, err = tx.LockAuction(ctx, auctionID)
		if errors.Is(err, auctionerrors.ErrAuctionNotFound) {
			// deleted since it was listed
			return nil
		}
		if err != nil {
			return err
		}
		if auction.IsClosed || now.Before(auction.EndTime) {
			return nil
		}
		auction, winner, err = s.finalize(ctx, tx, auction, true, now)
		if err != nil {
			return err
		}
		closed = true
		return nil
	})
	return auction, winner, closed, err
}

// CloseNow closes one auction on the seller's or an administrator's request.
// With markAsSold the leading bid, if any, becomes the winner. Re-closing a
// closed auction only completes a requested sale that has not happened yet.
func (s *LifecycleService) CloseNow(ctx context.Context, actor models.Actor, auctionID string, markAsSold bool) (models.Auction, error) {
	var (
		auction models.Auction
		winner  *models.Winner
		changed bool
	)
	err := s.repo.WithTx(ctx, func(tx repository.AuctionTx) error {
		var err error
		auction, err = s.lockManaged(ctx, tx, actor, auctionID)
		if err != nil {
			return err
		}
		if auction.IsClosed && (auction.IsSold || !markAsSold) {
			return nil
		}
		auction, winner, err = s.finalize(ctx, tx, auction, markAsSold, s.clock.Now())
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return models.Auction{}, fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
	}

	if changed {
		s.closedEvent(ctx, actor.UserID, auction, winner, "closed_by_request")
	}
	return auction, nil
}

// finalize marks the auction closed and, when selling, records the winner once
func (s *LifecycleService) finalize(ctx context.Context, tx repository.AuctionTx, auction models.Auction, markAsSold bool, now time.Time) (models.Auction, *models.Winner, error) {
	auction.IsClosed = true
	if !markAsSold {
		return auction, nil, tx.SaveAuctionState(ctx, auction)
	}

	leading, err := tx.LeadingBid(ctx, auction.AuctionID)
	if errors.Is(err, auctionerrors.ErrNoBids) {
		return auction, nil, tx.SaveAuctionState(ctx, auction)
	}
	if err != nil {
		return auction, nil, err
	}
	if s.opts.EnforceReserve && auction.ReservePrice != nil && leading.Amount.LessThan(*auction.ReservePrice) {
		utils.Info("Reserve not met, closing unsold", map[string]any{
			"auction_id": auction.AuctionID,
			"leading":    leading.Amount.String(),
			"reserve":    auction.ReservePrice.String(),
		})
		return auction, nil, tx.SaveAuctionState(ctx, auction)
	}

	winner, err := tx.GetWinner(ctx, auction.AuctionID)
	switch {
	case errors.Is(err, auctionerrors.ErrWinnerNotFound):
		winner = models.Winner{
			WinnerID:   utils.GenerateID(),
			AuctionID:  auction.AuctionID,
			UserID:     leading.BidderID,
			FinalPrice: leading.Amount,
			CreatedAt:  now,
		}
		if err := tx.InsertWinner(ctx, winner); err != nil {
			return auction, nil, err
		}
	case err != nil:
		return auction, nil, err
	}

	auction.IsSold = true
	auction.SoldToUserID = &winner.UserID
	return auction, &winner, tx.SaveAuctionState(ctx, auction)
}

// lockManaged loads the auction under lock and checks the actor may manage it
func (s *LifecycleService) lockManaged(ctx context.Context, tx repository.AuctionTx, actor models.Actor, auctionID string) (models.Auction, error) {
	if auctionID == "" {
		return models.Auction{}, fmt.Errorf("%w - empty auction ID", auctionerrors.ErrInvalidInput)
	}
	auction, err := tx.LockAuction(ctx, auctionID)
	if err != nil {
		return models.Auction{}, err
	}
	if !actor.CanManage(auction) {
		return models.Auction{}, fmt.Errorf("%w - only the seller or an administrator may manage auction %s", auctionerrors.ErrForbidden, auctionID)
	}
	return auction, nil
}

func (s *LifecycleService) closedEvent(ctx context.Context, actorID string, auction models.Auction, winner *models.Winner, reason string) {
	fields := map[string]any{
		"auction_id": auction.AuctionID,
		"is_sold":    auction.IsSold,
		"reason":     reason,
	}
	event := events.Event{
		Type:       events.TypeAuctionClosed,
		AuctionID:  auction.AuctionID,
		ActorID:    actorID,
		IsSold:     events.Ptr(auction.IsSold),
		Reason:     reason,
		OccurredAt: s.clock.Now(),
	}
	if winner != nil {
		fields["winner_id"] = winner.UserID
		fields["final_price"] = winner.FinalPrice.String()
		event.WinnerID = winner.UserID
		event.Amount = events.Ptr(winner.FinalPrice)
	}
	utils.Info("Auction closed", fields)
	s.publish(ctx, event)
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		utils.Warn("Event not published", map[string]any{
			"type":       event.Type,
			"auction_id": event.AuctionID,
			"error":      err.Error(),
		})
	}
}

func pauseReason(paused bool) string {
	if paused {
		return "paused"
	}
	return "resumed"
}
