package watchlist

import (
	"context"
	"fmt"

	"vehicle-auction/internal/auctionerrors"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"
	"vehicle-auction/utils"
)

// WatchlistService keeps the auctions each user follows
type WatchlistService struct {
	repo  repository.WatchlistDB
	clock clock.Clock
}

// NewWatchlistService creates a new WatchlistService instance
func NewWatchlistService(repo repository.WatchlistDB, clk clock.Clock) *WatchlistService {
	if clk == nil {
		clk = clock.Real{}
	}
	return &WatchlistService{repo: repo, clock: clk}
}

// Add starts following an auction
func (s *WatchlistService) Add(ctx context.Context, userID, auctionID string) error {
	if userID == "" || auctionID == "" {
		return fmt.Errorf("service: %w - missing userID or auctionID", auctionerrors.ErrInvalidInput)
	}
	if err := s.repo.AddToWatchlist(ctx, userID, auctionID, s.clock.Now()); err != nil {
		return fmt.Errorf("service: failed to watch auction %s: %w", auctionID, err)
	}
	utils.Info("Auction watched", map[string]any{"user_id": userID, "auction_id": auctionID})
	return nil
}

// Remove stops following an auction
func (s *WatchlistService) Remove(ctx context.Context, userID, auctionID string) error {
	if userID == "" || auctionID == "" {
		return fmt.Errorf("service: %w - missing userID or auctionID", auctionerrors.ErrInvalidInput)
	}
	if err := s.repo.RemoveFromWatchlist(ctx, userID, auctionID); err != nil {
		return fmt.Errorf("service: failed to unwatch auction %s: %w", auctionID, err)
	}
	return nil
}

// List returns the user's watched auctions, most recently added first
func (s *WatchlistService) List(ctx context.Context, userID string) ([]models.WatchlistEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidInput)
	}
	entries, err := s.repo.GetWatchlist(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get watchlist for user %s: %w", userID, err)
	}
	return entries, nil
}

// IsWatching reports whether the user follows the auction
func (s *WatchlistService) IsWatching(ctx context.Context, userID, auctionID string) (bool, error) {
	if userID == "" || auctionID == "" {
		return false, fmt.Errorf("service: %w - missing userID or auctionID", auctionerrors.ErrInvalidInput)
	}
	watching, err := s.repo.IsWatching(ctx, userID, auctionID)
	if err != nil {
		return false, fmt.Errorf("service: failed to check watchlist: %w", err)
	}
	return watching, nil
}
