package repository

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=repository AuctionDB,AuctionTx

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"vehicle-auction/internal/auctionerrors"
	model "vehicle-auction/internal/models"
)

// AuctionTx is the set of reads and writes available inside one atomic unit of work.
// Everything done through a single AuctionTx is committed together or not at all.
type AuctionTx interface {
	// LockAuction reads the auction and holds it against concurrent writers until the unit ends.
	LockAuction(ctx context.Context, auctionID string) (model.Auction, error)
	SaveAuctionState(ctx context.Context, auction model.Auction) error
	// SaveListing writes the descriptive fields and prices of the listing.
	SaveListing(ctx context.Context, auction model.Auction) error
	InsertBid(ctx context.Context, bid model.Bid) error
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	DeleteBid(ctx context.Context, bidID string) error
	// LeadingBid returns the highest bid, earliest first on ties, or ErrNoBids.
	LeadingBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetWinner(ctx context.Context, auctionID string) (model.Winner, error)
	InsertWinner(ctx context.Context, winner model.Winner) error
}

// AuctionDB defines the auction, bid and winner storage interface
type AuctionDB interface {
	// WithTx runs fn inside one transaction. fn returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(tx AuctionTx) error) error

	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]model.Auction, error)
	// ListDueAuctionIDs returns unclosed auctions whose deadline is at or before now.
	ListDueAuctionIDs(ctx context.Context, now time.Time) ([]string, error)
	// DeleteAuction removes the auction with its bids, winner and watchlist entries.
	DeleteAuction(ctx context.Context, auctionID string) error

	// GetBidsByAuction returns the auction's bids newest first.
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	CountBids(ctx context.Context, auctionID string) (int, error)
	ListBids(ctx context.Context, filter model.BidFilter) ([]model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error)
	GetWinner(ctx context.Context, auctionID string) (model.Winner, error)

	Ping(ctx context.Context) error
}

// WatchlistDB stores the user to auction favorites join
type WatchlistDB interface {
	AddToWatchlist(ctx context.Context, userID, auctionID string, addedAt time.Time) error
	RemoveFromWatchlist(ctx context.Context, userID, auctionID string) error
	GetWatchlist(ctx context.Context, userID string) ([]model.WatchlistEntry, error)
	IsWatching(ctx context.Context, userID, auctionID string) (bool, error)
}

// Store is a complete backing store
type Store interface {
	AuctionDB
	WatchlistDB
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB and WatchlistDB.
// Transactions hold the write lock for their whole duration, so they are serialized.
type MemoryRepo struct {
	mu           sync.RWMutex
	auctions     map[string]model.Auction        // key: auctionID
	bids         map[string][]model.Bid          // key: auctionID -> bids in insertion order
	bidAuction   map[string]string               // key: bidID -> auctionID
	winners      map[string]model.Winner         // key: auctionID
	userAuctions map[string][]string             // key: userID -> auctionIDs the user has bid on
	watchlist    map[string]map[string]time.Time // key: userID -> auctionID -> addedAt
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions:     make(map[string]model.Auction),
		bids:         make(map[string][]model.Bid),
		bidAuction:   make(map[string]string),
		winners:      make(map[string]model.Winner),
		userAuctions: make(map[string][]string),
		watchlist:    make(map[string]map[string]time.Time),
	}
}

// WithTx stages every write of fn and applies them only if fn succeeds
func (r *MemoryRepo) WithTx(ctx context.Context, fn func(tx AuctionTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{
		repo:     r,
		auctions: make(map[string]model.Auction),
		deleted:  make(map[string]bool),
		winners:  make(map[string]model.Winner),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tx.commit()
	return nil
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if auction.AuctionID == "" {
		return fmt.Errorf("create auction: %w - empty auction id", auctionerrors.ErrInvalidInput)
	}
	if _, exists := r.auctions[auction.AuctionID]; exists {
		return fmt.Errorf("create auction %s: %w", auction.AuctionID, auctionerrors.ErrConflict)
	}
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns a single auction
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListAuctions returns auctions matching the filter, newest first
func (r *MemoryRepo) ListAuctions(_ context.Context, filter model.AuctionFilter) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		if filter.SellerID != "" && a.SellerID != filter.SellerID {
			continue
		}
		if !model.DeriveStatus(a, filter.Now).Matches(filter.Status) {
			continue
		}
		if search != "" && !matchesSearch(a, search) {
			continue
		}
		out = append(out, a)
	}
	sortNewestAuctions(out)
	return out, nil
}

// ListDueAuctionIDs returns unclosed auctions whose deadline has passed
func (r *MemoryRepo) ListDueAuctionIDs(_ context.Context, now time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, a := range r.auctions {
		if !a.IsClosed && !now.Before(a.EndTime) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteAuction removes an auction and everything that depends on it
func (r *MemoryRepo) DeleteAuction(_ context.Context, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("delete auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	for _, b := range r.bids[auctionID] {
		delete(r.bidAuction, b.BidID)
		r.dropUserAuction(b.BidderID, auctionID)
	}
	delete(r.bids, auctionID)
	delete(r.winners, auctionID)
	for _, entries := range r.watchlist {
		delete(entries, auctionID)
	}
	delete(r.auctions, auctionID)
	return nil
}

// GetBidsByAuction returns all bids for an auction, newest first
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return newestFirst(r.bids[auctionID]), nil
}

// CountBids returns how many bids an auction holds
func (r *MemoryRepo) CountBids(_ context.Context, auctionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bids[auctionID]), nil
}

// ListBids returns bids across auctions matching the filter, newest first
func (r *MemoryRepo) ListBids(_ context.Context, filter model.BidFilter) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []model.Bid
	for auctionID, bids := range r.bids {
		if filter.AuctionID != "" && auctionID != filter.AuctionID {
			continue
		}
		for _, b := range bids {
			if filter.BidderID != "" && b.BidderID != filter.BidderID {
				continue
			}
			all = append(all, b)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].PlacedAt.After(all[j].PlacedAt) })
	if all == nil {
		all = []model.Bid{}
	}
	return all, nil
}

// GetAuctionsByBidder returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByBidder(_ context.Context, userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.userAuctions[userID]
	auctions := make([]model.Auction, 0, len(ids))
	for _, id := range ids {
		if a, exists := r.auctions[id]; exists {
			auctions = append(auctions, a)
		}
	}
	return auctions, nil
}

// GetWinner returns the winner record of a sold auction
func (r *MemoryRepo) GetWinner(_ context.Context, auctionID string) (model.Winner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.winners[auctionID]
	if !ok {
		return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, auctionerrors.ErrWinnerNotFound)
	}
	return w, nil
}

// Ping always succeeds for the in-memory store
func (r *MemoryRepo) Ping(context.Context) error {
	return nil
}

// AddToWatchlist records that a user follows an auction
func (r *MemoryRepo) AddToWatchlist(_ context.Context, userID, auctionID string, addedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return fmt.Errorf("watch auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	entries, ok := r.watchlist[userID]
	if !ok {
		entries = make(map[string]time.Time)
		r.watchlist[userID] = entries
	}
	if _, exists := entries[auctionID]; exists {
		return fmt.Errorf("watch auction %s: %w", auctionID, auctionerrors.ErrAlreadyWatching)
	}
	entries[auctionID] = addedAt
	return nil
}

// RemoveFromWatchlist drops an auction from a user's watchlist
func (r *MemoryRepo) RemoveFromWatchlist(_ context.Context, userID, auctionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.watchlist[userID][auctionID]; !exists {
		return fmt.Errorf("unwatch auction %s: %w", auctionID, auctionerrors.ErrNotWatching)
	}
	delete(r.watchlist[userID], auctionID)
	return nil
}

// GetWatchlist returns a user's watched auctions, most recently added first
func (r *MemoryRepo) GetWatchlist(_ context.Context, userID string) ([]model.WatchlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]model.WatchlistEntry, 0, len(r.watchlist[userID]))
	for auctionID, addedAt := range r.watchlist[userID] {
		entries = append(entries, model.WatchlistEntry{
			UserID:    userID,
			AuctionID: auctionID,
			AddedAt:   addedAt,
			Auction:   r.auctions[auctionID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AuctionID < entries[j].AuctionID
		}
		return entries[i].AddedAt.After(entries[j].AddedAt)
	})
	return entries, nil
}

// IsWatching reports whether the user follows the auction
func (r *MemoryRepo) IsWatching(_ context.Context, userID, auctionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.watchlist[userID][auctionID]
	return ok, nil
}

// AddAuction adds an auction to the repository. This method is intended for tests and seeding only.
func (r *MemoryRepo) AddAuction(auction model.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction
}

// dropUserAuction forgets that userID bid on auctionID. Caller holds the write lock.
func (r *MemoryRepo) dropUserAuction(userID, auctionID string) {
	ids := r.userAuctions[userID]
	for i, id := range ids {
		if id == auctionID {
			r.userAuctions[userID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(r.userAuctions[userID]) == 0 {
		delete(r.userAuctions, userID)
	}
}

// memoryTx stages writes on top of a MemoryRepo whose write lock is held
type memoryTx struct {
	repo     *MemoryRepo
	auctions map[string]model.Auction
	inserted []model.Bid
	deleted  map[string]bool
	winners  map[string]model.Winner
}

func (tx *memoryTx) LockAuction(_ context.Context, auctionID string) (model.Auction, error) {
	if a, ok := tx.auctions[auctionID]; ok {
		return a, nil
	}
	a, ok := tx.repo.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("lock auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

func (tx *memoryTx) SaveAuctionState(_ context.Context, auction model.Auction) error {
	if _, ok := tx.repo.auctions[auction.AuctionID]; !ok {
		return fmt.Errorf("save auction %s: %w", auction.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	tx.auctions[auction.AuctionID] = auction
	return nil
}

func (tx *memoryTx) SaveListing(ctx context.Context, auction model.Auction) error {
	return tx.SaveAuctionState(ctx, auction)
}

func (tx *memoryTx) InsertBid(_ context.Context, bid model.Bid) error {
	if _, ok := tx.repo.auctions[bid.AuctionID]; !ok {
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if _, dup := tx.repo.bidAuction[bid.BidID]; dup {
		return fmt.Errorf("record bid %s: %w", bid.BidID, auctionerrors.ErrConflict)
	}
	tx.inserted = append(tx.inserted, bid)
	return nil
}

func (tx *memoryTx) GetBid(_ context.Context, bidID string) (model.Bid, error) {
	if !tx.deleted[bidID] {
		for _, b := range tx.inserted {
			if b.BidID == bidID {
				return b, nil
			}
		}
		if auctionID, ok := tx.repo.bidAuction[bidID]; ok {
			for _, b := range tx.repo.bids[auctionID] {
				if b.BidID == bidID {
					return b, nil
				}
			}
		}
	}
	return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
}

func (tx *memoryTx) DeleteBid(ctx context.Context, bidID string) error {
	if _, err := tx.GetBid(ctx, bidID); err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	tx.deleted[bidID] = true
	return nil
}

func (tx *memoryTx) LeadingBid(_ context.Context, auctionID string) (model.Bid, error) {
	var (
		leading model.Bid
		found   bool
	)
	consider := func(b model.Bid) {
		if tx.deleted[b.BidID] || b.AuctionID != auctionID {
			return
		}
		if !found || b.Outranks(leading) {
			leading, found = b, true
		}
	}
	for _, b := range tx.repo.bids[auctionID] {
		consider(b)
	}
	for _, b := range tx.inserted {
		consider(b)
	}
	if !found {
		return model.Bid{}, fmt.Errorf("leading bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return leading, nil
}

func (tx *memoryTx) GetWinner(_ context.Context, auctionID string) (model.Winner, error) {
	if w, ok := tx.winners[auctionID]; ok {
		return w, nil
	}
	if w, ok := tx.repo.winners[auctionID]; ok {
		return w, nil
	}
	return model.Winner{}, fmt.Errorf("get winner for auction %s: %w", auctionID, auctionerrors.ErrWinnerNotFound)
}

func (tx *memoryTx) InsertWinner(_ context.Context, winner model.Winner) error {
	if _, ok := tx.winners[winner.AuctionID]; ok {
		return fmt.Errorf("insert winner for auction %s: %w", winner.AuctionID, auctionerrors.ErrConflict)
	}
	if _, ok := tx.repo.winners[winner.AuctionID]; ok {
		return fmt.Errorf("insert winner for auction %s: %w", winner.AuctionID, auctionerrors.ErrConflict)
	}
	tx.winners[winner.AuctionID] = winner
	return nil
}

// commit applies the staged writes. Caller holds the repo write lock.
func (tx *memoryTx) commit() {
	r := tx.repo
	for id, a := range tx.auctions {
		r.auctions[id] = a
	}
	for _, b := range tx.inserted {
		if tx.deleted[b.BidID] {
			continue
		}
		r.bids[b.AuctionID] = append(r.bids[b.AuctionID], b)
		r.bidAuction[b.BidID] = b.AuctionID
		r.trackUserAuction(b.BidderID, b.AuctionID)
	}
	for bidID := range tx.deleted {
		auctionID, ok := r.bidAuction[bidID]
		if !ok {
			continue
		}
		var bidderID string
		kept := r.bids[auctionID][:0:0]
		for _, b := range r.bids[auctionID] {
			if b.BidID == bidID {
				bidderID = b.BidderID
				continue
			}
			kept = append(kept, b)
		}
		r.bids[auctionID] = kept
		delete(r.bidAuction, bidID)
		if bidderID != "" && !r.hasBidOn(bidderID, auctionID) {
			r.dropUserAuction(bidderID, auctionID)
		}
	}
	for id, w := range tx.winners {
		r.winners[id] = w
	}
}

func (r *MemoryRepo) trackUserAuction(userID, auctionID string) {
	for _, id := range r.userAuctions[userID] {
		if id == auctionID {
			return
		}
	}
	r.userAuctions[userID] = append(r.userAuctions[userID], auctionID)
}

func (r *MemoryRepo) hasBidOn(userID, auctionID string) bool {
	for _, b := range r.bids[auctionID] {
		if b.BidderID == userID {
			return true
		}
	}
	return false
}

func matchesSearch(a model.Auction, search string) bool {
	return strings.Contains(strings.ToLower(a.Title), search) ||
		strings.Contains(strings.ToLower(a.Make), search) ||
		strings.Contains(strings.ToLower(a.Model), search)
}

func sortNewestAuctions(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].CreatedAt.Equal(auctions[j].CreatedAt) {
			return auctions[i].AuctionID > auctions[j].AuctionID
		}
		return auctions[i].CreatedAt.After(auctions[j].CreatedAt)
	})
}

// newestFirst copies bids stored in insertion order and orders them newest first.
// Bids with equal timestamps keep reverse insertion order.
func newestFirst(bids []model.Bid) []model.Bid {
	out := make([]model.Bid, len(bids))
	for i, b := range bids {
		out[len(bids)-1-i] = b
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out
}
