package events

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Event types published after a state change commits
const (
	TypeBidPlaced      = "bid.placed"
	TypeAuctionClosed  = "auction.closed"
	TypeAuctionUpdated = "auction.updated"
)

// Event is the JSON body published for every auction state change
type Event struct {
	Type       string           `json:"type"`
	AuctionID  string           `json:"auction_id"`
	ActorID    string           `json:"actor_id,omitempty"`
	BidID      string           `json:"bid_id,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	EndTime    *time.Time       `json:"end_time,omitempty"`
	IsPaused   *bool            `json:"is_paused,omitempty"`
	IsSold     *bool            `json:"is_sold,omitempty"`
	WinnerID   string           `json:"winner_id,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher delivers events to interested consumers. Publishing happens after
// commit and a failure never undoes the state change.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop discards every event
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events of one type
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// Ptr is a helper for the optional event fields
func Ptr[T any](v T) *T {
	return &v
}
