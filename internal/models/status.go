package models

import "time"

// Status is the derived lifecycle state of an auction. It is computed on read
// and never persisted.
type Status string

const (
	StatusOpen   Status = "open"
	StatusPaused Status = "paused"
	StatusEnded  Status = "ended"
	StatusClosed Status = "closed"
	StatusSold   Status = "sold"

	// StatusActive is a listing filter only: open auctions that accept bids.
	StatusActive Status = "active"
)

// ParseStatus maps a filter string to a Status. Unknown values return false.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusOpen, StatusPaused, StatusEnded, StatusClosed, StatusSold, StatusActive:
		return st, true
	}
	return "", false
}

// DeriveStatus computes the auction's state at now.
// Precedence: sold, closed, paused, ended, open.
func DeriveStatus(a Auction, now time.Time) Status {
	switch {
	case a.IsSold:
		return StatusSold
	case a.IsClosed:
		return StatusClosed
	case a.IsPaused:
		return StatusPaused
	case !now.Before(a.EndTime):
		return StatusEnded
	default:
		return StatusOpen
	}
}

// Matches reports whether status satisfies a listing filter
func (s Status) Matches(filter Status) bool {
	if filter == "" {
		return true
	}
	if filter == StatusActive {
		return s == StatusOpen
	}
	if filter == StatusClosed {
		return s == StatusClosed || s == StatusSold
	}
	return s == filter
}

// HasEnded reports whether bidding is over, either by close or by deadline
func HasEnded(a Auction, now time.Time) bool {
	return a.IsClosed || a.IsSold || !now.Before(a.EndTime)
}

// IsActive reports whether the auction accepts bids at now
func IsActive(a Auction, now time.Time) bool {
	return DeriveStatus(a, now) == StatusOpen
}
