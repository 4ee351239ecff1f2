package auctionerrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Repository-level errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrWinnerNotFound  = errors.New("winner not found")
	ErrNoBids          = errors.New("no bids found for auction")
	ErrAlreadyWatching = errors.New("auction already in watchlist")
	ErrNotWatching     = errors.New("auction not in watchlist")
	ErrConflict        = errors.New("concurrent update conflict")
)

// business logic errors
var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidState    = errors.New("invalid auction state")
	ErrInvalidInput    = errors.New("invalid input")
	ErrAuctionEnded    = errors.New("auction has ended")
	ErrAuctionPaused   = errors.New("auction is currently paused")
	ErrBidTooLow       = errors.New("bid amount too low")
	ErrSellerCannotBid = errors.New("seller cannot bid on own auction")
)

// IsNotFound reports whether err is any of the not-found kinds
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAuctionNotFound) ||
		errors.Is(err, ErrBidNotFound) ||
		errors.Is(err, ErrWinnerNotFound)
}

// BidTooLowError reports the price a rejected bid had to beat
type BidTooLowError struct {
	CurrentPrice decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("%s - bid must be higher than current price of %s", ErrBidTooLow, e.CurrentPrice.StringFixed(2))
}

func (e *BidTooLowError) Unwrap() error {
	return ErrBidTooLow
}
