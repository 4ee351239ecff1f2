package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the platform role carried by an authenticated identity
type Role string

const (
	RoleBuyer  Role = "Buyer"
	RoleSeller Role = "Seller"
	RoleAdmin  Role = "Admin"
)

// Actor is the verified caller of an operation, as issued by the identity provider
type Actor struct {
	UserID string
	Role   Role
}

// IsAdmin reports whether the actor holds the administrator role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanManage reports whether the actor may run lifecycle actions on the auction:
// the listing's seller or any administrator.
func (a Actor) CanManage(auction Auction) bool {
	return a.IsAdmin() || (a.UserID != "" && a.UserID == auction.SellerID)
}

// Auction represents a single vehicle listing and its mutable auction state
type Auction struct {
	AuctionID     string           `json:"auction_id"`
	SellerID      string           `json:"seller_id"`
	Title         string           `json:"title"`
	Make          string           `json:"make"`
	Model         string           `json:"model"`
	Year          int              `json:"year"`
	BodyType      string           `json:"body_type"`
	Description   string           `json:"description"`
	StartingPrice decimal.Decimal  `json:"starting_price"`
	CurrentPrice  decimal.Decimal  `json:"current_price"`
	ReservePrice  *decimal.Decimal `json:"reserve_price,omitempty"`
	EndTime       time.Time        `json:"end_time"`
	IsPaused      bool             `json:"is_paused"`
	IsClosed      bool             `json:"is_closed"`
	IsSold        bool             `json:"is_sold"`
	SoldToUserID  *string          `json:"sold_to_user_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// ReserveMet reports whether the current price satisfies the reserve, if any
func (a Auction) ReserveMet() bool {
	return a.ReservePrice == nil || a.CurrentPrice.GreaterThanOrEqual(*a.ReservePrice)
}

// MoneyScale is the number of fractional digits stored for every price
const MoneyScale = 2

// maxMoney bounds prices to the 12 integer digits of a DECIMAL(14,2) column
var maxMoney = decimal.New(1, 14-MoneyScale)

// ValidMoney reports whether d is a positive amount the stores keep exactly:
// whole cents and below the column's range. Trailing zeros are fine.
func ValidMoney(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Truncate(MoneyScale)) && d.LessThan(maxMoney)
}

// Bid represents an accepted bid on an auction
type Bid struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// Outranks reports whether b leads over other: higher amount first, earlier bid on ties
func (b Bid) Outranks(other Bid) bool {
	if cmp := b.Amount.Cmp(other.Amount); cmp != 0 {
		return cmp > 0
	}
	return b.PlacedAt.Before(other.PlacedAt)
}

// Winner is the durable record of a closed-and-sold auction
type Winner struct {
	WinnerID   string          `json:"winner_id"`
	AuctionID  string          `json:"auction_id"`
	UserID     string          `json:"user_id"`
	FinalPrice decimal.Decimal `json:"final_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// WatchlistEntry links a user to an auction they follow
type WatchlistEntry struct {
	UserID    string    `json:"user_id"`
	AuctionID string    `json:"auction_id"`
	AddedAt   time.Time `json:"added_at"`
	Auction   Auction   `json:"auction"`
}

// AuctionFilter narrows auction listings. Zero values match everything.
type AuctionFilter struct {
	Status   Status
	SellerID string
	Search   string
	Now      time.Time
}

// BidFilter narrows administrative bid listings
type BidFilter struct {
	AuctionID string
	BidderID  string
}
