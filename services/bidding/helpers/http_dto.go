package helpers

import (
	"time"

	"github.com/shopspring/decimal"

	model "vehicle-auction/internal/models"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	AuctionID string          `json:"auction_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

type BidResponse struct {
	BidID     string          `json:"bid_id"`
	AuctionID string          `json:"auction_id"`
	BidderID  string          `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  string          `json:"placed_at"`
}

type ExtendRequest struct {
	ExtendMinutes *int `json:"extend_minutes" binding:"omitempty,gte=1"`
}

type CloseRequest struct {
	MarkAsSold bool `json:"mark_as_sold"`
}

type CreateAuctionRequest struct {
	Title         string           `json:"title" binding:"required,max=200"`
	Make          string           `json:"make" binding:"max=100"`
	Model         string           `json:"model" binding:"max=100"`
	Year          int              `json:"year" binding:"omitempty,gte=1886"`
	BodyType      string           `json:"body_type" binding:"max=50"`
	Description   string           `json:"description"`
	StartingPrice decimal.Decimal  `json:"starting_price" binding:"required,gt=0"`
	ReservePrice  *decimal.Decimal `json:"reserve_price" binding:"omitempty,gt=0"`
	EndTime       time.Time        `json:"end_time" binding:"required"`
}

// UpdateAuctionRequest edits a listing; omitted fields stay unchanged
type UpdateAuctionRequest struct {
	Title         *string          `json:"title" binding:"omitempty,max=200"`
	Make          *string          `json:"make" binding:"omitempty,max=100"`
	Model         *string          `json:"model" binding:"omitempty,max=100"`
	Year          *int             `json:"year" binding:"omitempty,gte=1886"`
	BodyType      *string          `json:"body_type" binding:"omitempty,max=50"`
	Description   *string          `json:"description"`
	StartingPrice *decimal.Decimal `json:"starting_price" binding:"omitempty,gt=0"`
	ReservePrice  *decimal.Decimal `json:"reserve_price" binding:"omitempty,gt=0"`
}

type WatchRequest struct {
	AuctionID string `json:"auction_id" binding:"required"`
}

type PauseResponse struct {
	AuctionID string `json:"auction_id"`
	IsPaused  bool   `json:"is_paused"`
}

type ExtendResponse struct {
	AuctionID  string `json:"auction_id"`
	NewEndTime string `json:"new_end_time"`
}

type CloseEndedResponse struct {
	Closed int `json:"closed"`
}

type AuctionSummary struct {
	AuctionID    string          `json:"auction_id"`
	Title        string          `json:"title"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	EndTime      string          `json:"end_time"`
	IsPaused     bool            `json:"is_paused"`
	IsClosed     bool            `json:"is_closed"`
	IsSold       bool            `json:"is_sold"`
	SoldToUserID *string         `json:"sold_to_user_id,omitempty"`
}

type WatchingResponse struct {
	AuctionID  string `json:"auction_id"`
	IsWatching bool   `json:"is_watching"`
}

// ToBidResponse renders a bid with an RFC3339 timestamp
func ToBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		BidderID:  bid.BidderID,
		Amount:    bid.Amount,
		PlacedAt:  bid.PlacedAt.UTC().Format(time.RFC3339),
	}
}

// ToBidResponses renders bids, never returning nil
func ToBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, ToBidResponse(b))
	}
	return out
}

// ToAuctionSummary renders the mutable state of an auction
func ToAuctionSummary(a model.Auction) AuctionSummary {
	return AuctionSummary{
		AuctionID:    a.AuctionID,
		Title:        a.Title,
		CurrentPrice: a.CurrentPrice,
		EndTime:      a.EndTime.UTC().Format(time.RFC3339),
		IsPaused:     a.IsPaused,
		IsClosed:     a.IsClosed,
		IsSold:       a.IsSold,
		SoldToUserID: a.SoldToUserID,
	}
}
