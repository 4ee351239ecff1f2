package handler

import (
	"context"

	"github.com/shopspring/decimal"

	auction "vehicle-auction/internal/auctionService"
	model "vehicle-auction/internal/models"
)

//go:generate mockgen -source=interfaces.go -destination=mock_services.go -package=handler

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (model.Bid, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetLeadingBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByBidder(ctx context.Context, userID string) ([]model.Auction, error)
	ListBids(ctx context.Context, actor model.Actor, filter model.BidFilter) ([]model.Bid, error)
	DeleteBid(ctx context.Context, actor model.Actor, bidID string) (model.Auction, error)
}

type LifecycleServiceInterface interface {
	TogglePause(ctx context.Context, actor model.Actor, auctionID string) (model.Auction, error)
	Extend(ctx context.Context, actor model.Actor, auctionID string, minutes *int) (model.Auction, error)
	CloseEnded(ctx context.Context) (int, error)
	CloseNow(ctx context.Context, actor model.Actor, auctionID string, markAsSold bool) (model.Auction, error)
}

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, actor model.Actor, in auction.CreateAuctionInput) (model.Auction, error)
	UpdateAuction(ctx context.Context, actor model.Actor, auctionID string, in auction.UpdateAuctionInput) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (auction.AuctionView, error)
	ListAuctions(ctx context.Context, filter model.AuctionFilter) ([]auction.AuctionView, error)
	GetAuctionStatus(ctx context.Context, auctionID string) (auction.AuctionStatus, error)
	GetWinner(ctx context.Context, auctionID string) (model.Winner, error)
	DeleteAuction(ctx context.Context, actor model.Actor, auctionID string) error
	Ping(ctx context.Context) error
}

type WatchlistServiceInterface interface {
	Add(ctx context.Context, userID, auctionID string) error
	Remove(ctx context.Context, userID, auctionID string) error
	List(ctx context.Context, userID string) ([]model.WatchlistEntry, error)
	IsWatching(ctx context.Context, userID, auctionID string) (bool, error)
}
