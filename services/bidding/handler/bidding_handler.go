package handler

import (
	"net/http"

	model "vehicle-auction/internal/models"
	"vehicle-auction/services/bidding/helpers"
	"vehicle-auction/utils"

	"github.com/gin-gonic/gin"
)

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// RecordBidHandler handles POST /bids. The bidder is the authenticated caller.
func (h *BiddingHandler) RecordBidHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "RecordBidHandler")
	if !ok {
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RecordBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), req.AuctionID, actor.UserID, req.Amount)
	if err != nil {
		helpers.HandleServiceError(c, "RecordBidHandler", err, map[string]any{
			"auction_id": req.AuctionID,
			"user_id":    actor.UserID,
			"amount":     req.Amount.String(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.ToBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("RecordBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"user_id":    actor.UserID,
		"amount":     bid.Amount.String(),
	})
}

// GetBidsByAuctionHandler handles GET /bids/vehicle/:auction_id
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidsByAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// GetLeadingBidHandler handles GET /bids/vehicle/:auction_id/leading
func (h *BiddingHandler) GetLeadingBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bid, err := h.service.GetLeadingBid(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetLeadingBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponse(bid), "leading bid retrieved successfully")
}

// GetMyAuctionsHandler handles GET /users/me/auctions
func (h *BiddingHandler) GetMyAuctionsHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "GetMyAuctionsHandler")
	if !ok {
		return
	}

	auctions, err := h.service.GetAuctionsByBidder(c.Request.Context(), actor.UserID)
	if err != nil {
		helpers.HandleServiceError(c, "GetMyAuctionsHandler", err, map[string]any{"user_id": actor.UserID})
		return
	}
	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetMyAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        actor.UserID,
		"auctions_count": len(auctions),
	})
}

// ListBidsHandler handles GET /admin/bids?auction_id=&bidder_id=
func (h *BiddingHandler) ListBidsHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "ListBidsHandler")
	if !ok {
		return
	}

	filter := model.BidFilter{
		AuctionID: c.Query("auction_id"),
		BidderID:  c.Query("bidder_id"),
	}
	bids, err := h.service.ListBids(c.Request.Context(), actor, filter)
	if err != nil {
		helpers.HandleServiceError(c, "ListBidsHandler", err, map[string]any{"admin_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToBidResponses(bids), "bids retrieved successfully")
}

// DeleteBidHandler handles DELETE /admin/bids/:bid_id
func (h *BiddingHandler) DeleteBidHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "DeleteBidHandler")
	if !ok {
		return
	}

	bidID := c.Param("bid_id")
	a, err := h.service.DeleteBid(c.Request.Context(), actor, bidID)
	if err != nil {
		helpers.HandleServiceError(c, "DeleteBidHandler", err, map[string]any{"bid_id": bidID, "admin_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionSummary(a), "bid deleted successfully")
	helpers.LogSuccess("DeleteBidHandler", "bid deleted successfully", map[string]any{
		"bid_id":        bidID,
		"auction_id":    a.AuctionID,
		"current_price": a.CurrentPrice.String(),
	})
}
