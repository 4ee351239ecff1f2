package handler

import (
	"fmt"
	"net/http"
	"strings"

	auction "vehicle-auction/internal/auctionService"
	"vehicle-auction/internal/auctionerrors"
	model "vehicle-auction/internal/models"
	"vehicle-auction/services/bidding/helpers"
	"vehicle-auction/utils"

	"github.com/gin-gonic/gin"
)

type AuctionHandler struct {
	service AuctionServiceInterface
}

func NewAuctionHandler(service AuctionServiceInterface) *AuctionHandler {
	return &AuctionHandler{service: service}
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "CreateAuctionHandler")
	if !ok {
		return
	}

	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	a, err := h.service.CreateAuction(c.Request.Context(), actor, auction.CreateAuctionInput{
		Title:         req.Title,
		Make:          req.Make,
		Model:         req.Model,
		Year:          req.Year,
		BodyType:      req.BodyType,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
		EndTime:       req.EndTime,
	})
	if err != nil {
		helpers.HandleServiceError(c, "CreateAuctionHandler", err, map[string]any{"user_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, a, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created", map[string]any{
		"auction_id": a.AuctionID,
		"seller_id":  a.SellerID,
	})
}

// UpdateAuctionHandler handles PATCH /auctions/:auction_id and PATCH /admin/auctions/:auction_id
func (h *AuctionHandler) UpdateAuctionHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "UpdateAuctionHandler")
	if !ok {
		return
	}

	var req helpers.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateAuctionHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	a, err := h.service.UpdateAuction(c.Request.Context(), actor, auctionID, auction.UpdateAuctionInput{
		Title:         req.Title,
		Make:          req.Make,
		Model:         req.Model,
		Year:          req.Year,
		BodyType:      req.BodyType,
		Description:   req.Description,
		StartingPrice: req.StartingPrice,
		ReservePrice:  req.ReservePrice,
	})
	if err != nil {
		helpers.HandleServiceError(c, "UpdateAuctionHandler", err, map[string]any{"auction_id": auctionID, "user_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, a, "auction updated successfully")
	helpers.LogSuccess("UpdateAuctionHandler", "auction updated", map[string]any{"auction_id": a.AuctionID})
}

// ListAuctionsHandler handles GET /auctions?status=&seller_id=&q=
func (h *AuctionHandler) ListAuctionsHandler(c *gin.Context) {
	filter := model.AuctionFilter{
		SellerID: c.Query("seller_id"),
		Search:   strings.TrimSpace(c.Query("q")),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := model.ParseStatus(strings.ToLower(raw))
		if !ok {
			err := fmt.Errorf("%w - unknown status %q", auctionerrors.ErrInvalidInput, raw)
			helpers.HandleServiceError(c, "ListAuctionsHandler", err, nil)
			return
		}
		filter.Status = status
	}

	auctions, err := h.service.ListAuctions(c.Request.Context(), filter)
	if err != nil {
		helpers.HandleServiceError(c, "ListAuctionsHandler", err, nil)
		return
	}
	if auctions == nil {
		auctions = []auction.AuctionView{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetAuctionHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	view, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, view, "auction retrieved successfully")
}

// GetAuctionStatusHandler handles GET /auction/status/:auction_id
func (h *AuctionHandler) GetAuctionStatusHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	status, err := h.service.GetAuctionStatus(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionStatusHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, status, "auction status retrieved successfully")
}

// GetWinnerHandler handles GET /auctions/:auction_id/winner
func (h *AuctionHandler) GetWinnerHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	winner, err := h.service.GetWinner(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetWinnerHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, winner, "winner retrieved successfully")
}

// DeleteAuctionHandler handles DELETE /admin/auctions/:auction_id
func (h *AuctionHandler) DeleteAuctionHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "DeleteAuctionHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	if err := h.service.DeleteAuction(c.Request.Context(), actor, auctionID); err != nil {
		helpers.HandleServiceError(c, "DeleteAuctionHandler", err, map[string]any{"auction_id": auctionID, "admin_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"auction_id": auctionID}, "auction deleted successfully")
	helpers.LogSuccess("DeleteAuctionHandler", "auction deleted", map[string]any{"auction_id": auctionID})
}

// HealthHandler handles GET /healthz
func (h *AuctionHandler) HealthHandler(c *gin.Context) {
	if err := h.service.Ping(c.Request.Context()); err != nil {
		utils.JSONError(c, http.StatusServiceUnavailable, "unavailable", err, "store unavailable")
		utils.Error("HealthHandler: store ping failed", map[string]any{"error": err.Error()})
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"status": "ok"}, "healthy")
}
