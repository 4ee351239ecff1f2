package handler

import (
	"net/http"

	model "vehicle-auction/internal/models"
	"vehicle-auction/services/bidding/helpers"
	"vehicle-auction/utils"

	"github.com/gin-gonic/gin"
)

type WatchlistHandler struct {
	service WatchlistServiceInterface
}

func NewWatchlistHandler(service WatchlistServiceInterface) *WatchlistHandler {
	return &WatchlistHandler{service: service}
}

// AddHandler handles POST /watchlist
func (h *WatchlistHandler) AddHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "WatchlistAddHandler")
	if !ok {
		return
	}

	var req helpers.WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "WatchlistAddHandler", err)
		return
	}

	if err := h.service.Add(c.Request.Context(), actor.UserID, req.AuctionID); err != nil {
		helpers.HandleServiceError(c, "WatchlistAddHandler", err, map[string]any{"auction_id": req.AuctionID, "user_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.WatchingResponse{AuctionID: req.AuctionID, IsWatching: true}, "auction added to watchlist")
}

// RemoveHandler handles DELETE /watchlist/:auction_id
func (h *WatchlistHandler) RemoveHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "WatchlistRemoveHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	if err := h.service.Remove(c.Request.Context(), actor.UserID, auctionID); err != nil {
		helpers.HandleServiceError(c, "WatchlistRemoveHandler", err, map[string]any{"auction_id": auctionID, "user_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.WatchingResponse{AuctionID: auctionID, IsWatching: false}, "auction removed from watchlist")
}

// ListHandler handles GET /watchlist
func (h *WatchlistHandler) ListHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "WatchlistListHandler")
	if !ok {
		return
	}

	entries, err := h.service.List(c.Request.Context(), actor.UserID)
	if err != nil {
		helpers.HandleServiceError(c, "WatchlistListHandler", err, map[string]any{"user_id": actor.UserID})
		return
	}
	if entries == nil {
		entries = []model.WatchlistEntry{}
	}

	utils.JSONResponse(c, http.StatusOK, entries, "watchlist retrieved successfully")
}

// CheckHandler handles GET /watchlist/check/:auction_id
func (h *WatchlistHandler) CheckHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "WatchlistCheckHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	watching, err := h.service.IsWatching(c.Request.Context(), actor.UserID, auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "WatchlistCheckHandler", err, map[string]any{"auction_id": auctionID, "user_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.WatchingResponse{AuctionID: auctionID, IsWatching: watching}, "watchlist status retrieved")
}
