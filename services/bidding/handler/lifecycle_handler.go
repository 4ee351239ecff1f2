package handler

import (
	"net/http"
	"time"

	"vehicle-auction/services/bidding/helpers"
	"vehicle-auction/utils"

	"github.com/gin-gonic/gin"
)

type LifecycleHandler struct {
	service LifecycleServiceInterface
}

func NewLifecycleHandler(service LifecycleServiceInterface) *LifecycleHandler {
	return &LifecycleHandler{service: service}
}

// TogglePauseHandler handles POST /auction/pause/:auction_id and its admin twin
func (h *LifecycleHandler) TogglePauseHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "TogglePauseHandler")
	if !ok {
		return
	}

	auctionID := c.Param("auction_id")
	a, err := h.service.TogglePause(c.Request.Context(), actor, auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "TogglePauseHandler", err, map[string]any{"auction_id": auctionID, "user_id": actor.UserID})
		return
	}

	message := "auction resumed"
	if a.IsPaused {
		message = "auction paused"
	}
	utils.JSONResponse(c, http.StatusOK, helpers.PauseResponse{AuctionID: a.AuctionID, IsPaused: a.IsPaused}, message)
}

// ExtendHandler handles POST /auction/extend/:auction_id with an optional body
func (h *LifecycleHandler) ExtendHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "ExtendHandler")
	if !ok {
		return
	}

	var req helpers.ExtendRequest
	if err := helpers.BindOptionalJSON(c, &req); err != nil {
		helpers.HandleBindError(c, "ExtendHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	a, err := h.service.Extend(c.Request.Context(), actor, auctionID, req.ExtendMinutes)
	if err != nil {
		helpers.HandleServiceError(c, "ExtendHandler", err, map[string]any{"auction_id": auctionID, "user_id": actor.UserID})
		return
	}

	resp := helpers.ExtendResponse{AuctionID: a.AuctionID, NewEndTime: a.EndTime.UTC().Format(time.RFC3339)}
	utils.JSONResponse(c, http.StatusOK, resp, "auction extended successfully")
}

// CloseEndedHandler handles POST /auction/close-ended
func (h *LifecycleHandler) CloseEndedHandler(c *gin.Context) {
	closed, err := h.service.CloseEnded(c.Request.Context())
	if err != nil && closed == 0 {
		helpers.HandleServiceError(c, "CloseEndedHandler", err, nil)
		return
	}
	if err != nil {
		// partial sweeps still report what they closed
		utils.Error("CloseEndedHandler: sweep finished with failures", map[string]any{
			"closed": closed,
			"error":  err.Error(),
		})
	}

	utils.JSONResponse(c, http.StatusOK, helpers.CloseEndedResponse{Closed: closed}, "ended auctions closed")
	helpers.LogSuccess("CloseEndedHandler", "sweep completed", map[string]any{"closed": closed})
}

// CloseNowHandler handles POST /auction/close/:auction_id and
// POST /admin/auction/close/:auction_id with an optional {"mark_as_sold"} body
func (h *LifecycleHandler) CloseNowHandler(c *gin.Context) {
	actor, ok := helpers.RequireActor(c, "CloseNowHandler")
	if !ok {
		return
	}

	var req helpers.CloseRequest
	if err := helpers.BindOptionalJSON(c, &req); err != nil {
		helpers.HandleBindError(c, "CloseNowHandler", err)
		return
	}

	auctionID := c.Param("auction_id")
	a, err := h.service.CloseNow(c.Request.Context(), actor, auctionID, req.MarkAsSold)
	if err != nil {
		helpers.HandleServiceError(c, "CloseNowHandler", err, map[string]any{"auction_id": auctionID, "user_id": actor.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.ToAuctionSummary(a), "auction closed successfully")
	helpers.LogSuccess("CloseNowHandler", "auction closed", map[string]any{
		"auction_id": a.AuctionID,
		"is_sold":    a.IsSold,
	})
}
