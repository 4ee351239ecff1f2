package helpers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"vehicle-auction/internal/auctionerrors"
	model "vehicle-auction/internal/models"
	"vehicle-auction/utils"
)

// Context keys set by the authentication middleware
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// Stable error codes returned in the "code" field of error responses
const (
	CodeNotFound        = "not_found"
	CodeNotWatching     = "not_watching"
	CodeForbidden       = "forbidden"
	CodeSellerCannotBid = "seller_cannot_bid"
	CodeInvalidState    = "invalid_state"
	CodeAuctionEnded    = "auction_ended"
	CodeAuctionPaused   = "auction_paused"
	CodeBidTooLow       = "bid_too_low"
	CodeInvalidInput    = "invalid_input"
	CodeInvalidPayload  = "invalid_payload"
	CodeConflict        = "conflict"
	CodeAlreadyWatching = "already_watching"
	CodeUnauthenticated = "unauthenticated"
	CodeRateLimited     = "too_many_requests"
	CodeInternal        = "internal"
)

var registerOnce sync.Once

// RegisterValidators teaches gin's validator to check decimal amounts
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, CodeInvalidPayload, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// BindOptionalJSON binds the request body into obj when one is sent. A missing
// or empty body leaves obj at its zero value.
func BindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// MapErrorToHTTP maps domain/service errors to HTTP status, error code and message
func MapErrorToHTTP(err error) (int, string, string) {
	var tooLow *auctionerrors.BidTooLowError
	switch {
	case errors.As(err, &tooLow):
		return http.StatusBadRequest, CodeBidTooLow,
			fmt.Sprintf("bid must be higher than current price of %s", tooLow.CurrentPrice.StringFixed(2))
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusBadRequest, CodeBidTooLow, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrNotWatching):
		return http.StatusNotFound, CodeNotWatching, "auction not in watchlist"
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, CodeNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrBidNotFound):
		return http.StatusNotFound, CodeNotFound, "bid not found"
	case errors.Is(err, auctionerrors.ErrWinnerNotFound):
		return http.StatusNotFound, CodeNotFound, "no winner for auction"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, CodeNotFound, "no bids found for auction"
	case auctionerrors.IsNotFound(err):
		return http.StatusNotFound, CodeNotFound, "not found"
	case errors.Is(err, auctionerrors.ErrSellerCannotBid):
		return http.StatusForbidden, CodeSellerCannotBid, "sellers cannot bid on their own auction"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, CodeForbidden, "not allowed to perform this action"
	case errors.Is(err, auctionerrors.ErrAuctionEnded):
		return http.StatusBadRequest, CodeAuctionEnded, "auction has ended"
	case errors.Is(err, auctionerrors.ErrAuctionPaused):
		return http.StatusBadRequest, CodeAuctionPaused, "auction is currently paused"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusBadRequest, CodeInvalidState, "operation not allowed in the auction's current state"
	case errors.Is(err, auctionerrors.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidInput, "invalid input"
	case errors.Is(err, auctionerrors.ErrConflict):
		return http.StatusConflict, CodeConflict, "concurrent update, refresh and retry"
	case errors.Is(err, auctionerrors.ErrAlreadyWatching):
		return http.StatusConflict, CodeAlreadyWatching, "auction already in watchlist"
	case errors.Is(err, auctionerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated, "authentication required"
	default:
		return http.StatusInternalServerError, CodeInternal, "internal server error"
	}
}

// HandleServiceError writes the mapped error response and logs it. Server
// faults log at error level, client mistakes at warn.
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, code, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, code, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	fields["status"] = status
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// ActorFromContext returns the authenticated caller set by the auth middleware
func ActorFromContext(c *gin.Context) (model.Actor, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return model.Actor{}, false
	}
	return model.Actor{UserID: userID, Role: model.Role(c.GetString(ContextRole))}, true
}

// RequireActor returns the caller or writes a 401 and reports false
func RequireActor(c *gin.Context, handlerName string) (model.Actor, bool) {
	actor, ok := ActorFromContext(c)
	if !ok {
		HandleServiceError(c, handlerName, auctionerrors.ErrUnauthenticated, nil)
		return model.Actor{}, false
	}
	return actor, true
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
