package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"vehicle-auction/internal/auctionerrors"
	model "vehicle-auction/internal/models"
)

func TestMapErrorToHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "auction_not_found", err: fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotFound), wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "bid_not_found", err: auctionerrors.ErrBidNotFound, wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "no_bids", err: auctionerrors.ErrNoBids, wantStatus: http.StatusNotFound, wantCode: CodeNotFound},
		{name: "not_watching", err: auctionerrors.ErrNotWatching, wantStatus: http.StatusNotFound, wantCode: CodeNotWatching},
		{name: "forbidden", err: auctionerrors.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: CodeForbidden},
		{name: "seller_cannot_bid", err: auctionerrors.ErrSellerCannotBid, wantStatus: http.StatusForbidden, wantCode: CodeSellerCannotBid},
		{name: "invalid_state", err: auctionerrors.ErrInvalidState, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidState},
		{name: "ended", err: auctionerrors.ErrAuctionEnded, wantStatus: http.StatusBadRequest, wantCode: CodeAuctionEnded},
		{name: "paused", err: auctionerrors.ErrAuctionPaused, wantStatus: http.StatusBadRequest, wantCode: CodeAuctionPaused},
		{name: "bid_too_low", err: auctionerrors.ErrBidTooLow, wantStatus: http.StatusBadRequest, wantCode: CodeBidTooLow},
		{name: "invalid_input", err: auctionerrors.ErrInvalidInput, wantStatus: http.StatusBadRequest, wantCode: CodeInvalidInput},
		{name: "conflict", err: auctionerrors.ErrConflict, wantStatus: http.StatusConflict, wantCode: CodeConflict},
		{name: "already_watching", err: auctionerrors.ErrAlreadyWatching, wantStatus: http.StatusConflict, wantCode: CodeAlreadyWatching},
		{name: "unauthenticated", err: auctionerrors.ErrUnauthenticated, wantStatus: http.StatusUnauthorized, wantCode: CodeUnauthenticated},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: CodeInternal},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, code, message := MapErrorToHTTP(tc.err)
			require.Equal(t, tc.wantStatus, status)
			require.Equal(t, tc.wantCode, code)
			require.NotEmpty(t, message)
		})
	}
}

func TestMapErrorToHTTP_BidTooLowCarriesPrice(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("service: %w", &auctionerrors.BidTooLowError{CurrentPrice: decimal.NewFromInt(1100)})
	status, code, message := MapErrorToHTTP(err)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, CodeBidTooLow, code)
	require.Equal(t, "bid must be higher than current price of 1100.00", message)
}

func TestActorFromContext(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := ActorFromContext(c)
	require.False(t, ok)

	c.Set(ContextUserID, "u1")
	c.Set(ContextRole, "Seller")
	actor, ok := ActorFromContext(c)
	require.True(t, ok)
	require.Equal(t, model.Actor{UserID: "u1", Role: model.RoleSeller}, actor)
}

func TestRegisterValidators_Decimal(t *testing.T) {
	RegisterValidators()

	require.NoError(t, binding.Validator.ValidateStruct(PlaceBidRequest{AuctionID: "a1", Amount: decimal.RequireFromString("10.50")}))
	require.Error(t, binding.Validator.ValidateStruct(PlaceBidRequest{AuctionID: "a1", Amount: decimal.Zero}))
	require.Error(t, binding.Validator.ValidateStruct(PlaceBidRequest{AuctionID: "a1", Amount: decimal.NewFromInt(-5)}))
}

func TestBindOptionalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantMinutes   *int
		wantErr       bool
	}{
		{name: "no_body", body: "", contentLength: 0},
		{name: "sized_body", body: `{"extend_minutes":15}`, contentLength: 21, wantMinutes: intPtr(15)},
		{name: "chunked_body", body: `{"extend_minutes":15}`, contentLength: -1, wantMinutes: intPtr(15)},
		{name: "chunked_empty", body: "", contentLength: -1},
		{name: "malformed", body: `{"extend_minutes":`, contentLength: -1, wantErr: true},
		{name: "fails_validation", body: `{"extend_minutes":0}`, contentLength: -1, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			RegisterValidators()

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			c.Request.ContentLength = tc.contentLength

			var req ExtendRequest
			err := BindOptionalJSON(c, &req)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantMinutes, req.ExtendMinutes)
		})
	}
}

func intPtr(v int) *int { return &v }
