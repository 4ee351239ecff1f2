package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	auction "vehicle-auction/internal/auctionService"
	bidding "vehicle-auction/internal/biddingService"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/config"
	"vehicle-auction/internal/events"
	lifecycle "vehicle-auction/internal/lifecycleService"
	model "vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"
	"vehicle-auction/internal/server"
	watchlist "vehicle-auction/internal/watchlistService"
	"vehicle-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-secret"

// baseTime is "now" on the fake clock when every test starts
var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// TestEnv is a full router over the in-memory store with a controllable clock
type TestEnv struct {
	Router   *gin.Engine
	Repo     *repository.MemoryRepo
	Clock    *clock.Fake
	Recorder *events.Recorder
}

// SetupTestEnv builds the application the way main does and seeds auctions
func SetupTestEnv(t *testing.T, auctions ...model.Auction) TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	for _, a := range auctions {
		repo.AddAuction(a)
	}
	clk := clock.NewFake(baseTime)
	recorder := &events.Recorder{}

	router := server.SetupRouter(server.Services{
		Bidding: bidding.NewBiddingService(repo, clk, recorder, bidding.Options{}),
		Lifecycle: lifecycle.NewLifecycleService(repo, clk, recorder, lifecycle.Options{
			DefaultExtendMinutes: lifecycle.DefaultExtendMinutes,
			MaxExtendMinutes:     lifecycle.MaxExtendMinutes,
		}),
		Auctions:  auction.NewAuctionService(repo, clk, recorder),
		Watchlist: watchlist.NewWatchlistService(repo, clk),
	}, server.Options{
		JWTSecret: testSecret,
		RateLimit: config.RateLimitConfig{Enabled: false},
	})

	return TestEnv{Router: router, Repo: repo, Clock: clk, Recorder: recorder}
}

// Token signs an access token for userID with role
func Token(t *testing.T, userID string, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, string(role), time.Hour)
	require.NoError(t, err)
	return tok.Token
}

// NewAuction returns an open auction owned by seller1 ending an hour after baseTime
func NewAuction(auctionID string, startingPrice int64) model.Auction {
	return model.Auction{
		AuctionID:     auctionID,
		SellerID:      "seller1",
		Title:         "Vehicle " + auctionID,
		StartingPrice: decimal.NewFromInt(startingPrice),
		CurrentPrice:  decimal.NewFromInt(startingPrice),
		EndTime:       baseTime.Add(time.Hour),
		CreatedAt:     baseTime,
	}
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return resp, w
}

// Data returns the envelope's data object
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	require.True(t, ok, "response data is not an object: %v", resp)
	return data
}
