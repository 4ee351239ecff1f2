package integrationtests

import (
	"net/http"
	"testing"
	"time"

	model "vehicle-auction/internal/models"

	"github.com/stretchr/testify/require"
)

func TestWatchlistFlow(t *testing.T) {
	env := SetupTestEnv(t, NewAuction("auction1", 1000), NewAuction("auction2", 2000))
	user := Token(t, "user1", model.RoleBuyer)

	_, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/watchlist", user, map[string]any{"auction_id": "auction1"})
	require.Equal(t, http.StatusCreated, w.Code)

	env.Clock.Advance(time.Minute)
	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/watchlist", user, map[string]any{"auction_id": "auction2"})
	require.Equal(t, http.StatusCreated, w.Code)

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/watchlist", user, map[string]any{"auction_id": "auction1"})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "already_watching", resp["code"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/watchlist", user, map[string]any{"auction_id": "nonexistent"})
	require.Equal(t, http.StatusNotFound, w.Code)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/watchlist", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := resp["data"].([]any)
	require.Len(t, entries, 2)
	require.Equal(t, "auction2", entries[0].(map[string]any)["auction_id"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/watchlist/check/auction1", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, Data(t, resp)["is_watching"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, "/watchlist/auction1", user, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, "/watchlist/auction1", user, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "not_watching", resp["code"])

	resp, _ = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/watchlist/check/auction1", user, nil)
	require.Equal(t, false, Data(t, resp)["is_watching"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/watchlist", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAuctionsFilters(t *testing.T) {
	paused := NewAuction("paused", 1000)
	paused.IsPaused = true
	other := NewAuction("other", 1000)
	other.SellerID = "seller2"
	other.Title = "Red Mazda"
	env := SetupTestEnv(t, NewAuction("open", 1000), paused, other)

	tests := []struct {
		query   string
		wantIDs []string
	}{
		{query: "", wantIDs: []string{"open", "paused", "other"}},
		{query: "?status=paused", wantIDs: []string{"paused"}},
		{query: "?status=active", wantIDs: []string{"open", "other"}},
		{query: "?seller_id=seller2", wantIDs: []string{"other"}},
		{query: "?q=mazda", wantIDs: []string{"other"}},
	}

	for _, tt := range tests {
		t.Run("query"+tt.query, func(t *testing.T) {
			resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/auctions"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code)

			ids := []string{}
			for _, a := range resp["data"].([]any) {
				ids = append(ids, a.(map[string]any)["auction_id"].(string))
			}
			require.ElementsMatch(t, tt.wantIDs, ids)
		})
	}
}

func TestHealthz(t *testing.T) {
	env := SetupTestEnv(t)
	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", Data(t, resp)["status"])
}
