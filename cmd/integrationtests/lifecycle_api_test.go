package integrationtests

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"vehicle-auction/internal/events"
	model "vehicle-auction/internal/models"

	"github.com/stretchr/testify/require"
)

// A listing from creation to sale, driven entirely over HTTP
func TestAuctionLifecycleFlow(t *testing.T) {
	env := SetupTestEnv(t)
	seller := Token(t, "seller1", model.RoleSeller)
	buyer1 := Token(t, "buyer1", model.RoleBuyer)
	buyer2 := Token(t, "buyer2", model.RoleBuyer)

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auctions", seller, map[string]any{
		"title":          "2019 Toyota Hilux",
		"make":           "Toyota",
		"model":          "Hilux",
		"year":           2019,
		"starting_price": "20000",
		"end_time":       baseTime.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	auctionID := Data(t, resp)["auction_id"].(string)
	require.NotEmpty(t, auctionID)

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auctions", buyer1, map[string]any{
		"title": "Not mine to sell", "starting_price": "1", "end_time": baseTime.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusForbidden, w.Code)

	bid := func(token, amount string) (map[string]any, int) {
		resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", token, map[string]any{"auction_id": auctionID, "amount": amount})
		return resp, w.Code
	}

	_, code := bid(buyer1, "21000")
	require.Equal(t, http.StatusCreated, code)

	// seller pauses, bidding is rejected, seller resumes
	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/pause/"+auctionID, seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, true, Data(t, resp)["is_paused"])

	resp, code = bid(buyer2, "22000")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "auction_paused", resp["code"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/pause/"+auctionID, buyer2, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/pause/"+auctionID, seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, Data(t, resp)["is_paused"])

	_, code = bid(buyer2, "22000")
	require.Equal(t, http.StatusCreated, code)

	// extend by the default five minutes, then by thirty
	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/extend/"+auctionID, seller, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, baseTime.Add(65*time.Minute).Format(time.RFC3339), Data(t, resp)["new_end_time"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/extend/"+auctionID, seller, map[string]any{"extend_minutes": 30})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, baseTime.Add(95*time.Minute).Format(time.RFC3339), Data(t, resp)["new_end_time"])

	// the deadline passes
	env.Clock.Set(baseTime.Add(95 * time.Minute))
	resp, code = bid(buyer1, "30000")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "auction_ended", resp["code"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/auction/status/"+auctionID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ended", Data(t, resp)["status"])
	require.Equal(t, false, Data(t, resp)["is_active"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/close-ended", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.EqualValues(t, 1, Data(t, resp)["closed"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/auctions/"+auctionID+"/winner", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "buyer2", Data(t, resp)["user_id"])
	require.Equal(t, "22000", Data(t, resp)["final_price"])

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/auction/status/"+auctionID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "sold", Data(t, resp)["status"])

	// rerunning the sweep is a no-op and closed auctions stay frozen
	resp, _ = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/close-ended", "", nil)
	require.EqualValues(t, 0, Data(t, resp)["closed"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/extend/"+auctionID, seller, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/auction/pause/"+auctionID, seller, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, env.Recorder.OfType(events.TypeBidPlaced), 2)
	require.Len(t, env.Recorder.OfType(events.TypeAuctionClosed), 1)
}

func TestAdminCloseHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		seedBid    bool
		wantSold   bool
		wantWinner bool
	}{
		{name: "Mark_As_Sold_With_Bids", body: map[string]any{"mark_as_sold": true}, seedBid: true, wantSold: true, wantWinner: true},
		{name: "Mark_As_Sold_Without_Bids", body: map[string]any{"mark_as_sold": true}, seedBid: false},
		{name: "Close_Unsold_By_Default", body: nil, seedBid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := SetupTestEnv(t, NewAuction("auction1", 1000))
			admin := Token(t, "admin1", model.RoleAdmin)
			if tt.seedBid {
				_, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", Token(t, "user1", model.RoleBuyer),
					map[string]any{"auction_id": "auction1", "amount": "1500"})
				require.Equal(t, http.StatusCreated, w.Code)
			}

			resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/admin/auction/close/auction1", admin, tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			data := Data(t, resp)
			require.Equal(t, true, data["is_closed"])
			require.Equal(t, tt.wantSold, data["is_sold"])

			_, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/auctions/auction1/winner", "", nil)
			if tt.wantWinner {
				require.Equal(t, http.StatusOK, w.Code)
				return
			}
			require.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := SetupTestEnv(t, NewAuction("auction1", 1000))

	routes := []struct {
		method string
		path   string
	}{
		{method: http.MethodPost, path: "/admin/auction/close/auction1"},
		{method: http.MethodPost, path: "/admin/auction/pause/auction1"},
		{method: http.MethodGet, path: "/admin/bids"},
		{method: http.MethodDelete, path: "/admin/bids/b1"},
		{method: http.MethodDelete, path: "/admin/auctions/auction1"},
	}

	seller := Token(t, "seller1", model.RoleSeller)
	for _, r := range routes {
		t.Run(r.method+"_"+r.path, func(t *testing.T) {
			_, w := ExecuteRequestAndParse(t, env.Router, r.method, r.path, seller, nil)
			require.Equal(t, http.StatusForbidden, w.Code)

			_, w = ExecuteRequestAndParse(t, env.Router, r.method, r.path, "", nil)
			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAdminBidManagement(t *testing.T) {
	env := SetupTestEnv(t, NewAuction("auction1", 1000))
	admin := Token(t, "admin1", model.RoleAdmin)

	var lastBidID string
	for i, amount := range []string{"1100", "1300"} {
		env.Clock.Advance(time.Second)
		resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodPost, "/bids", Token(t, fmt.Sprintf("user%d", i+1), model.RoleBuyer),
			map[string]any{"auction_id": "auction1", "amount": amount})
		require.Equal(t, http.StatusCreated, w.Code)
		lastBidID = Data(t, resp)["bid_id"].(string)
	}

	resp, w := ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/admin/bids?auction_id=auction1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, resp["data"].([]any), 2)

	resp, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, "/admin/bids/"+lastBidID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "1100", Data(t, resp)["current_price"])

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, "/admin/bids/"+lastBidID, admin, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodDelete, "/admin/auctions/auction1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, w = ExecuteRequestAndParse(t, env.Router, http.MethodGet, "/auctions/auction1", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}
