package bidding

import (
	"context"
	"errors"
	"testing"
	"time"

	"vehicle-auction/internal/auctionerrors"
	"vehicle-auction/internal/clock"
	"vehicle-auction/internal/events"
	model "vehicle-auction/internal/models"
	"vehicle-auction/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// Helper to create an open auction as stored
func openAuction(auctionID string, currentPrice int64) model.Auction {
	return model.Auction{
		AuctionID:     auctionID,
		SellerID:      "seller1",
		Title:         "2018 Toyota Corolla",
		StartingPrice: dec(1000),
		CurrentPrice:  dec(currentPrice),
		EndTime:       testNow.Add(time.Hour),
		CreatedAt:     testNow.Add(-time.Hour),
	}
}

// Helper wiring WithTx on the mock store to run fn against the mock transaction
func expectTx(mockRepo *repository.MockAuctionDB, mockTx *repository.MockAuctionTx) {
	mockRepo.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, fn func(repository.AuctionTx) error) error {
			return fn(mockTx)
		})
}

// Tests PlaceBid
func TestBiddingService_PlaceBid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		auctionID     string
		bidderID      string
		amount        decimal.Decimal
		stored        *model.Auction
		lockErr       error
		insertErr     error
		expectSave    bool
		expectedError error
	}{
		{
			name:       "valid_first_bid",
			auctionID:  "a1",
			bidderID:   "user1",
			amount:     dec(1100),
			stored:     ptr(openAuction("a1", 1000)),
			expectSave: true,
		},
		{
			name:       "leader_may_raise_own_bid",
			auctionID:  "a1",
			bidderID:   "user1",
			amount:     dec(1300),
			stored:     ptr(openAuction("a1", 1200)),
			expectSave: true,
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			bidderID:      "user1",
			amount:        dec(1100),
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:          "empty_bidderID",
			auctionID:     "a1",
			bidderID:      "",
			amount:        dec(1100),
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:          "zero_amount",
			auctionID:     "a1",
			bidderID:      "user1",
			amount:        decimal.Zero,
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:          "negative_amount",
			auctionID:     "a1",
			bidderID:      "user1",
			amount:        dec(-50),
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:       "whole_cents_accepted",
			auctionID:  "a1",
			bidderID:   "user1",
			amount:     decimal.RequireFromString("1000.50"),
			stored:     ptr(openAuction("a1", 1000)),
			expectSave: true,
		},
		{
			name:          "sub_cent_amount",
			auctionID:     "a1",
			bidderID:      "user1",
			amount:        decimal.RequireFromString("1000.001"),
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:          "amount_beyond_storable_range",
			auctionID:     "a1",
			bidderID:      "user1",
			amount:        decimal.New(1, 12),
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:          "auction_not_found",
			auctionID:     "missing",
			bidderID:      "user1",
			amount:        dec(1100),
			lockErr:       auctionerrors.ErrAuctionNotFound,
			expectedError: auctionerrors.ErrAuctionNotFound,
		},
		{
			name:      "auction_closed",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    dec(5000),
			stored: ptr(func() model.Auction {
				a := openAuction("a1", 1000)
				a.IsClosed = true
				return a
			}()),
			expectedError: auctionerrors.ErrAuctionEnded,
		},
		{
			name:      "deadline_reached",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    dec(5000),
			stored: ptr(func() model.Auction {
				a := openAuction("a1", 1000)
				a.EndTime = testNow
				return a
			}()),
			expectedError: auctionerrors.ErrAuctionEnded,
		},
		{
			name:      "ended_wins_over_paused",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    dec(5000),
			stored: ptr(func() model.Auction {
				a := openAuction("a1", 1000)
				a.EndTime = testNow.Add(-time.Minute)
				a.IsPaused = true
				return a
			}()),
			expectedError: auctionerrors.ErrAuctionEnded,
		},
		{
			name:      "auction_paused",
			auctionID: "a1",
			bidderID:  "user1",
			amount:    dec(5000),
			stored: ptr(func() model.Auction {
				a := openAuction("a1", 1000)
				a.IsPaused = true
				return a
			}()),
			expectedError: auctionerrors.ErrAuctionPaused,
		},
		{
			name:          "bid_equal_to_current_price",
			auctionID:     "a1",
			bidderID:      "user2",
			amount:        dec(1100),
			stored:        ptr(openAuction("a1", 1100)),
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:          "bid_below_current_price",
			auctionID:     "a1",
			bidderID:      "user2",
			amount:        dec(1050),
			stored:        ptr(openAuction("a1", 1100)),
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:          "seller_bids_on_own_auction",
			auctionID:     "a1",
			bidderID:      "seller1",
			amount:        dec(1500),
			stored:        ptr(openAuction("a1", 1000)),
			expectedError: auctionerrors.ErrSellerCannotBid,
		},
		{
			name:          "seller_low_bid_reports_too_low_first",
			auctionID:     "a1",
			bidderID:      "seller1",
			amount:        dec(900),
			stored:        ptr(openAuction("a1", 1000)),
			expectedError: auctionerrors.ErrBidTooLow,
		},
		{
			name:          "insert_fails",
			auctionID:     "a1",
			bidderID:      "user3",
			amount:        dec(1200),
			stored:        ptr(openAuction("a1", 1000)),
			insertErr:     errors.New("repo write failed"),
			expectedError: nil, // wrapped store error, no specific kind
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			mockTx := repository.NewMockAuctionTx(ctrl)
			service := NewBiddingService(mockRepo, clock.NewFake(testNow), events.Noop{}, Options{})

			if tc.stored != nil || tc.lockErr != nil {
				expectTx(mockRepo, mockTx)
				stored := model.Auction{}
				if tc.stored != nil {
					stored = *tc.stored
				}
				mockTx.EXPECT().LockAuction(gomock.Any(), tc.auctionID).Return(stored, tc.lockErr)
			}
			if tc.expectSave || tc.insertErr != nil {
				mockTx.EXPECT().InsertBid(gomock.Any(), gomock.Any()).Return(tc.insertErr)
			}
			var saved model.Auction
			if tc.expectSave {
				mockTx.EXPECT().SaveAuctionState(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, a model.Auction) error {
						saved = a
						return nil
					})
			}

			bid, err := service.PlaceBid(context.Background(), tc.auctionID, tc.bidderID, tc.amount)

			if tc.expectedError != nil || tc.insertErr != nil {
				require.Error(t, err)
				if tc.expectedError != nil {
					require.True(t, errors.Is(err, tc.expectedError), "expected error: %v, got: %v", tc.expectedError, err)
				}
				return
			}

			require.NoError(t, err)

			// Validate generated BidID
			_, parseErr := uuid.Parse(bid.BidID)
			require.NoError(t, parseErr, "BidID should be a valid UUID")

			require.Equal(t, tc.auctionID, bid.AuctionID)
			require.Equal(t, tc.bidderID, bid.BidderID)
			require.True(t, tc.amount.Equal(bid.Amount))
			require.Equal(t, testNow, bid.PlacedAt)

			// price moves with the bid; the deadline does not
			require.True(t, tc.amount.Equal(saved.CurrentPrice))
			require.Equal(t, tc.stored.EndTime, saved.EndTime)
		})
	}
}

// Tests the rejection message carries the price to beat
func TestBiddingService_PlaceBid_TooLowCarriesPrice(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)
	mockTx := repository.NewMockAuctionTx(ctrl)
	service := NewBiddingService(mockRepo, clock.NewFake(testNow), nil, Options{})

	expectTx(mockRepo, mockTx)
	mockTx.EXPECT().LockAuction(gomock.Any(), "a1").Return(openAuction("a1", 1100), nil)

	_, err := service.PlaceBid(context.Background(), "a1", "user2", dec(1050))

	var tooLow *auctionerrors.BidTooLowError
	require.True(t, errors.As(err, &tooLow))
	require.Equal(t, "1100.00", tooLow.CurrentPrice.StringFixed(2))
	require.Contains(t, err.Error(), "must be higher than current price of 1100.00")
}

// Tests anti-snipe extension
func TestBiddingService_PlaceBid_AntiSnipe(t *testing.T) {
	t.Parallel()

	opts := Options{AntiSnipeWindow: 2 * time.Minute, AntiSnipeExtension: 5 * time.Minute}

	tests := []struct {
		name        string
		endTime     time.Time
		wantEndTime time.Time
	}{
		{name: "inside_window_extends", endTime: testNow.Add(time.Minute), wantEndTime: testNow.Add(5 * time.Minute)},
		{name: "window_edge_extends", endTime: testNow.Add(2 * time.Minute), wantEndTime: testNow.Add(5 * time.Minute)},
		{name: "outside_window_unchanged", endTime: testNow.Add(3 * time.Minute), wantEndTime: testNow.Add(3 * time.Minute)},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			mockTx := repository.NewMockAuctionTx(ctrl)
			recorder := &events.Recorder{}
			service := NewBiddingService(mockRepo, clock.NewFake(testNow), recorder, opts)

			stored := openAuction("a1", 1000)
			stored.EndTime = tc.endTime

			expectTx(mockRepo, mockTx)
			mockTx.EXPECT().LockAuction(gomock.Any(), "a1").Return(stored, nil)
			mockTx.EXPECT().InsertBid(gomock.Any(), gomock.Any()).Return(nil)
			mockTx.EXPECT().SaveAuctionState(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, a model.Auction) error {
					require.Equal(t, tc.wantEndTime, a.EndTime)
					return nil
				})

			_, err := service.PlaceBid(context.Background(), "a1", "user1", dec(1100))
			require.NoError(t, err)

			placed := recorder.OfType(events.TypeBidPlaced)
			require.Len(t, placed, 1)
			if tc.wantEndTime.Equal(tc.endTime) {
				require.Nil(t, placed[0].EndTime)
			} else {
				require.NotNil(t, placed[0].EndTime)
				require.Equal(t, tc.wantEndTime, *placed[0].EndTime)
			}
		})
	}
}

// Tests GetBidsForAuction
func TestBiddingService_GetBidsForAuction(t *testing.T) {
	t.Parallel()

	bidsExample := []model.Bid{
		{BidID: "bid2", AuctionID: "a1", BidderID: "user2", Amount: dec(1200), PlacedAt: testNow.Add(time.Second)},
		{BidID: "bid1", AuctionID: "a1", BidderID: "user1", Amount: dec(1100), PlacedAt: testNow},
	}

	tests := []struct {
		name          string
		auctionID     string
		mockSetup     func(m *repository.MockAuctionDB)
		expectedError error
		expectedBids  []model.Bid
	}{
		{
			name:      "auction_with_bids",
			auctionID: "a1",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetBidsByAuction(gomock.Any(), "a1").Return(bidsExample, nil)
			},
			expectedBids: bidsExample,
		},
		{
			name:      "auction_no_bids",
			auctionID: "a2",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetBidsByAuction(gomock.Any(), "a2").Return([]model.Bid{}, nil)
			},
			expectedBids: []model.Bid{},
		},
		{
			name:          "empty_auctionID",
			auctionID:     "",
			mockSetup:     func(*repository.MockAuctionDB) {},
			expectedError: auctionerrors.ErrInvalidInput,
		},
		{
			name:      "unknown_auction",
			auctionID: "missing",
			mockSetup: func(m *repository.MockAuctionDB) {
				m.EXPECT().GetBidsByAuction(gomock.Any(), "missing").Return(nil, auctionerrors.ErrAuctionNotFound)
			},
			expectedError: auctionerrors.ErrAuctionNotFound,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			service := NewBiddingService(mockRepo, clock.NewFake(testNow), nil, Options{})
			tc.mockSetup(mockRepo)

			bids, err := service.GetBidsForAuction(context.Background(), tc.auctionID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedBids, bids)
		})
	}
}

// Tests GetLeadingBid
func TestBiddingService_GetLeadingBid(t *testing.T) {
	t.Parallel()

	leading := model.Bid{BidID: "bid2", AuctionID: "a1", BidderID: "user2", Amount: dec(1200), PlacedAt: testNow}

	tests := []struct {
		name          string
		auctionID     string
		leadErr       error
		lockErr       error
		expectedError error
	}{
		{name: "auction_with_bids", auctionID: "a1"},
		{name: "auction_no_bids", auctionID: "a1", leadErr: auctionerrors.ErrNoBids, expectedError: auctionerrors.ErrNoBids},
		{name: "unknown_auction", auctionID: "missing", lockErr: auctionerrors.ErrAuctionNotFound, expectedError: auctionerrors.ErrAuctionNotFound},
		{name: "empty_auctionID", auctionID: "", expectedError: auctionerrors.ErrInvalidInput},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			mockRepo := repository.NewMockAuctionDB(ctrl)
			mockTx := repository.NewMockAuctionTx(ctrl)
			service := NewBiddingService(mockRepo, clock.NewFake(testNow), nil, Options{})

			if tc.auctionID != "" {
				expectTx(mockRepo, mockTx)
				mockTx.EXPECT().LockAuction(gomock.Any(), tc.auctionID).Return(openAuction(tc.auctionID, 1200), tc.lockErr)
				if tc.lockErr == nil {
					mockTx.EXPECT().LeadingBid(gomock.Any(), tc.auctionID).Return(leading, tc.leadErr)
				}
			}

			bid, err := service.GetLeadingBid(context.Background(), tc.auctionID)
			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}
			require.NoError(t, err)
			require.Equal(t, leading, bid)
		})
	}
}

// Tests GetAuctionsByBidder
func TestBiddingService_GetAuctionsByBidder(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, clock.NewFake(testNow), nil, Options{})

	auctions := []model.Auction{openAuction("a1", 1000), openAuction("a2", 1500)}
	mockRepo.EXPECT().GetAuctionsByBidder(gomock.Any(), "user1").Return(auctions, nil)
	mockRepo.EXPECT().GetAuctionsByBidder(gomock.Any(), "user2").Return(nil, errors.New("db down"))

	got, err := service.GetAuctionsByBidder(context.Background(), "user1")
	require.NoError(t, err)
	require.Equal(t, auctions, got)

	_, err = service.GetAuctionsByBidder(context.Background(), "user2")
	require.Error(t, err)

	_, err = service.GetAuctionsByBidder(context.Background(), "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidInput)
}

// Tests admin bid management permissions
func TestBiddingService_AdminOnly(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, clock.NewFake(testNow), nil, Options{})

	seller := model.Actor{UserID: "seller1", Role: model.RoleSeller}
	admin := model.Actor{UserID: "admin1", Role: model.RoleAdmin}

	_, err := service.ListBids(context.Background(), seller, model.BidFilter{})
	require.ErrorIs(t, err, auctionerrors.ErrForbidden)

	_, err = service.DeleteBid(context.Background(), seller, "bid1")
	require.ErrorIs(t, err, auctionerrors.ErrForbidden)

	_, err = service.DeleteBid(context.Background(), admin, "")
	require.ErrorIs(t, err, auctionerrors.ErrInvalidInput)

	filter := model.BidFilter{BidderID: "user1"}
	mockRepo.EXPECT().ListBids(gomock.Any(), filter).Return([]model.Bid{}, nil)
	bids, err := service.ListBids(context.Background(), admin, filter)
	require.NoError(t, err)
	require.Empty(t, bids)
}

func ptr[T any](v T) *T {
	return &v
}
