package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"roundbets/metrics"
	"roundbets/models"
	"roundbets/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	adminToken  = "admin-token"
	playerToken = "player-token"
)

var (
	admin  = &models.Actor{UserID: "user-admin", Name: "Admin", Email: "admin@example.com"}
	player = &models.Actor{UserID: "user-player", Name: "Player", Email: "player@example.com"}
)

type testServer struct {
	handler http.Handler
	wagers  *mockWagerService
	rounds  *mockRoundService
	stats   *mockStatsService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		wagers:  new(mockWagerService),
		rounds:  new(mockRoundService),
		stats:   new(mockStatsService),
		metrics: metrics.New(prometheus.NewRegistry()),
	}
	sessions := stubSessions{adminToken: admin, playerToken: player}
	ts.handler = NewServer(sessions, ts.wagers, ts.rounds, ts.stats, ts.metrics).Router()
	t.Cleanup(func() {
		ts.wagers.AssertExpectations(t)
		ts.rounds.AssertExpectations(t)
		ts.stats.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func openRound(id string) *models.Round {
	return &models.Round{
		ID:        id,
		Title:     "Who wins?",
		OptionA:   "Red",
		OptionB:   "Blue",
		Status:    models.RoundStatusOpen,
		CreatedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestListRounds(t *testing.T) {
	ts := newTestServer(t)
	ts.rounds.On("ListRounds", mock.Anything).Return([]*models.RoundSummary{
		{Round: openRound("round-1"), BetCount: 2, PoolA: 40, PoolB: 60},
	}, nil)

	rec := ts.do(http.MethodGet, "/api/rounds", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rounds := decodeBody[[]roundResponse](t, rec)
	require.Len(t, rounds, 1)
	assert.Equal(t, "round-1", rounds[0].ID)
	assert.Equal(t, models.RoundStateOpen, rounds[0].State)
	assert.Equal(t, 2, rounds[0].BetCount)
	assert.Equal(t, int64(100), rounds[0].TotalPool)

	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.HTTPRequests.WithLabelValues("/api/rounds", http.MethodGet, "200")))
}

func TestCreateRound(t *testing.T) {
	ts := newTestServer(t)
	params := models.NewRound{Title: "Who wins?", OptionA: "Red", OptionB: "Blue"}
	ts.rounds.On("CreateRound", mock.Anything, admin, params).Return(openRound("round-1"), nil)

	rec := ts.do(http.MethodPost, "/api/rounds", adminToken, `{"title":"Who wins?","optionA":"Red","optionB":"Blue"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "round-1", decodeBody[roundResponse](t, rec).ID)
}

func TestCreateRound_Anonymous(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/rounds", "", `{"title":"x","optionA":"a","optionB":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.ErrUnauthorized.Message, decodeBody[errorResponse](t, rec).Error)
}

func TestCreateRound_UnknownTokenIsAnonymous(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/rounds", "stale-token", `{"title":"x","optionA":"a","optionB":"b"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateRound_Forbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.rounds.On("CreateRound", mock.Anything, player, mock.Anything).Return(nil, service.ErrForbidden)

	rec := ts.do(http.MethodPost, "/api/rounds", playerToken, `{"title":"x","optionA":"a","optionB":"b"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRound_SessionCookie(t *testing.T) {
	ts := newTestServer(t)
	ts.rounds.On("CreateRound", mock.Anything, admin, mock.Anything).Return(openRound("round-1"), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/rounds", strings.NewReader(`{"title":"x","optionA":"a","optionB":"b"}`))
	req.AddCookie(&http.Cookie{Name: "session_token", Value: adminToken})
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSetRoundLock(t *testing.T) {
	ts := newTestServer(t)
	locked := openRound("round-1")
	locked.Locked = true
	ts.rounds.On("SetRoundLock", mock.Anything, admin, "round-1", true).Return(locked, nil)

	rec := ts.do(http.MethodPost, "/api/rounds/round-1/lock", adminToken, `{"locked":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RoundStateLocked, decodeBody[roundResponse](t, rec).State)
}

func TestSetRoundLock_MissingLocked(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/rounds/round-1/lock", adminToken, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "locked is required", decodeBody[errorResponse](t, rec).Error)
}

func TestSetRoundLock_SettledRound(t *testing.T) {
	ts := newTestServer(t)
	ts.rounds.On("SetRoundLock", mock.Anything, admin, "round-1", false).Return(nil, service.ErrInvalidLifecycleTransition)

	rec := ts.do(http.MethodPost, "/api/rounds/round-1/lock", adminToken, `{"locked":false}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettleRound(t *testing.T) {
	ts := newTestServer(t)
	round := openRound("round-1")
	round.Status = models.RoundStatusSettled
	winner := models.OptionA
	round.Winner = &winner

	winning := &models.Bet{ID: "bet-1", UserID: "user-1", RoundID: "round-1", Option: models.OptionA, Amount: 40}
	losing := &models.Bet{ID: "bet-2", UserID: "user-2", RoundID: "round-1", Option: models.OptionB, Amount: 60}
	ts.rounds.On("SettleRound", mock.Anything, admin, "round-1", models.OptionA).Return(&models.SettlementResult{
		Round:       round,
		Winner:      models.OptionA,
		TotalPool:   100,
		WinningPool: 40,
		Winners:     []*models.Bet{winning},
		Losers:      []*models.Bet{losing},
		Payouts:     map[string]int64{"bet-1": 100, "bet-2": 0},
	}, nil)

	rec := ts.do(http.MethodPost, "/api/rounds/round-1/complete", adminToken, `{"winningOption":"A"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[settlementResponse](t, rec)
	assert.Equal(t, int64(100), resp.TotalPaidOut)
	assert.Equal(t, models.RoundStateSettled, resp.Round.State)
	require.Len(t, resp.Payouts, 2)
	assert.Equal(t, payoutResponse{BetID: "bet-1", UserID: "user-1", Option: models.OptionA, Amount: 40, Payout: 100}, resp.Payouts[0])
	assert.Equal(t, int64(0), resp.Payouts[1].Payout)
}

func TestSettleRound_AlreadySettled(t *testing.T) {
	ts := newTestServer(t)
	ts.rounds.On("SettleRound", mock.Anything, admin, "round-1", models.OptionB).Return(nil, service.ErrRoundNotActive)

	rec := ts.do(http.MethodPost, "/api/rounds/round-1/complete", adminToken, `{"winningOption":"B"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettleRound_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.rounds.On("SettleRound", mock.Anything, admin, "missing", models.OptionA).Return(nil, service.ErrRoundNotFound)

	rec := ts.do(http.MethodPost, "/api/rounds/missing/complete", adminToken, `{"winningOption":"A"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceBet(t *testing.T) {
	ts := newTestServer(t)
	ts.wagers.On("PlaceBet", mock.Anything, player, "round-1", models.OptionA, int64(30)).Return(&models.Bet{
		ID: "bet-1", UserID: player.UserID, RoundID: "round-1", Option: models.OptionA, Amount: 30,
	}, nil)

	rec := ts.do(http.MethodPost, "/api/bet", playerToken, `{"roundId":"round-1","option":"A","amount":30}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	bet := decodeBody[models.Bet](t, rec)
	assert.Equal(t, "bet-1", bet.ID)
	assert.Nil(t, bet.Payout)
	assert.Equal(t, float64(1), testutil.ToFloat64(ts.metrics.BetsPlaced))
	assert.Equal(t, float64(30), testutil.ToFloat64(ts.metrics.CreditsStaked))
}

func TestPlaceBet_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid amount", service.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid option", service.ErrInvalidOption, http.StatusBadRequest},
		{"round not bettable", service.ErrRoundNotBettable, http.StatusConflict},
		{"duplicate bet", service.ErrDuplicateBet, http.StatusConflict},
		{"insufficient credits", service.ErrInsufficientCredits, http.StatusConflict},
		{"user not found", service.ErrUserNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.wagers.On("PlaceBet", mock.Anything, player, "round-1", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := ts.do(http.MethodPost, "/api/bet", playerToken, `{"roundId":"round-1","option":"A","amount":30}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, float64(0), testutil.ToFloat64(ts.metrics.BetsPlaced))
		})
	}
}

func TestPlaceBet_MissingRoundIDIsNotBettable(t *testing.T) {
	ts := newTestServer(t)
	ts.wagers.On("PlaceBet", mock.Anything, player, "", models.OptionA, int64(30)).Return(nil, service.ErrRoundNotBettable)

	rec := ts.do(http.MethodPost, "/api/bet", playerToken, `{"option":"A","amount":30}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.ErrRoundNotBettable.Message, decodeBody[errorResponse](t, rec).Error)
}

func TestPlaceBet_AmountValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"fractional amount", `{"roundId":"round-1","option":"A","amount":1.5}`},
		{"zero amount", `{"roundId":"round-1","option":"A","amount":0}`},
		{"negative amount", `{"roundId":"round-1","option":"A","amount":-5}`},
		{"missing amount", `{"roundId":"round-1","option":"A"}`},
		{"zero amount without round", `{"option":"A","amount":0}`},
		{"zero amount with bad option", `{"option":"C","amount":0}`},
	}

	// The real wager service rejects these before opening a transaction
	sessions := stubSessions{playerToken: player}
	handler := NewServer(sessions, service.NewWagerService(nil), new(mockRoundService), new(mockStatsService), nil).Router()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/bet", strings.NewReader(tt.body))
			req.Header.Set("Authorization", "Bearer "+playerToken)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, service.ErrInvalidAmount.Message, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestPlaceBet_InvalidOptionAfterAmount(t *testing.T) {
	sessions := stubSessions{playerToken: player}
	handler := NewServer(sessions, service.NewWagerService(nil), new(mockRoundService), new(mockStatsService), nil).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/bet", strings.NewReader(`{"roundId":"round-1","option":"C","amount":10}`))
	req.Header.Set("Authorization", "Bearer "+playerToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.ErrInvalidOption.Message, decodeBody[errorResponse](t, rec).Error)
}

func TestPlaceBet_InternalErrorIsGeneric(t *testing.T) {
	ts := newTestServer(t)
	ts.wagers.On("PlaceBet", mock.Anything, player, "round-1", models.OptionA, int64(30)).
		Return(nil, errors.New("failed to deduct credits: connection reset"))

	rec := ts.do(http.MethodPost, "/api/bet", playerToken, `{"roundId":"round-1","option":"A","amount":30}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, internalErrorMessage, decodeBody[errorResponse](t, rec).Error)
}

func TestProfile(t *testing.T) {
	ts := newTestServer(t)
	payout := int64(0)
	ts.stats.On("GetUserProfile", mock.Anything, player).Return(&models.UserProfile{
		User: &models.User{ID: player.UserID, Name: "Player", Email: player.Email, Credits: 70},
		Bets: []*models.Bet{{ID: "bet-1", RoundID: "round-1", Option: models.OptionB, Amount: 30, Payout: &payout}},
		Ledger: []*models.LedgerEntry{
			{ID: 1, UserID: player.UserID, CreditsBefore: 0, CreditsAfter: 100, ChangeAmount: 100, EntryType: models.LedgerEntryInitialGrant},
		},
		Totals: models.BetTotals{
			TotalBets: 1, TotalBetAmount: 30, TotalPayout: 0, NetProfit: -30,
		},
	}, nil)

	rec := ts.do(http.MethodGet, "/api/profile", playerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[profileResponse](t, rec)
	assert.Equal(t, int64(70), resp.User.Credits)
	assert.Len(t, resp.Bets, 1)
	require.Len(t, resp.Ledger, 1)
	assert.Equal(t, models.LedgerEntryInitialGrant, resp.Ledger[0].EntryType)
	assert.Equal(t, int64(-30), resp.Totals.NetProfit)
}

func TestProfile_Anonymous(t *testing.T) {
	ts := newTestServer(t)
	ts.stats.On("GetUserProfile", mock.Anything, (*models.Actor)(nil)).Return(nil, service.ErrUnauthorized)

	rec := ts.do(http.MethodGet, "/api/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	ts.stats.On("GetLeaderboard", mock.Anything, admin).Return([]*models.LeaderboardEntry{
		{Rank: 1, UserID: "user-1", Name: "One", Credits: 160, Totals: models.BetTotals{TotalBets: 1, TotalBetAmount: 40, TotalPayout: 100, NetProfit: 60}},
		{Rank: 2, UserID: "user-2", Name: "Two", Credits: 40},
	}, nil)

	rec := ts.do(http.MethodGet, "/api/leaderboard", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, float64(1), entries[0]["rank"])
	assert.Equal(t, float64(60), entries[0]["netProfit"])
	assert.Equal(t, float64(40), entries[1]["credits"])
}

func TestLeaderboard_Forbidden(t *testing.T) {
	ts := newTestServer(t)
	ts.stats.On("GetLeaderboard", mock.Anything, player).Return(nil, service.ErrForbidden)

	rec := ts.do(http.MethodGet, "/api/leaderboard", playerToken, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/rounds", adminToken, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
