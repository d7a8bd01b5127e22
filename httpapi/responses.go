package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"roundbets/models"
	"roundbets/service"

	log "github.com/sirupsen/logrus"
)

const internalErrorMessage = "internal error"

type errorResponse struct {
	Error string `json:"error"`
}

type roundResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	OptionA     string             `json:"optionA"`
	OptionB     string             `json:"optionB"`
	Status      models.RoundStatus `json:"status"`
	State       models.RoundState  `json:"state"`
	Locked      bool               `json:"locked"`
	Winner      *models.Option     `json:"winner"`
	CreatedAt   time.Time          `json:"createdAt"`
	SettledAt   *time.Time         `json:"settledAt"`
	BetCount    int                `json:"betCount"`
	PoolA       int64              `json:"poolA"`
	PoolB       int64              `json:"poolB"`
	TotalPool   int64              `json:"totalPool"`
}

func newRoundResponse(r *models.Round) roundResponse {
	return roundResponse{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		OptionA:     r.OptionA,
		OptionB:     r.OptionB,
		Status:      r.Status,
		State:       r.State(),
		Locked:      r.Locked,
		Winner:      r.Winner,
		CreatedAt:   r.CreatedAt,
		SettledAt:   r.SettledAt,
	}
}

func newRoundSummaryResponse(s *models.RoundSummary) roundResponse {
	resp := newRoundResponse(s.Round)
	resp.BetCount = s.BetCount
	resp.PoolA = s.PoolA
	resp.PoolB = s.PoolB
	resp.TotalPool = s.TotalPool()
	return resp
}

type payoutResponse struct {
	BetID  string        `json:"betId"`
	UserID string        `json:"userId"`
	Option models.Option `json:"option"`
	Amount int64         `json:"amount"`
	Payout int64         `json:"payout"`
}

type settlementResponse struct {
	Round        roundResponse    `json:"round"`
	Winner       models.Option    `json:"winner"`
	TotalPool    int64            `json:"totalPool"`
	WinningPool  int64            `json:"winningPool"`
	TotalPaidOut int64            `json:"totalPaidOut"`
	Residual     int64            `json:"residual"`
	NoWinners    bool             `json:"noWinners"`
	Payouts      []payoutResponse `json:"payouts"`
}

func newSettlementResponse(res *models.SettlementResult) settlementResponse {
	resp := settlementResponse{
		Round:        newRoundResponse(res.Round),
		Winner:       res.Winner,
		TotalPool:    res.TotalPool,
		WinningPool:  res.WinningPool,
		TotalPaidOut: res.TotalPaidOut(),
		Residual:     res.Residual,
		NoWinners:    res.NoWinners,
		Payouts:      make([]payoutResponse, 0, len(res.Winners)+len(res.Losers)),
	}
	for _, group := range [][]*models.Bet{res.Winners, res.Losers} {
		for _, b := range group {
			resp.Payouts = append(resp.Payouts, payoutResponse{
				BetID:  b.ID,
				UserID: b.UserID,
				Option: b.Option,
				Amount: b.Amount,
				Payout: res.Payouts[b.ID],
			})
		}
	}
	sort.SliceStable(resp.Payouts, func(i, j int) bool {
		return resp.Payouts[i].BetID < resp.Payouts[j].BetID
	})
	return resp
}

type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Credits int64  `json:"credits"`
}

type ledgerEntryResponse struct {
	ChangeAmount  int64                  `json:"changeAmount"`
	CreditsBefore int64                  `json:"creditsBefore"`
	CreditsAfter  int64                  `json:"creditsAfter"`
	EntryType     models.LedgerEntryType `json:"entryType"`
	RoundID       *string                `json:"roundId"`
	BetID         *string                `json:"betId"`
	CreatedAt     time.Time              `json:"createdAt"`
}

type profileResponse struct {
	User   userResponse          `json:"user"`
	Bets   []*models.Bet         `json:"bets"`
	Ledger []ledgerEntryResponse `json:"ledger"`
	Totals models.BetTotals      `json:"totals"`
}

type leaderboardEntryResponse struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Credits int64  `json:"credits"`
	models.BetTotals
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func statusFor(category service.ErrorCategory) int {
	switch category {
	case service.CategoryUnauthenticated:
		return http.StatusUnauthorized
	case service.CategoryForbidden:
		return http.StatusForbidden
	case service.CategoryNotFound:
		return http.StatusNotFound
	case service.CategoryValidation:
		return http.StatusBadRequest
	case service.CategoryConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to a status. Internal failures are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var domainErr *service.Error
	if errors.As(err, &domainErr) && domainErr.Kind != service.KindInternal {
		writeJSON(w, statusFor(domainErr.Kind.Category()), errorResponse{Error: domainErr.Message})
		return
	}

	log.WithFields(log.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"error":  err,
	}).Error("Request failed")
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
}
