package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"roundbets/models"
	"roundbets/service"

	"github.com/gorilla/mux"
)

type createRoundRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OptionA     string `json:"optionA"`
	OptionB     string `json:"optionB"`
}

type lockRequest struct {
	Locked *bool `json:"locked"`
}

type completeRequest struct {
	WinningOption string `json:"winningOption"`
}

type placeBetRequest struct {
	RoundID string      `json:"roundId"`
	Option  string      `json:"option"`
	Amount  json.Number `json:"amount"`
}

// parseAmount accepts only whole numbers. A missing amount reads as 0 so the
// service reports it with the other admission checks.
func parseAmount(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	amount, err := n.Int64()
	if err != nil {
		return 0, service.ErrInvalidAmount
	}
	return amount, nil
}

var errMalformedBody = &service.Error{Kind: service.KindMissingField, Message: "request body must be valid JSON"}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errMalformedBody
	}
	return nil
}

func (s *Server) listRounds(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.rounds.ListRounds(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]roundResponse, 0, len(summaries))
	for _, summary := range summaries {
		resp = append(resp, newRoundSummaryResponse(summary))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createRound(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor == nil {
		writeError(w, r, service.ErrUnauthorized)
		return
	}

	var req createRoundRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	round, err := s.rounds.CreateRound(r.Context(), actor, models.NewRound{
		Title:       req.Title,
		Description: req.Description,
		OptionA:     req.OptionA,
		OptionB:     req.OptionB,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newRoundResponse(round))
}

func (s *Server) setRoundLock(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor == nil {
		writeError(w, r, service.ErrUnauthorized)
		return
	}

	var req lockRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Locked == nil {
		writeError(w, r, &service.Error{Kind: service.KindMissingField, Message: "locked is required"})
		return
	}

	round, err := s.rounds.SetRoundLock(r.Context(), actor, mux.Vars(r)["id"], *req.Locked)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRoundResponse(round))
}

func (s *Server) settleRound(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor == nil {
		writeError(w, r, service.ErrUnauthorized)
		return
	}

	var req completeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	winner := models.Option(strings.TrimSpace(req.WinningOption))
	result, err := s.rounds.SettleRound(r.Context(), actor, mux.Vars(r)["id"], winner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettlementResponse(result))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor == nil {
		writeError(w, r, service.ErrUnauthorized)
		return
	}

	var req placeBetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	bet, err := s.wagers.PlaceBet(r.Context(), actor, strings.TrimSpace(req.RoundID), models.Option(req.Option), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveBet(bet.Amount)
	}
	writeJSON(w, http.StatusCreated, bet)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.stats.GetUserProfile(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	bets := profile.Bets
	if bets == nil {
		bets = []*models.Bet{}
	}
	ledger := make([]ledgerEntryResponse, 0, len(profile.Ledger))
	for _, e := range profile.Ledger {
		ledger = append(ledger, ledgerEntryResponse{
			ChangeAmount:  e.ChangeAmount,
			CreditsBefore: e.CreditsBefore,
			CreditsAfter:  e.CreditsAfter,
			EntryType:     e.EntryType,
			RoundID:       e.RoundID,
			BetID:         e.BetID,
			CreatedAt:     e.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, profileResponse{
		User: userResponse{
			ID:      profile.User.ID,
			Name:    profile.User.Name,
			Email:   profile.User.Email,
			Credits: profile.User.Credits,
		},
		Bets:   bets,
		Ledger: ledger,
		Totals: profile.Totals,
	})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.stats.GetLeaderboard(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]leaderboardEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, leaderboardEntryResponse{
			Rank:      e.Rank,
			UserID:    e.UserID,
			Name:      e.Name,
			Email:     e.Email,
			Credits:   e.Credits,
			BetTotals: e.Totals,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
