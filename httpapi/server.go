package httpapi

import (
	"context"
	"net/http"

	"roundbets/metrics"
	"roundbets/models"
	"roundbets/service"

	"github.com/gorilla/mux"
)

// SessionResolver maps a session token to the signed-in actor
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Actor, error)
}

// Server exposes the ledger services over JSON
type Server struct {
	sessions SessionResolver
	wagers   service.WagerService
	rounds   service.RoundService
	stats    service.StatsService
	metrics  *metrics.Metrics
}

// NewServer creates an API server. m may be nil to disable request metrics.
func NewServer(
	sessions SessionResolver,
	wagers service.WagerService,
	rounds service.RoundService,
	stats service.StatsService,
	m *metrics.Metrics,
) *Server {
	return &Server{
		sessions: sessions,
		wagers:   wagers,
		rounds:   rounds,
		stats:    stats,
		metrics:  m,
	}
}

// Router builds the route table
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)
	r.Use(s.authenticate)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/rounds", s.listRounds).Methods(http.MethodGet)
	api.HandleFunc("/rounds", s.createRound).Methods(http.MethodPost)
	api.HandleFunc("/rounds/{id}/lock", s.setRoundLock).Methods(http.MethodPost)
	api.HandleFunc("/rounds/{id}/complete", s.settleRound).Methods(http.MethodPost)
	api.HandleFunc("/bet", s.placeBet).Methods(http.MethodPost)
	api.HandleFunc("/profile", s.profile).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", s.leaderboard).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})

	return r
}
