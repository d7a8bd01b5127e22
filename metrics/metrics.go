package metrics

import (
	"context"

	"roundbets/events"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the ledger's prometheus collectors
type Metrics struct {
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	BetsPlaced     prometheus.Counter
	CreditsStaked  prometheus.Counter
	UsersCreated   prometheus.Counter
	RoundsCreated  prometheus.Counter
	RoundLocks     *prometheus.CounterVec
	RoundsSettled  *prometheus.CounterVec
	CreditsPaidOut prometheus.Counter
	EventsObserved *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roundbets_http_requests_total",
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roundbets_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		BetsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roundbets_bets_placed_total",
			Help: "Bets accepted",
		}),
		CreditsStaked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roundbets_credits_staked_total",
			Help: "Credits debited by accepted bets",
		}),
		UsersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roundbets_users_created_total",
			Help: "Users granted starting credits",
		}),
		RoundsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roundbets_rounds_created_total",
			Help: "Rounds opened",
		}),
		RoundLocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roundbets_round_lock_changes_total",
			Help: "Round lock toggles by new state",
		}, []string{"locked"}),
		RoundsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roundbets_rounds_settled_total",
			Help: "Rounds settled by outcome",
		}, []string{"outcome"}),
		CreditsPaidOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roundbets_credits_paid_out_total",
			Help: "Credits paid to winning bets",
		}),
		EventsObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roundbets_events_total",
			Help: "Domain events flushed after commit",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPDuration,
		m.BetsPlaced, m.CreditsStaked,
		m.UsersCreated, m.RoundsCreated, m.RoundLocks, m.RoundsSettled,
		m.CreditsPaidOut, m.EventsObserved,
	)
	return m
}

// ObserveBet records an accepted bet. Bets raise no domain event, so the
// HTTP layer reports them directly.
func (m *Metrics) ObserveBet(amount int64) {
	m.BetsPlaced.Inc()
	m.CreditsStaked.Add(float64(amount))
}

// Attach subscribes the collectors to every domain event on the bus
func (m *Metrics) Attach(bus *events.Bus) {
	bus.SubscribeAll(m.handleEvent)
}

func (m *Metrics) handleEvent(_ context.Context, event events.Event) {
	m.EventsObserved.WithLabelValues(string(event.Type())).Inc()

	switch e := event.(type) {
	case events.UserCreatedEvent:
		m.UsersCreated.Inc()
	case events.RoundCreatedEvent:
		m.RoundsCreated.Inc()
	case events.RoundLockChangedEvent:
		if e.Locked {
			m.RoundLocks.WithLabelValues("true").Inc()
		} else {
			m.RoundLocks.WithLabelValues("false").Inc()
		}
	case events.RoundSettledEvent:
		if e.NoWinners {
			m.RoundsSettled.WithLabelValues("no_winners").Inc()
		} else {
			m.RoundsSettled.WithLabelValues("paid").Inc()
		}
	case events.CreditsChangedEvent:
		if e.EntryType == "round_payout" {
			m.CreditsPaidOut.Add(float64(e.ChangeAmount))
		}
	}
}
