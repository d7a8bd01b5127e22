package events

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeUserCreated      EventType = "user_created"
	EventTypeRoundCreated     EventType = "round_created"
	EventTypeRoundLockChanged EventType = "round_lock_changed"
	EventTypeRoundSettled     EventType = "round_settled"
	EventTypeCreditsChanged   EventType = "credits_changed"
)

// AllEventTypes lists every event type the bus can carry
var AllEventTypes = []EventType{
	EventTypeUserCreated,
	EventTypeRoundCreated,
	EventTypeRoundLockChanged,
	EventTypeRoundSettled,
	EventTypeCreditsChanged,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// UserCreatedEvent represents a new user receiving the starting grant
type UserCreatedEvent struct {
	UserID         string `json:"userId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	InitialCredits int64  `json:"initialCredits"`
}

func (e UserCreatedEvent) Type() EventType {
	return EventTypeUserCreated
}

// RoundCreatedEvent represents a round opening for bets
type RoundCreatedEvent struct {
	RoundID string `json:"roundId"`
	Title   string `json:"title"`
	OptionA string `json:"optionA"`
	OptionB string `json:"optionB"`
}

func (e RoundCreatedEvent) Type() EventType {
	return EventTypeRoundCreated
}

// RoundLockChangedEvent represents betting being locked or reopened on a round
type RoundLockChangedEvent struct {
	RoundID string `json:"roundId"`
	Title   string `json:"title"`
	Locked  bool   `json:"locked"`
}

func (e RoundLockChangedEvent) Type() EventType {
	return EventTypeRoundLockChanged
}

// RoundSettledEvent represents a round resolved with a winning option
type RoundSettledEvent struct {
	RoundID     string    `json:"roundId"`
	Title       string    `json:"title"`
	Winner      string    `json:"winner"`
	WinnerLabel string    `json:"winnerLabel"`
	TotalPool   int64     `json:"totalPool"`
	WinningPool int64     `json:"winningPool"`
	WinnerCount int       `json:"winnerCount"`
	LoserCount  int       `json:"loserCount"`
	NoWinners   bool      `json:"noWinners"`
	SettledAt   time.Time `json:"settledAt"`
}

func (e RoundSettledEvent) Type() EventType {
	return EventTypeRoundSettled
}

// CreditsChangedEvent represents a credit increase recorded in the ledger
type CreditsChangedEvent struct {
	UserID       string `json:"userId"`
	OldCredits   int64  `json:"oldCredits"`
	NewCredits   int64  `json:"newCredits"`
	ChangeAmount int64  `json:"changeAmount"`
	EntryType    string `json:"entryType"`
	RoundID      string `json:"roundId,omitempty"`
}

func (e CreditsChangedEvent) Type() EventType {
	return EventTypeCreditsChanged
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// queueSize bounds the events buffered per subscription before Emit blocks
const queueSize = 1024

type delivery struct {
	ctx   context.Context
	event Event
}

// subscription delivers events to one handler in emit order on its own goroutine
type subscription struct {
	handler Handler
	index   int
	queue   chan delivery
}

func (s *subscription) run(wg *sync.WaitGroup) {
	defer wg.Done()
	for d := range s.queue {
		s.deliver(d)
	}
}

func (s *subscription) deliver(d delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType":    d.event.Type(),
				"handlerIndex": s.index,
				"panic":        r,
			}).Error("Event handler panicked")
		}
	}()
	s.handler(d.ctx, d.event)
}

// Bus manages event subscriptions and dispatching.
// Each handler sees events in the order they were emitted, across all the
// types it subscribed to. Different handlers run independently.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]*subscription
	subs     []*subscription
	workers  sync.WaitGroup
	closed   bool
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]*subscription),
	}
}

func (b *Bus) subscribe(handler Handler, eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		log.Warn("Subscribe called on closed event bus")
		return
	}

	sub := &subscription{
		handler: handler,
		index:   len(b.subs),
		queue:   make(chan delivery, queueSize),
	}
	b.subs = append(b.subs, sub)
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], sub)
	}

	b.workers.Add(1)
	go sub.run(&b.workers)

	log.WithFields(log.Fields{
		"eventTypes":   eventTypes,
		"handlerIndex": sub.index,
	}).Debug("Subscribed handler to event types")
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.subscribe(handler, eventType)
}

// SubscribeAll adds one handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	b.subscribe(handler, AllEventTypes...)
}

// Emit queues an event for every handler subscribed to its type.
// Handlers run asynchronously; Emit blocks only when a handler's queue is full.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		log.WithField("eventType", event.Type()).Warn("Dropping event emitted on closed bus")
		return
	}

	subs := b.handlers[event.Type()]
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(subs),
	}).Debug("Emitting event")

	for _, sub := range subs {
		sub.queue <- delivery{ctx: ctx, event: event}
	}
}

// Close stops accepting events and waits for queued ones to be handled
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.queue)
	}
	b.mu.Unlock()

	b.workers.Wait()
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the number of buffered events
func (b *TransactionalBus) Pending() int {
	return len(b.pending)
}

// Flush emits buffered events in publish order. Called after a successful commit.
// Handlers keep ctx's values but not its cancellation, since they outlive the request.
func (b *TransactionalBus) Flush(ctx context.Context) {
	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events")

	eventCtx := context.WithoutCancel(ctx)
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
}

// Discard drops buffered events. Called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
