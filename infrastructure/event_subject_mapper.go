package infrastructure

import (
	"fmt"

	"roundbets/events"
)

// EventSubjectMapper maps domain events to message bus subjects under a prefix
type EventSubjectMapper struct {
	prefix string
}

// NewEventSubjectMapper creates a mapper. An empty prefix yields bare subjects.
func NewEventSubjectMapper(prefix string) *EventSubjectMapper {
	return &EventSubjectMapper{prefix: prefix}
}

func (m *EventSubjectMapper) withPrefix(subject string) string {
	if m.prefix == "" {
		return subject
	}
	return m.prefix + "." + subject
}

// MapEventToSubject converts a domain event to its subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	return m.subjectFor(event.Type())
}

func (m *EventSubjectMapper) subjectFor(eventType events.EventType) string {
	switch eventType {
	case events.EventTypeUserCreated:
		return m.withPrefix("users.created")
	case events.EventTypeCreditsChanged:
		return m.withPrefix("users.credits_changed")
	case events.EventTypeRoundCreated:
		return m.withPrefix("rounds.created")
	case events.EventTypeRoundLockChanged:
		return m.withPrefix("rounds.lock_changed")
	case events.EventTypeRoundSettled:
		return m.withPrefix("rounds.settled")
	default:
		return m.withPrefix(fmt.Sprintf("unknown.%s", eventType))
	}
}

// MapSubjectToEventType converts a subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for _, t := range events.AllEventTypes {
		if m.subjectFor(t) == subject {
			return t
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns every subject this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		subjects = append(subjects, m.subjectFor(t))
	}
	return subjects
}

// partitionKey returns the aggregate id an event belongs to, keeping one
// round's or user's events ordered on keyed transports
func partitionKey(event events.Event) string {
	switch e := event.(type) {
	case events.UserCreatedEvent:
		return e.UserID
	case events.CreditsChangedEvent:
		return e.UserID
	case events.RoundCreatedEvent:
		return e.RoundID
	case events.RoundLockChangedEvent:
		return e.RoundID
	case events.RoundSettledEvent:
		return e.RoundID
	default:
		return string(event.Type())
	}
}
