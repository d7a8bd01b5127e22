package infrastructure

import (
	"context"
	"time"

	"roundbets/events"

	log "github.com/sirupsen/logrus"
)

// EventSink receives committed domain events for delivery outside the process
type EventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

const sinkTimeout = 5 * time.Second

// AttachSink forwards every event on the bus to sink. Delivery failures are
// logged and dropped; the ledger state they describe is already committed.
func AttachSink(bus *events.Bus, name string, sink EventSink) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
		defer cancel()

		if err := sink.Publish(ctx, event); err != nil {
			log.WithFields(log.Fields{
				"sink":      name,
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward event")
		}
	})

	log.WithField("sink", name).Info("Attached event sink")
}
