package realtime

import (
	"context"
	"errors"

	"github.com/harshithlanka3/chore-cycle-backend/internal/access"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
	"github.com/harshithlanka3/chore-cycle-backend/internal/metrics"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
)

// Relay routes domain events to every live connection in their audience.
// Command handlers publish through it; a single background loop consumes the
// store's event channel and performs the deliveries, so events for a chore
// reach any given connection in publish order.
type Relay struct {
	store    storage.Store
	chores   *storage.ChoreRepository
	registry *Registry
}

// NewRelay creates a relay over the given store and registry.
func NewRelay(store storage.Store, chores *storage.ChoreRepository, registry *Registry) *Relay {
	return &Relay{
		store:    store,
		chores:   chores,
		registry: registry,
	}
}

// Publish encodes the event and puts it on the update channel. Store
// failures propagate so the command handler can fail the request; delivery
// failures never do.
func (r *Relay) Publish(ctx context.Context, event chore.Event) error {
	payload, err := event.Encode()
	if err != nil {
		return err
	}
	if err := r.store.Publish(ctx, storage.EventChannel, payload); err != nil {
		return err
	}
	metrics.EventsPublished.Inc()
	return nil
}

// Run consumes the update channel and fans each event out until ctx is
// cancelled or the subscription stream closes. It is meant to run as the
// process's single subscriber goroutine.
func (r *Relay) Run(ctx context.Context) error {
	log := logger.Relay()

	events, err := r.store.Subscribe(ctx, storage.EventChannel)
	if err != nil {
		return err
	}
	log.Info("Fanout relay started", "channel", storage.EventChannel)

	for {
		select {
		case <-ctx.Done():
			log.Info("Fanout relay stopped")
			return ctx.Err()
		case payload, ok := <-events:
			if !ok {
				log.Warn("Update stream closed")
				return nil
			}
			r.deliver(ctx, payload)
		}
	}
}

// deliver resolves the event's audience against the latest persisted chore
// state and writes the payload to each live connection. An unresolvable
// audience degrades to a silent drop, never a broadcast; a failed write
// prunes that one connection and moves on.
func (r *Relay) deliver(ctx context.Context, payload []byte) {
	log := logger.Relay()

	event, err := chore.DecodeEvent(payload)
	if err != nil {
		log.Warn("Dropping undecodable event", "error", err)
		metrics.EventsDropped.Inc()
		return
	}

	current, err := r.chores.GetByID(ctx, event.ChoreID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error("Failed to resolve event audience", "chore_id", event.ChoreID, "error", err)
		}
		metrics.EventsDropped.Inc()
		return
	}

	for _, userID := range access.Audience(current) {
		for _, conn := range r.registry.ConnectionsFor(userID) {
			if err := conn.Send(payload); err != nil {
				log.Debug("Pruning dead connection", "user_id", userID, "error", err)
				r.registry.Deregister(conn)
				_ = conn.Close()
				metrics.DeliveryErrors.Inc()
				continue
			}
			metrics.EventsDelivered.Inc()
		}
	}
}
