package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/memory"
)

func relayFixture(t *testing.T) (*Relay, *Registry, *storage.ChoreRepository) {
	t.Helper()

	store := memory.New()
	chores := storage.NewChoreRepository(store)
	registry := NewRegistry()
	relay := NewRelay(store, chores, registry)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = relay.Run(ctx) }()
	t.Cleanup(cancel)

	// Give the subscriber loop a beat to attach before publishing.
	time.Sleep(20 * time.Millisecond)
	return relay, registry, chores
}

func authedConn(r *Registry, userID string) *fakeConn {
	conn := &fakeConn{}
	r.Register(conn)
	r.Authenticate(conn, userID)
	return conn
}

func sharedChore() chore.Chore {
	return chore.Chore{
		ID:         "chore-1",
		Name:       "Dishes",
		OwnerID:    "owner-1",
		SharedWith: []string{"member-1"},
		People: []chore.Person{
			{ID: "p0", Name: "Owner", UserID: "owner-1"},
			{ID: "p1", Name: "Member", UserID: "member-1"},
		},
	}
}

func TestRelayDeliversToAudienceOnly(t *testing.T) {
	relay, registry, chores := relayFixture(t)

	c := sharedChore()
	require.NoError(t, chores.Save(context.Background(), c))

	owner := authedConn(registry, "owner-1")
	member := authedConn(registry, "member-1")
	stranger := authedConn(registry, "stranger-1")

	require.NoError(t, relay.Publish(context.Background(), chore.NewCreatedEvent(c)))

	assert.Eventually(t, func() bool {
		return len(owner.payloads()) == 1 && len(member.payloads()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, stranger.payloads())

	var wire map[string]any
	require.NoError(t, json.Unmarshal(owner.payloads()[0], &wire))
	assert.Equal(t, "chore_created", wire["type"])
}

func TestRelayDeliversToEveryConnectionOfAUser(t *testing.T) {
	relay, registry, chores := relayFixture(t)

	c := sharedChore()
	require.NoError(t, chores.Save(context.Background(), c))

	phone := authedConn(registry, "owner-1")
	laptop := authedConn(registry, "owner-1")

	require.NoError(t, relay.Publish(context.Background(), chore.NewCreatedEvent(c)))

	assert.Eventually(t, func() bool {
		return len(phone.payloads()) == 1 && len(laptop.payloads()) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRelaySkipsUnauthenticatedConnections(t *testing.T) {
	relay, registry, chores := relayFixture(t)

	c := sharedChore()
	require.NoError(t, chores.Save(context.Background(), c))

	pending := &fakeConn{}
	registry.Register(pending)
	owner := authedConn(registry, "owner-1")

	require.NoError(t, relay.Publish(context.Background(), chore.NewCreatedEvent(c)))

	assert.Eventually(t, func() bool {
		return len(owner.payloads()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Empty(t, pending.payloads())
}

func TestRelayDropsEventsForUnknownChores(t *testing.T) {
	relay, registry, chores := relayFixture(t)

	known := sharedChore()
	require.NoError(t, chores.Save(context.Background(), known))
	owner := authedConn(registry, "owner-1")

	// The first event references a chore that no longer exists; it must be
	// dropped without any broadcast fallback.
	require.NoError(t, relay.Publish(context.Background(), chore.NewDeletedEvent("gone")))
	require.NoError(t, relay.Publish(context.Background(), chore.NewCreatedEvent(known)))

	assert.Eventually(t, func() bool {
		return len(owner.payloads()) == 1
	}, time.Second, 10*time.Millisecond)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(owner.payloads()[0], &wire))
	assert.Equal(t, "chore_created", wire["type"])
}

func TestRelayPrunesFailedConnectionsAndContinues(t *testing.T) {
	relay, registry, chores := relayFixture(t)

	c := sharedChore()
	require.NoError(t, chores.Save(context.Background(), c))

	broken := authedConn(registry, "owner-1")
	broken.fail = true
	healthy := authedConn(registry, "member-1")

	require.NoError(t, relay.Publish(context.Background(), chore.NewCreatedEvent(c)))

	assert.Eventually(t, func() bool {
		return len(healthy.payloads()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Empty(t, registry.ConnectionsFor("owner-1"), "failed connection is pruned")
	broken.mu.Lock()
	closed := broken.closed
	broken.mu.Unlock()
	assert.True(t, closed)
}

func TestRelayPreservesPublishOrderPerChore(t *testing.T) {
	relay, registry, chores := relayFixture(t)

	c := sharedChore()
	require.NoError(t, chores.Save(context.Background(), c))
	owner := authedConn(registry, "owner-1")

	const events = 20
	current := c
	for i := 0; i < events; i++ {
		var nowUp chore.Person
		var err error
		current, nowUp, err = current.Advance()
		require.NoError(t, err)
		require.NoError(t, chores.Save(context.Background(), current))
		require.NoError(t, relay.Publish(context.Background(), chore.NewQueueAdvancedEvent(current, nowUp)))
	}

	require.Eventually(t, func() bool {
		return len(owner.payloads()) == events
	}, 2*time.Second, 10*time.Millisecond)

	for i, payload := range owner.payloads() {
		var event chore.Event
		require.NoError(t, json.Unmarshal(payload, &event))
		expected := (i + 1) % len(c.People)
		assert.Equal(t, expected, event.Chore.CurrentPersonIndex, fmt.Sprintf("event %d out of order", i))
	}
}
