//go:build integration
// +build integration

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshithlanka3/chore-cycle-backend/internal/config"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/postgres"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/redis"
)

// Integration tests that require running Redis / PostgreSQL instances.
// Run with: go test -tags=integration

func TestRedisStoreRoundTrip(t *testing.T) {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	require.NoError(t, err, "Should be able to connect to the test Redis")
	defer store.Close()

	require.NoError(t, store.Set(ctx, "it:key", []byte("value")))
	value, err := store.Get(ctx, "it:key")
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	existed, err := store.Delete(ctx, "it:key")
	assert.NoError(t, err)
	assert.True(t, existed)
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	cfg := config.Load()

	store, err := postgres.Connect(cfg.GetDatabaseURL(), false)
	require.NoError(t, err, "Should be able to connect to the test database")
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, store.Set(ctx, "it:key", []byte("value")))
	value, err := store.Get(ctx, "it:key")
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	existed, err := store.Delete(ctx, "it:key")
	assert.NoError(t, err)
	assert.True(t, existed)
}
