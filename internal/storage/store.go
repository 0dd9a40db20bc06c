// Package storage defines the key-value store contract the rest of the
// service is written against, plus typed repositories layered on top of it.
// Concrete backends live in the memory, redis, and postgres subpackages.
package storage

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key holds no value.
var ErrKeyNotFound = errors.New("key not found")

// Key and channel layout shared by every backend.
const (
	ChoreKeyPrefix     = "chore:"
	UserKeyPrefix      = "user:"
	UserEmailKeyPrefix = "user_email:"
	EventChannel       = "chore_updates"
)

// Store is a key-value store over opaque byte blobs with a pub/sub
// side-channel. Subscribe returns an ordered single-consumer stream of raw
// payloads; the channel is closed when ctx is cancelled or the backend
// connection is lost.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) (bool, error)
	ScanPrefix(ctx context.Context, prefix string) ([][]byte, error)
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
