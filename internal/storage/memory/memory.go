// Package memory implements the storage contract entirely in process. It is
// the default backend for tests and local development; nothing survives a
// restart.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
)

// Store is an in-process storage.Store. Safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	data        map[string][]byte
	subscribers map[string][]*subscriber
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		data:        make(map[string][]byte),
		subscribers: make(map[string][]*subscriber),
	}
}

// Get returns the value stored under key or storage.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return nil, storage.ErrKeyNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a copy of value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.mu.Lock()
	s.data[key] = stored
	s.mu.Unlock()
	return nil
}

// Delete removes key and reports whether it was present.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok, nil
}

// ScanPrefix returns a copy of every value whose key starts with prefix.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var values [][]byte
	for key, value := range s.data {
		if strings.HasPrefix(key, prefix) {
			out := make([]byte, len(value))
			copy(out, value)
			values = append(values, out)
		}
	}
	return values, nil
}

// Publish enqueues payload to every live subscriber of channel, preserving
// per-subscriber publish order.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	stored := make([]byte, len(payload))
	copy(stored, payload)
	s.mu.Lock()
	subs := append([]*subscriber{}, s.subscribers[channel]...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.enqueue(stored)
	}
	return nil
}

// Subscribe returns an ordered stream of payloads published on channel. The
// stream is closed and the subscription dropped when ctx is cancelled.
func (s *Store) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	sub := newSubscriber()
	s.mu.Lock()
	s.subscribers[channel] = append(s.subscribers[channel], sub)
	s.mu.Unlock()

	go sub.run()
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		subs := s.subscribers[channel]
		for i, candidate := range subs {
			if candidate == sub {
				s.subscribers[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		sub.close()
	}()

	return sub.out, nil
}

// subscriber decouples Publish from a slow consumer with an unbounded
// in-order queue drained by its own goroutine.
type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  [][]byte
	closed bool
	done   chan struct{}
	out    chan []byte
}

func newSubscriber() *subscriber {
	sub := &subscriber{
		done: make(chan struct{}),
		out:  make(chan []byte),
	}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

func (sub *subscriber) enqueue(payload []byte) {
	sub.mu.Lock()
	if !sub.closed {
		sub.queue = append(sub.queue, payload)
		sub.cond.Signal()
	}
	sub.mu.Unlock()
}

func (sub *subscriber) close() {
	sub.mu.Lock()
	if !sub.closed {
		sub.closed = true
		close(sub.done)
		sub.cond.Signal()
	}
	sub.mu.Unlock()
}

func (sub *subscriber) run() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if sub.closed {
			sub.mu.Unlock()
			close(sub.out)
			return
		}
		payload := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.out <- payload:
		case <-sub.done:
			close(sub.out)
			return
		}
	}
}
