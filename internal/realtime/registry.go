// Package realtime owns the live side of the service: the connection
// registry, the websocket protocol, and the fanout relay that pushes domain
// events to every connection entitled to see them.
package realtime

import (
	"sync"

	"github.com/harshithlanka3/chore-cycle-backend/internal/metrics"
)

// Conn is a live realtime channel. Implementations must be safe for
// concurrent Send calls.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Registry maps authenticated user ids to their live connections, with a
// holding area for connections that have not completed the in-band auth
// handshake. All methods are safe for concurrent use; a connection belongs
// to at most one bucket at a time.
type Registry struct {
	mu      sync.Mutex
	pending map[Conn]struct{}
	byUser  map[string]map[Conn]struct{}
	users   map[Conn]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[Conn]struct{}),
		byUser:  make(map[string]map[Conn]struct{}),
		users:   make(map[Conn]string),
	}
}

// Register places a new, unauthenticated connection in the holding area.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	if _, tracked := r.users[conn]; !tracked {
		if _, held := r.pending[conn]; !held {
			r.pending[conn] = struct{}{}
			metrics.ConnectionsPending.Inc()
		}
	}
	r.mu.Unlock()
}

// Authenticate moves a connection from the holding area into the user's
// bucket. Re-authenticating to the same user is a no-op; re-authenticating
// to a different user moves the connection.
func (r *Registry) Authenticate(conn Conn, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.users[conn]; ok {
		if current == userID {
			return
		}
		r.removeFromBucket(conn, current)
		metrics.ConnectionsActive.Dec()
	} else if _, held := r.pending[conn]; held {
		delete(r.pending, conn)
		metrics.ConnectionsPending.Dec()
	}

	bucket, ok := r.byUser[userID]
	if !ok {
		bucket = make(map[Conn]struct{})
		r.byUser[userID] = bucket
	}
	bucket[conn] = struct{}{}
	r.users[conn] = userID
	metrics.ConnectionsActive.Inc()
}

// Deregister removes the connection from whichever bucket holds it. Calling
// it for an unknown connection is a no-op, which guards double-disconnect
// races.
func (r *Registry) Deregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID, ok := r.users[conn]; ok {
		r.removeFromBucket(conn, userID)
		delete(r.users, conn)
		metrics.ConnectionsActive.Dec()
		return
	}
	if _, held := r.pending[conn]; held {
		delete(r.pending, conn)
		metrics.ConnectionsPending.Dec()
	}
}

// ConnectionsFor returns a point-in-time snapshot of the user's live
// connections. The snapshot is safe to iterate while the registry mutates.
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.byUser[userID]
	if len(bucket) == 0 {
		return nil
	}
	conns := make([]Conn, 0, len(bucket))
	for conn := range bucket {
		conns = append(conns, conn)
	}
	return conns
}

// caller must hold r.mu
func (r *Registry) removeFromBucket(conn Conn, userID string) {
	bucket := r.byUser[userID]
	delete(bucket, conn)
	if len(bucket) == 0 {
		delete(r.byUser, userID)
	}
}
