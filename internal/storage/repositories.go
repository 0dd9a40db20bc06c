package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/user"
)

// ErrNotFound is the repository-level miss, distinct from infrastructure
// failures which are returned wrapped.
var ErrNotFound = errors.New("record not found")

// ChoreRepository persists chore aggregates as JSON blobs under
// chore:{id}. The whole aggregate is written on every save; concurrent
// writers race with last-writer-wins semantics.
type ChoreRepository struct {
	store Store
}

// NewChoreRepository creates a chore repository over the given store.
func NewChoreRepository(store Store) *ChoreRepository {
	return &ChoreRepository{store: store}
}

func choreKey(id string) string {
	return ChoreKeyPrefix + id
}

// Save writes the aggregate snapshot.
func (r *ChoreRepository) Save(ctx context.Context, c chore.Chore) error {
	blob, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal chore %s: %w", c.ID, err)
	}
	if err := r.store.Set(ctx, choreKey(c.ID), blob); err != nil {
		return fmt.Errorf("failed to save chore %s: %w", c.ID, err)
	}
	return nil
}

// GetByID loads one chore, returning ErrNotFound on a miss.
func (r *ChoreRepository) GetByID(ctx context.Context, id string) (chore.Chore, error) {
	blob, err := r.store.Get(ctx, choreKey(id))
	if errors.Is(err, ErrKeyNotFound) {
		return chore.Chore{}, ErrNotFound
	}
	if err != nil {
		return chore.Chore{}, fmt.Errorf("failed to load chore %s: %w", id, err)
	}
	var c chore.Chore
	if err := json.Unmarshal(blob, &c); err != nil {
		return chore.Chore{}, fmt.Errorf("failed to unmarshal chore %s: %w", id, err)
	}
	return c, nil
}

// GetAll enumerates every stored chore. Blobs that no longer parse are
// skipped rather than failing the whole listing.
func (r *ChoreRepository) GetAll(ctx context.Context) ([]chore.Chore, error) {
	blobs, err := r.store.ScanPrefix(ctx, ChoreKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chores: %w", err)
	}
	chores := make([]chore.Chore, 0, len(blobs))
	for _, blob := range blobs {
		var c chore.Chore
		if err := json.Unmarshal(blob, &c); err != nil {
			continue
		}
		chores = append(chores, c)
	}
	return chores, nil
}

// Delete removes the aggregate and reports whether it existed.
func (r *ChoreRepository) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := r.store.Delete(ctx, choreKey(id))
	if err != nil {
		return false, fmt.Errorf("failed to delete chore %s: %w", id, err)
	}
	return existed, nil
}

// UserRepository persists accounts under user:{id} with a user_email:{email}
// secondary blob for login lookup. Both keys carry the full record and are
// written together on every change.
type UserRepository struct {
	store Store
}

// NewUserRepository creates a user repository over the given store.
func NewUserRepository(store Store) *UserRepository {
	return &UserRepository{store: store}
}

func userKey(id string) string {
	return UserKeyPrefix + id
}

func userEmailKey(email string) string {
	return UserEmailKeyPrefix + strings.ToLower(email)
}

// Save writes the user under both lookup keys.
func (r *UserRepository) Save(ctx context.Context, u *user.User) error {
	blob, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal user %s: %w", u.ID, err)
	}
	if err := r.store.Set(ctx, userKey(u.ID), blob); err != nil {
		return fmt.Errorf("failed to save user %s: %w", u.ID, err)
	}
	if err := r.store.Set(ctx, userEmailKey(u.Email), blob); err != nil {
		return fmt.Errorf("failed to save user email index for %s: %w", u.ID, err)
	}
	return nil
}

// GetByID loads a user by id, returning ErrNotFound on a miss.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	return r.getByKey(ctx, userKey(id))
}

// GetByEmail loads a user by normalized email, returning ErrNotFound on a
// miss.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getByKey(ctx, userEmailKey(email))
}

func (r *UserRepository) getByKey(ctx context.Context, key string) (*user.User, error) {
	blob, err := r.store.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user record %s: %w", key, err)
	}
	var u user.User
	if err := json.Unmarshal(blob, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user record %s: %w", key, err)
	}
	return &u, nil
}
