package user

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is a registered account. ChoreIDs is a denormalized index of the
// chores the user participates in, maintained by the command handlers.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	HashedPassword string    `json:"hashed_password"`
	ChoreIDs       []string  `json:"chore_ids"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewUser creates a user with a fresh id and a normalized email.
func NewUser(email, name, hashedPassword string) *User {
	return &User{
		ID:             uuid.New().String(),
		Email:          strings.ToLower(email),
		Name:           name,
		HashedPassword: hashedPassword,
		ChoreIDs:       []string{},
		CreatedAt:      time.Now().UTC(),
	}
}

// JoinChore records the chore in the user's membership index.
func (u *User) JoinChore(choreID string) {
	if slices.Contains(u.ChoreIDs, choreID) {
		return
	}
	u.ChoreIDs = append(u.ChoreIDs, choreID)
}

// LeaveChore removes the chore from the user's membership index.
func (u *User) LeaveChore(choreID string) {
	for i, id := range u.ChoreIDs {
		if id == choreID {
			u.ChoreIDs = append(u.ChoreIDs[:i], u.ChoreIDs[i+1:]...)
			return
		}
	}
}

// HasJoinedChore reports whether the chore is in the membership index.
func (u *User) HasJoinedChore(choreID string) bool {
	return slices.Contains(u.ChoreIDs, choreID)
}

// Response is the externally visible projection of a user, excluding
// credentials.
type Response struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ChoreIDs  []string  `json:"chore_ids"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse strips the credential fields for API responses.
func (u *User) ToResponse() Response {
	return Response{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		ChoreIDs:  u.ChoreIDs,
		CreatedAt: u.CreatedAt,
	}
}
