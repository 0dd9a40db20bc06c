package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterReturnsTokenAndUser(t *testing.T) {
	env := newTestEnv(t)

	token := env.register(t, "alice@example.com", "Alice")

	assert.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
	assert.Equal(t, "alice@example.com", token.User.Email)
	assert.Equal(t, "Alice", token.User.Name)
	assert.NotEmpty(t, token.User.ID)
}

func TestRegisterNeverExposesCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password123")
	assert.NotContains(t, rec.Body.String(), "hashed_password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "alice@example.com", "Alice")

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"name":     "Alice Again",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterInvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "not-an-email",
		"name":     "Alice",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterWeakPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    "alice@example.com",
		"name":     "Alice",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "Alice")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice@example.com", "Alice")

	rec := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "alice@example.com",
		"password": "wrongpassword",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "alice@example.com", "Alice")

	rec := env.do(t, http.MethodGet, "/api/auth/me", token.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	me := decodeUser(t, rec)
	assert.Equal(t, token.User.ID, me.ID)
	assert.Equal(t, "alice@example.com", me.Email)
}

func TestMeRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/auth/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJoinChore(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com", "Owner")
	joiner := env.register(t, "joiner@example.com", "Joiner")

	created := env.createChore(t, owner.AccessToken, "Dishes")

	rec := env.do(t, http.MethodPost, "/api/auth/join-chore", joiner.AccessToken, gin.H{
		"chore_id": created.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	me := decodeUser(t, rec)
	assert.Contains(t, me.ChoreIDs, created.ID)

	// The chore gains a person slot and the joiner on its access list.
	stored, err := env.chores.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Len(t, stored.People, 2)
	assert.Contains(t, stored.SharedWith, joiner.User.ID)
	assert.Equal(t, joiner.User.ID, stored.People[1].UserID)
}

func TestJoinChoreTwice(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner@example.com", "Owner")
	joiner := env.register(t, "joiner@example.com", "Joiner")

	created := env.createChore(t, owner.AccessToken, "Dishes")

	rec := env.do(t, http.MethodPost, "/api/auth/join-chore", joiner.AccessToken, gin.H{
		"chore_id": created.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/auth/join-chore", joiner.AccessToken, gin.H{
		"chore_id": created.ID,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinUnknownChore(t *testing.T) {
	env := newTestEnv(t)
	joiner := env.register(t, "joiner@example.com", "Joiner")

	rec := env.do(t, http.MethodPost, "/api/auth/join-chore", joiner.AccessToken, gin.H{
		"chore_id": "no-such-chore",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
