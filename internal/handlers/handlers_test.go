package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/harshithlanka3/chore-cycle-backend/internal/auth"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/user"
	"github.com/harshithlanka3/chore-cycle-backend/internal/middleware"
	"github.com/harshithlanka3/chore-cycle-backend/internal/realtime"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage/memory"
)

// testEnv wires the handlers over an in-memory store with the same routes
// the server registers.
type testEnv struct {
	router *gin.Engine
	store  *memory.Store
	chores *storage.ChoreRepository
	users  *storage.UserRepository
	auth   *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.New()
	chores := storage.NewChoreRepository(store)
	users := storage.NewUserRepository(store)
	authService := auth.NewService(users, "test-secret", time.Hour)
	relay := realtime.NewRelay(store, chores, realtime.NewRegistry())

	authHandler := NewAuthHandler(authService, users, chores, relay)
	choreHandler := NewChoreHandler(chores, users, relay)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authenticated := api.Group("")
	authenticated.Use(middleware.Auth(authService, users))
	authenticated.GET("/auth/me", authHandler.Me)
	authenticated.POST("/auth/join-chore", authHandler.JoinChore)
	authenticated.GET("/chores", choreHandler.GetAllChores)
	authenticated.POST("/chores", choreHandler.CreateChore)
	authenticated.GET("/chores/:id", choreHandler.GetChore)
	authenticated.DELETE("/chores/:id", choreHandler.DeleteChore)
	authenticated.POST("/chores/:id/people", choreHandler.AddPerson)
	authenticated.DELETE("/chores/:id/people/:person_id", choreHandler.RemovePerson)
	authenticated.POST("/chores/:id/advance", choreHandler.AdvanceQueue)

	return &testEnv{
		router: router,
		store:  store,
		chores: chores,
		users:  users,
		auth:   authService,
	}
}

// do performs a request against the test router. A non-empty token is sent
// as a bearer credential; a non-nil body is JSON-encoded.
func (env *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var payload *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(encoded)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account through the API and returns its token response.
func (env *testEnv) register(t *testing.T, email, name string) TokenResponse {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email":    email,
		"name":     name,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var token TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &token))
	return token
}

// createChore creates a chore through the API and returns the aggregate.
func (env *testEnv) createChore(t *testing.T, token, name string) chore.Chore {
	t.Helper()

	rec := env.do(t, http.MethodPost, "/api/chores", token, gin.H{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created chore.Chore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func decodeChore(t *testing.T, rec *httptest.ResponseRecorder) chore.Chore {
	t.Helper()
	var c chore.Chore
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func decodeUser(t *testing.T, rec *httptest.ResponseRecorder) user.Response {
	t.Helper()
	var u user.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	return u
}
