package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/harshithlanka3/chore-cycle-backend/internal/auth"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/user"
	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
	"github.com/harshithlanka3/chore-cycle-backend/internal/middleware"
	"github.com/harshithlanka3/chore-cycle-backend/internal/realtime"
	"github.com/harshithlanka3/chore-cycle-backend/internal/response"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
	"github.com/harshithlanka3/chore-cycle-backend/internal/validation"
)

type AuthHandler struct {
	authService *auth.Service
	users       *storage.UserRepository
	chores      *storage.ChoreRepository
	relay       *realtime.Relay
	log         *log.Logger
}

func NewAuthHandler(authService *auth.Service, users *storage.UserRepository, chores *storage.ChoreRepository, relay *realtime.Relay) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
		chores:      chores,
		relay:       relay,
		log:         logger.Handler("auth_handler"),
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        user.Response `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	u, err := h.authService.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			response.BadRequestError(c, "Email already registered")
		case errors.Is(err, auth.ErrWeakPassword):
			response.BadRequestError(c, err.Error())
		default:
			h.log.Error("Failed to register user", "error", err)
			response.InternalServerError(c, "Failed to register user")
		}
		return
	}

	h.issueToken(c, http.StatusCreated, u)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}

	u, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.UnauthorizedError(c, "Incorrect email or password")
			return
		}
		h.log.Error("Failed to log user in", "error", err)
		response.InternalServerError(c, "Failed to log in")
		return
	}

	h.issueToken(c, http.StatusOK, u)
}

func (h *AuthHandler) issueToken(c *gin.Context, status int, u *user.User) {
	token, err := h.authService.CreateToken(u.ID)
	if err != nil {
		h.log.Error("Failed to create access token", "user_id", u.ID, "error", err)
		response.InternalServerError(c, "Failed to create access token")
		return
	}

	c.JSON(status, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        u.ToResponse(),
	})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}
	c.JSON(http.StatusOK, u.ToResponse())
}

type JoinChoreRequest struct {
	ChoreID string `json:"chore_id" binding:"required"`
}

// JoinChore handles POST /api/auth/join-chore: the caller enrolls themselves
// in an existing chore by id.
func (h *AuthHandler) JoinChore(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	var req JoinChoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}

	current, err := h.chores.GetByID(c.Request.Context(), req.ChoreID)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFoundError(c, "Chore not found")
		return
	}
	if err != nil {
		h.log.Error("Failed to load chore", "chore_id", req.ChoreID, "error", err)
		response.InternalServerError(c, "Failed to load chore")
		return
	}

	next, person, err := current.AddPerson(u.Name, u.ID)
	if err != nil {
		if errors.Is(err, chore.ErrAlreadyMember) {
			response.BadRequestError(c, "You are already part of this chore")
			return
		}
		response.BadRequestError(c, err.Error())
		return
	}
	next = shareWith(next, u.ID)

	if err := h.chores.Save(c.Request.Context(), next); err != nil {
		h.log.Error("Failed to save chore", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to save chore")
		return
	}

	u.JoinChore(next.ID)
	if err := h.users.Save(c.Request.Context(), u); err != nil {
		h.log.Error("Failed to update user membership", "user_id", u.ID, "error", err)
		response.InternalServerError(c, "Failed to update user")
		return
	}

	if err := h.relay.Publish(c.Request.Context(), chore.NewPersonAddedEvent(next, person, true)); err != nil {
		h.log.Error("Failed to publish join event", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to publish update")
		return
	}

	c.JSON(http.StatusOK, u.ToResponse())
}
