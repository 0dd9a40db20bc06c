package handlers

import (
	"errors"
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/harshithlanka3/chore-cycle-backend/internal/access"
	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/chore"
	"github.com/harshithlanka3/chore-cycle-backend/internal/logger"
	"github.com/harshithlanka3/chore-cycle-backend/internal/middleware"
	"github.com/harshithlanka3/chore-cycle-backend/internal/realtime"
	"github.com/harshithlanka3/chore-cycle-backend/internal/response"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
	"github.com/harshithlanka3/chore-cycle-backend/internal/validation"
)

const maxChoreNameLength = 120

type ChoreHandler struct {
	chores *storage.ChoreRepository
	users  *storage.UserRepository
	relay  *realtime.Relay
	log    *log.Logger
}

func NewChoreHandler(chores *storage.ChoreRepository, users *storage.UserRepository, relay *realtime.Relay) *ChoreHandler {
	return &ChoreHandler{
		chores: chores,
		users:  users,
		relay:  relay,
		log:    logger.Handler("chore_handler"),
	}
}

// GetAllChores handles GET /api/chores: every chore visible to the caller.
func (h *ChoreHandler) GetAllChores(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	all, err := h.chores.GetAll(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list chores", "error", err)
		response.InternalServerError(c, "Failed to list chores")
		return
	}

	visible := make([]chore.Chore, 0, len(all))
	for _, candidate := range all {
		if access.CanView(candidate, u.ID) {
			visible = append(visible, candidate)
		}
	}
	c.JSON(http.StatusOK, visible)
}

// GetChore handles GET /api/chores/:id
func (h *ChoreHandler) GetChore(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	current, done := h.loadChore(c)
	if done {
		return
	}
	if !access.CanView(current, u.ID) {
		response.ForbiddenError(c, "You do not have access to this chore")
		return
	}
	c.JSON(http.StatusOK, current)
}

type CreateChoreRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateChore handles POST /api/chores. The creator becomes the owner and is
// enrolled as the first person in the rotation.
func (h *ChoreHandler) CreateChore(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	var req CreateChoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}
	if err := validation.ValidateMaxLength(req.Name, maxChoreNameLength, "name"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	created := chore.NewChore(req.Name, u.ID, u.Name)

	if err := h.chores.Save(c.Request.Context(), created); err != nil {
		h.log.Error("Failed to save chore", "chore_id", created.ID, "error", err)
		response.InternalServerError(c, "Failed to create chore")
		return
	}

	u.JoinChore(created.ID)
	if err := h.users.Save(c.Request.Context(), u); err != nil {
		h.log.Error("Failed to update user membership", "user_id", u.ID, "error", err)
		response.InternalServerError(c, "Failed to update user")
		return
	}

	if err := h.relay.Publish(c.Request.Context(), chore.NewCreatedEvent(created)); err != nil {
		h.log.Error("Failed to publish create event", "chore_id", created.ID, "error", err)
		response.InternalServerError(c, "Failed to publish update")
		return
	}

	c.JSON(http.StatusCreated, created)
}

// DeleteChore handles DELETE /api/chores/:id. Owner only.
func (h *ChoreHandler) DeleteChore(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	current, done := h.loadChore(c)
	if done {
		return
	}
	if !access.CanMutate(current, u.ID, access.OpDelete) {
		response.ForbiddenError(c, "Only the owner can delete a chore")
		return
	}

	audience := access.Audience(current)

	if _, err := h.chores.Delete(c.Request.Context(), current.ID); err != nil {
		h.log.Error("Failed to delete chore", "chore_id", current.ID, "error", err)
		response.InternalServerError(c, "Failed to delete chore")
		return
	}

	// Keep the denormalized membership indexes in step with the deletion.
	for _, memberID := range audience {
		member, err := h.users.GetByID(c.Request.Context(), memberID)
		if err != nil {
			continue
		}
		member.LeaveChore(current.ID)
		if err := h.users.Save(c.Request.Context(), member); err != nil {
			h.log.Warn("Failed to update membership after delete", "user_id", memberID, "error", err)
		}
	}

	if err := h.relay.Publish(c.Request.Context(), chore.NewDeletedEvent(current.ID)); err != nil {
		h.log.Error("Failed to publish delete event", "chore_id", current.ID, "error", err)
		response.InternalServerError(c, "Failed to publish update")
		return
	}

	response.SuccessResponse(c, http.StatusOK, "Chore deleted successfully", nil)
}

type AddPersonRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AddPerson handles POST /api/chores/:id/people. A person is added either as
// a free-text name or, when an email is given, by resolving it to a
// registered account which is then granted access.
func (h *ChoreHandler) AddPerson(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	var req AddPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequestError(c, "Invalid request payload")
		return
	}
	if req.Name == "" && req.Email == "" {
		response.BadRequestError(c, "Either name or email is required")
		return
	}

	current, done := h.loadChore(c)
	if done {
		return
	}
	if !access.CanMutate(current, u.ID, access.OpAddPerson) {
		response.ForbiddenError(c, "You do not have access to this chore")
		return
	}

	name := req.Name
	userID := ""
	if req.Email != "" {
		if err := validation.ValidateEmail(req.Email); err != nil {
			response.BadRequestError(c, err.Error())
			return
		}
		account, err := h.users.GetByEmail(c.Request.Context(), req.Email)
		if errors.Is(err, storage.ErrNotFound) {
			response.NotFoundError(c, "No account with this email")
			return
		}
		if err != nil {
			h.log.Error("Failed to resolve email", "error", err)
			response.InternalServerError(c, "Failed to resolve email")
			return
		}
		name = account.Name
		userID = account.ID
	}

	next, person, err := current.AddPerson(name, userID)
	if err != nil {
		switch {
		case errors.Is(err, chore.ErrDuplicateName):
			response.BadRequestError(c, "Person with this name already exists")
		case errors.Is(err, chore.ErrAlreadyMember):
			response.BadRequestError(c, "User is already part of this chore")
		default:
			response.BadRequestError(c, err.Error())
		}
		return
	}
	if userID != "" {
		next = shareWith(next, userID)
	}

	if err := h.chores.Save(c.Request.Context(), next); err != nil {
		h.log.Error("Failed to save chore", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to save chore")
		return
	}

	if userID != "" {
		account, err := h.users.GetByID(c.Request.Context(), userID)
		if err == nil {
			account.JoinChore(next.ID)
			if err := h.users.Save(c.Request.Context(), account); err != nil {
				h.log.Warn("Failed to update membership", "user_id", userID, "error", err)
			}
		}
	}

	if err := h.relay.Publish(c.Request.Context(), chore.NewPersonAddedEvent(next, person, false)); err != nil {
		h.log.Error("Failed to publish add event", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to publish update")
		return
	}

	c.JSON(http.StatusOK, next)
}

// RemovePerson handles DELETE /api/chores/:id/people/:person_id. The owner
// can remove anyone except their own slot; everyone else can only remove
// themselves.
func (h *ChoreHandler) RemovePerson(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	current, done := h.loadChore(c)
	if done {
		return
	}

	personID := c.Param("person_id")
	target, found := findPerson(current, personID)
	if !found {
		response.NotFoundError(c, "Person not found")
		return
	}
	if !access.CanRemovePerson(current, u.ID, target) {
		response.ForbiddenError(c, "You cannot remove this person")
		return
	}

	next, removed, err := current.RemovePerson(personID)
	if err != nil {
		if errors.Is(err, chore.ErrPersonNotFound) {
			response.NotFoundError(c, "Person not found")
			return
		}
		response.BadRequestError(c, err.Error())
		return
	}
	if removed.UserID != "" {
		next = unshareWith(next, removed.UserID)
	}

	if err := h.chores.Save(c.Request.Context(), next); err != nil {
		h.log.Error("Failed to save chore", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to save chore")
		return
	}

	if removed.UserID != "" {
		account, err := h.users.GetByID(c.Request.Context(), removed.UserID)
		if err == nil {
			account.LeaveChore(next.ID)
			if err := h.users.Save(c.Request.Context(), account); err != nil {
				h.log.Warn("Failed to update membership", "user_id", removed.UserID, "error", err)
			}
		}
	}

	self := removed.UserID != "" && removed.UserID == u.ID
	if err := h.relay.Publish(c.Request.Context(), chore.NewPersonRemovedEvent(next, removed, self)); err != nil {
		h.log.Error("Failed to publish remove event", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to publish update")
		return
	}

	c.JSON(http.StatusOK, next)
}

// AdvanceQueue handles POST /api/chores/:id/advance
func (h *ChoreHandler) AdvanceQueue(c *gin.Context) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		response.UnauthorizedError(c, "Authentication required")
		return
	}

	current, done := h.loadChore(c)
	if done {
		return
	}
	if !access.CanMutate(current, u.ID, access.OpAdvance) {
		response.ForbiddenError(c, "You do not have access to this chore")
		return
	}

	next, nowUp, err := current.Advance()
	if err != nil {
		if errors.Is(err, chore.ErrEmptyQueue) {
			response.BadRequestError(c, "No people in chore")
			return
		}
		response.BadRequestError(c, err.Error())
		return
	}

	if err := h.chores.Save(c.Request.Context(), next); err != nil {
		h.log.Error("Failed to save chore", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to save chore")
		return
	}

	if err := h.relay.Publish(c.Request.Context(), chore.NewQueueAdvancedEvent(next, nowUp)); err != nil {
		h.log.Error("Failed to publish advance event", "chore_id", next.ID, "error", err)
		response.InternalServerError(c, "Failed to publish update")
		return
	}

	c.JSON(http.StatusOK, next)
}

// loadChore fetches the chore named by the :id route parameter. It reports
// true when it has already written an error response.
func (h *ChoreHandler) loadChore(c *gin.Context) (chore.Chore, bool) {
	choreID := c.Param("id")
	current, err := h.chores.GetByID(c.Request.Context(), choreID)
	if errors.Is(err, storage.ErrNotFound) {
		response.NotFoundError(c, "Chore not found")
		return chore.Chore{}, true
	}
	if err != nil {
		h.log.Error("Failed to load chore", "chore_id", choreID, "error", err)
		response.InternalServerError(c, "Failed to load chore")
		return chore.Chore{}, true
	}
	return current, false
}

func findPerson(c chore.Chore, personID string) (chore.Person, bool) {
	for _, p := range c.People {
		if p.ID == personID {
			return p, true
		}
	}
	return chore.Person{}, false
}

// shareWith grants the user access, keeping SharedWith (the authoritative
// access list) in step with the person slots. The owner is never listed.
func shareWith(c chore.Chore, userID string) chore.Chore {
	if userID == c.OwnerID || slices.Contains(c.SharedWith, userID) {
		return c
	}
	c.SharedWith = append(append([]string{}, c.SharedWith...), userID)
	return c
}

func unshareWith(c chore.Chore, userID string) chore.Chore {
	shared := make([]string, 0, len(c.SharedWith))
	for _, id := range c.SharedWith {
		if id != userID {
			shared = append(shared, id)
		}
	}
	c.SharedWith = shared
	return c
}
