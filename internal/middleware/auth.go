package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harshithlanka3/chore-cycle-backend/internal/domain/user"
	"github.com/harshithlanka3/chore-cycle-backend/internal/response"
	"github.com/harshithlanka3/chore-cycle-backend/internal/storage"
)

// Context keys set by the auth middleware.
const (
	ContextUserIDKey = "auth_user_id"
	ContextUserKey   = "auth_user"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(token string) (string, error)
}

// Auth validates the Authorization bearer token and loads the account into
// the request context. Requests without a valid token are rejected with 401.
func Auth(verifier TokenVerifier, users *storage.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.UnauthorizedError(c, "Authorization token required")
			c.Abort()
			return
		}

		userID, err := verifier.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			response.UnauthorizedError(c, "Invalid authentication credentials")
			c.Abort()
			return
		}

		u, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			response.UnauthorizedError(c, "User not found")
			c.Abort()
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserKey, u)
		c.Next()
	}
}

// CurrentUser returns the account loaded by Auth, or false when the request
// is unauthenticated.
func CurrentUser(c *gin.Context) (*user.User, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	u, ok := value.(*user.User)
	return u, ok
}
