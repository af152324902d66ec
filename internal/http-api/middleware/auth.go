package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/service"
	"bookshare/internal/models"
	"bookshare/internal/session"
)

// Context keys set by AuthMiddleware.
const (
	KeySession = "session"
	KeyActor   = "actor"
	KeyUserID  = "userID"
	KeyEmail   = "email"
	KeyRole    = "role"
)

// AuthMiddleware resolves the Bearer token into a session. A session that
// cannot be resolved yet (profile store unreachable) gets 503, not 401.
func AuthMiddleware(auth service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		sess, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session unavailable, try again"})
			c.Abort()
			return
		}
		if sess.Phase == session.PhaseAnonymous {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		// Set user info in context for handlers to use
		c.Set(KeySession, sess)
		c.Set(KeyUserID, sess.UID)
		c.Set(KeyEmail, sess.Email)
		if sess.Phase == session.PhaseReady {
			actor := sess.Actor()
			c.Set(KeyActor, actor)
			c.Set(KeyRole, actor.Role)
		}

		c.Next()
	}
}

// RequireProfile rejects sessions that have not finished sign-up.
func RequireProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ActorFrom(c); !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "complete your profile first"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole admits only actors holding one of roles.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "complete your profile first"})
			c.Abort()
			return
		}
		for _, r := range roles {
			if actor.Role == r {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role", "required": roles})
		c.Abort()
	}
}

// ActorFrom returns the ready actor stored by AuthMiddleware.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(KeyActor)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// SessionFrom returns the session stored by AuthMiddleware.
func SessionFrom(c *gin.Context) (session.Session, bool) {
	v, ok := c.Get(KeySession)
	if !ok {
		return session.Session{}, false
	}
	sess, ok := v.(session.Session)
	return sess, ok
}
