package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bookshare/internal/http-api/middleware"
	"bookshare/internal/lifecycle"
	"bookshare/internal/models"
	"bookshare/internal/session"
	"bookshare/internal/store"
)

const requestTimeout = 5 * time.Second

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrInvalidState),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, session.ErrEmailInUse):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, lifecycle.ErrInvalidInput),
		errors.Is(err, session.ErrInvalidAccount),
		errors.Is(err, session.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, lifecycle.ErrStoreUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Server-side failures are recorded on
// the gin context for the request logger and not echoed to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		c.Error(err)
		msg = "service temporarily unavailable"
	case http.StatusInternalServerError:
		c.Error(err)
		msg = "internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}

// actor fetches the ready actor or writes 403.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "complete your profile first"})
	}
	return a, ok
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
