package middleware

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/models"
	"github.com/suPer8Hu/ai-assistant/internal/session"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

const UserKey = "user"

// Session resolves the session cookie to a user once per request and
// attaches it under UserKey. Anonymous requests pass through untouched.
func Session(sessions *session.Manager, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok, err := sessions.UserID(c)
		if err != nil {
			log.Error("session lookup failed", "request_id", c.GetString(RequestIDKey), "err", err)
		}
		if ok {
			u, err := store.GetUser(c.Request.Context(), uid)
			switch {
			case err == nil:
				c.Set(UserKey, u)
			case errors.Is(err, common.ErrNotFound):
				// user vanished; treat as logged out
			default:
				log.Error("session user lookup failed", "request_id", c.GetString(RequestIDKey), "user_id", uid, "err", err)
			}
		}
		c.Next()
	}
}

// AuthRequired rejects requests without a session user with 401 before any
// handler runs.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			common.Fail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*models.User)
	return u, ok && u != nil
}
