package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

// Recovery turns panics into a JSON 500 instead of gin's plain text body.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("panic recovered",
					"request_id", c.GetString(RequestIDKey),
					"path", c.Request.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				common.Fail(c, http.StatusInternalServerError, "internal error")
			}
		}()
		c.Next()
	}
}
