package httpapi

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/middleware"
)

type Options struct {
	CORSOrigins []string
	// StaticDir holds the built SPA. Ignored when it does not exist.
	StaticDir string
	// AuthLimiter throttles the credential endpoints; nil disables it.
	AuthLimiter *middleware.LimiterStore
}

func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.NoRoute(noRoute(opts.StaticDir))
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)

	api := r.Group("/api")
	api.Use(middleware.Session(h.Sessions, h.Store))

	limited := []gin.HandlerFunc{}
	if opts.AuthLimiter != nil {
		limited = append(limited, middleware.RateLimit(opts.AuthLimiter))
	}

	// auth
	authGroup := api.Group("/auth")
	authGroup.GET("/user", h.CurrentUser)
	authGroup.POST("/register", append(limited, h.Register)...)
	authGroup.POST("/login", append(limited, h.Login)...)
	authGroup.POST("/demo-login", append(limited, h.DemoLogin)...)
	authGroup.GET("/google", h.GoogleStart)
	authGroup.GET("/google/callback", h.GoogleCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), h.Logout)

	// session required
	private := api.Group("/")
	private.Use(middleware.AuthRequired())
	private.GET("/conversations", h.ListConversations)
	private.POST("/conversations", h.CreateConversation)
	private.GET("/conversations/:id/messages", h.ListMessages)
	private.POST("/conversations/:id/messages", h.SendMessage)
	private.POST("/email/summarize", h.SummarizeEmail)

	return r
}

// noRoute serves the SPA for non-API GETs when a build is present, and a
// JSON 404 otherwise.
func noRoute(staticDir string) gin.HandlerFunc {
	index := ""
	if staticDir != "" {
		if st, err := os.Stat(staticDir); err == nil && st.IsDir() {
			index = filepath.Join(staticDir, "index.html")
		}
	}
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if index == "" || c.Request.Method != http.MethodGet || p == "/api" || strings.HasPrefix(p, "/api/") {
			common.Fail(c, http.StatusNotFound, "route not found")
			return
		}
		file := filepath.Join(staticDir, filepath.FromSlash(path.Clean("/"+p)))
		if st, err := os.Stat(file); err == nil && !st.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	}
}
