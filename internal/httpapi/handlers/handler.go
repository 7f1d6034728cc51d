package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/auth"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/middleware"
	"github.com/suPer8Hu/ai-assistant/internal/models"
	"github.com/suPer8Hu/ai-assistant/internal/session"
	"github.com/suPer8Hu/ai-assistant/internal/storage"
)

// Summarizer is the part of ai.Assistant the email route needs.
type Summarizer interface {
	SummarizeEmail(ctx context.Context, raw string) ai.EmailSummary
}

type Handler struct {
	Store      storage.Storage
	ChatSvc    *chat.Service
	Summarizer Summarizer
	Sessions   *session.Manager
	Google     auth.IdentityProvider
	State      *auth.StateSigner
	Secure     bool
	logger     *log.Logger
}

type Deps struct {
	Store      storage.Storage
	ChatSvc    *chat.Service
	Summarizer Summarizer
	Sessions   *session.Manager
	// Google may be nil when OAuth is not configured.
	Google auth.IdentityProvider
	State  *auth.StateSigner
	Secure bool
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		Store:      d.Store,
		ChatSvc:    d.ChatSvc,
		Summarizer: d.Summarizer,
		Sessions:   d.Sessions,
		Google:     d.Google,
		State:      d.State,
		Secure:     d.Secure,
		logger:     log.Default().WithPrefix("http"),
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// currentUser is only called behind AuthRequired.
func currentUser(c *gin.Context) *models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

func conversationID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		common.Fail(c, http.StatusBadRequest, "Invalid conversation ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if common.StatusOf(err) == http.StatusInternalServerError {
		h.logger.Error(fallback, "request_id", c.GetString(middleware.RequestIDKey), "path", c.FullPath(), "err", err)
	}
	common.FailErr(c, err, fallback)
}
