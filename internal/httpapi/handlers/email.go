package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

const maxEmailLen = 100_000

type summarizeReq struct {
	EmailContent string `json:"emailContent"`
}

func (h *Handler) SummarizeEmail(c *gin.Context) {
	var req summarizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.EmailContent) == "" {
		common.Fail(c, http.StatusBadRequest, "Email content is required")
		return
	}
	if len(req.EmailContent) > maxEmailLen {
		common.Fail(c, http.StatusBadRequest, "Email content is too long")
		return
	}

	common.OK(c, h.Summarizer.SummarizeEmail(c.Request.Context(), req.EmailContent))
}
