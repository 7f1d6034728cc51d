package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/models"
)

func (h *Handler) ListConversations(c *gin.Context) {
	u := currentUser(c)
	convs, err := h.ChatSvc.ListConversations(c.Request.Context(), u.ID)
	if err != nil {
		h.fail(c, err, "Failed to fetch conversations")
		return
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	common.OK(c, convs)
}

type createConversationReq struct {
	Title string `json:"title"`
}

func (h *Handler) CreateConversation(c *gin.Context) {
	u := currentUser(c)

	var req createConversationReq
	_ = c.ShouldBindJSON(&req) // allow empty body and {}

	conv, err := h.ChatSvc.CreateConversation(c.Request.Context(), u.ID, req.Title)
	if err != nil {
		h.fail(c, err, "Failed to create conversation")
		return
	}
	common.Created(c, conv)
}

func (h *Handler) ListMessages(c *gin.Context) {
	u := currentUser(c)
	id, ok := conversationID(c)
	if !ok {
		return
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), u.ID, id)
	if err != nil {
		h.fail(c, err, "Failed to fetch messages")
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	common.OK(c, msgs)
}

type sendMessageReq struct {
	Content string `json:"content"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	u := currentUser(c)
	id, ok := conversationID(c)
	if !ok {
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := chat.ValidateContent(req.Content); err != nil {
		h.fail(c, err, "Invalid message")
		return
	}

	userMsg, aiMsg, err := h.ChatSvc.SendMessage(c.Request.Context(), u.ID, id, req.Content)
	if err != nil {
		h.fail(c, err, "Failed to send message")
		return
	}
	common.OK(c, gin.H{"userMessage": userMsg, "aiMessage": aiMsg})
}
