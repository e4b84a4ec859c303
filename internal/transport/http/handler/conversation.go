package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"secondbrain/internal/app"
	"secondbrain/internal/transport/http/response"
)

type ConversationHandler struct {
	conversationService *app.ConversationService
}

type CreateConversationRequest struct {
	Title string `json:"title" binding:"max=256"`
}

func NewConversationHandler(conversationService *app.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req CreateConversationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
	}

	conv, err := h.conversationService.Create(c.Request.Context(), req.Title)
	if err != nil {
		writeError(c, err, "create conversation")
		return
	}
	response.OK(c, conv)
}

func (h *ConversationHandler) List(c *gin.Context) {
	list, err := h.conversationService.List(c.Request.Context(), queryLimit(c, 50))
	if err != nil {
		writeError(c, err, "list conversations")
		return
	}
	response.OK(c, gin.H{"conversations": list, "total": len(list)})
}

func (h *ConversationHandler) Messages(c *gin.Context) {
	messages, err := h.conversationService.History(c.Request.Context(), c.Param("id"), queryLimit(c, 100))
	if err != nil {
		writeError(c, err, "list messages")
		return
	}
	response.OK(c, gin.H{"messages": messages})
}

func queryLimit(c *gin.Context, fallback int) int {
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
