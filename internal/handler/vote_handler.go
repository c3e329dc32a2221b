package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/service"
	"ai-chatbot-go/pkg/log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// VoteHandler 处理 /api/vote。
type VoteHandler struct {
	votes service.VoteService
}

func NewVoteHandler(votes service.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

// VoteRequest 是 PATCH /api/vote 的请求体。
type VoteRequest struct {
	ChatID    string           `json:"chatId"`
	MessageID string           `json:"messageId"`
	Type      service.VoteType `json:"type"`
}

// List 返回聊天中的所有投票。
func (h *VoteHandler) List(c *gin.Context) {
	votes, err := h.votes.List(c.Request.Context(), middleware.CurrentUser(c), c.Query("chatId"))
	if err != nil {
		jsonError(c, err, "Failed to get votes")
		return
	}
	c.JSON(http.StatusOK, votes)
}

// Vote 对一条消息投票，重复投票覆盖之前的结果。
func (h *VoteHandler) Vote(c *gin.Context) {
	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Vote: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "messageId and type are required"})
		return
	}
	if err := h.votes.Vote(c.Request.Context(), middleware.CurrentUser(c), req.ChatID, req.MessageID, req.Type); err != nil {
		jsonError(c, err, "Failed to vote")
		return
	}
	c.String(http.StatusOK, "Message voted")
}
