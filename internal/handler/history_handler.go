package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/service"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 处理 GET /api/history。
type HistoryHandler struct {
	history service.HistoryService
}

func NewHistoryHandler(history service.HistoryService) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// List 按时间倒序分页返回当前用户的聊天，ending_before 为上一页最后一个聊天的 id。
func (h *HistoryHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	page, err := h.history.List(c.Request.Context(), middleware.CurrentUser(c), limit, c.Query("ending_before"))
	if err != nil {
		jsonError(c, err, "Failed to fetch chats")
		return
	}
	c.JSON(http.StatusOK, page)
}
