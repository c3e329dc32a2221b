package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DocumentHandler 处理文档版本和修改建议的查询。
type DocumentHandler struct {
	docs service.DocumentService
}

func NewDocumentHandler(docs service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docs: docs}
}

// Versions 处理 GET /api/document?id=，按创建时间升序返回所有版本。
func (h *DocumentHandler) Versions(c *gin.Context) {
	docs, err := h.docs.Versions(c.Request.Context(), middleware.CurrentUser(c), c.Query("id"))
	if err != nil {
		jsonError(c, err, "Failed to get document")
		return
	}
	c.JSON(http.StatusOK, docs)
}

// Suggestions 处理 GET /api/suggestions?documentId=。
func (h *DocumentHandler) Suggestions(c *gin.Context) {
	suggestions, err := h.docs.Suggestions(c.Request.Context(), middleware.CurrentUser(c), c.Query("documentId"))
	if err != nil {
		jsonError(c, err, "Failed to get suggestions")
		return
	}
	c.JSON(http.StatusOK, suggestions)
}
