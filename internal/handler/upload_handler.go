package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/service"
	"ai-chatbot-go/pkg/log"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UploadHandler 处理附件上传。
type UploadHandler struct {
	uploads service.UploadService
}

// NewUploadHandler 创建一个新的 UploadHandler 实例。
func NewUploadHandler(uploads service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload 处理 POST /api/files/upload，表单字段名为 file。
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxUploadSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File size should be less than 5MB"})
			return
		}
		log.Warnf("Upload: no file in request, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Error("Upload: 打开上传文件失败", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
		return
	}
	defer file.Close()

	obj, err := h.uploads.Upload(
		c.Request.Context(),
		middleware.CurrentUser(c),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		if statusFor(err) >= http.StatusInternalServerError {
			log.Error("Upload: 上传失败", err)
		}
		jsonError(c, err, "Upload failed")
		return
	}
	c.JSON(http.StatusOK, obj)
}
