// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"ai-chatbot-go/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

// statusFor 把服务层错误分类映射为 HTTP 状态码。
func statusFor(err error) int {
	switch service.KindOf(err) {
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindBadRequest:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindRateLimited:
		return http.StatusTooManyRequests
	case service.KindUpstream:
		return http.StatusBadGateway
	case service.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// jsonError 以 {"error": ...} 返回服务层错误。
func jsonError(c *gin.Context, err error, fallback string) {
	c.JSON(statusFor(err), gin.H{"error": service.MessageOf(err, fallback)})
}

// textError 以纯文本返回服务层错误，聊天接口使用这种格式。
func textError(c *gin.Context, err error, fallback string) {
	c.String(statusFor(err), service.MessageOf(err, fallback))
}
