// Package middleware 提供了处理 HTTP 请求的中间件。
package middleware

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/service"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userKey = "user"

// BearerToken 从 Authorization 头中提取 token。
// WebSocket 握手无法自定义请求头，因此也接受 ?token= 查询参数。
func BearerToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
	}
	return c.Query("token")
}

// Session 创建一个 Gin 中间件，解析可选的登录会话。
// token 有效时把 *model.User 存入上下文；无 token 或 token 无效时不拦截，由各路由自行决定如何返回 401。
func Session(users service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := BearerToken(c); tok != "" {
			if user, err := users.Authenticate(c.Request.Context(), tok); err == nil {
				c.Set(userKey, user)
			}
		}
		c.Next()
	}
}

// CurrentUser 返回 Session 中间件解析出的用户，未登录时返回 nil。
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

// RequireAuth 要求请求已登录，否则返回 JSON 格式的 401。
// 此中间件必须在 Session 之后使用。
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
