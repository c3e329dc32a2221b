package handler

import (
	"ai-chatbot-go/internal/middleware"
	"ai-chatbot-go/internal/service"
	"ai-chatbot-go/pkg/ratelimit"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JokeHandler 处理 GET /api/joke。
type JokeHandler struct {
	jokes   service.JokeService
	limiter middleware.RateLimiter
	rule    ratelimit.Rule
}

// NewJokeHandler 创建 JokeHandler。rule 按用户 id 限流。
func NewJokeHandler(jokes service.JokeService, limiter middleware.RateLimiter, rule ratelimit.Rule) *JokeHandler {
	return &JokeHandler{jokes: jokes, limiter: limiter, rule: rule}
}

// Get 返回一条笑话。笑话服务不会失败，上游出错时返回兜底笑话。
func (h *JokeHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	res := h.limiter.Allow(c.Request.Context(), user.ID, h.rule)
	middleware.RecordDecision(h.rule.Name, res)
	if !res.Success {
		middleware.SetRateLimitHeaders(c, res)
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":     "Rate limit exceeded",
			"limit":     res.Limit,
			"reset":     res.Reset.UnixMilli(),
			"remaining": res.Remaining,
		})
		return
	}

	category := c.DefaultQuery("category", "any")
	c.JSON(http.StatusOK, h.jokes.Tell(c.Request.Context(), category))
}
