package middleware

import (
	"ai-chatbot-go/pkg/metrics"
	"ai-chatbot-go/pkg/ratelimit"
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter 对一个身份执行一次限流判定，后端不可用时放行。
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) ratelimit.Result
}

// ClientIP 返回请求来源 IP：优先 X-Forwarded-For 的第一项，其次 X-Real-IP，都没有时为 127.0.0.1。
func ClientIP(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.GetHeader("X-Real-IP")); realIP != "" {
		return realIP
	}
	return "127.0.0.1"
}

// SetRateLimitHeaders 写入 X-RateLimit-* 响应头，Reset 为毫秒时间戳。
func SetRateLimitHeaders(c *gin.Context, res ratelimit.Result) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.UnixMilli(), 10))
}

// RecordDecision 记录一次限流判定。
func RecordDecision(scope string, res ratelimit.Result) {
	result := "allowed"
	if !res.Success {
		result = "limited"
	}
	metrics.RateLimitDecisions.WithLabelValues(scope, result).Inc()
}

// RateLimitByIP 按来源 IP 对所有请求限流。
func RateLimitByIP(limiter RateLimiter, rule ratelimit.Rule) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := limiter.Allow(c.Request.Context(), ClientIP(c), rule)
		RecordDecision(rule.Name, res)
		if res.Success {
			c.Next()
			return
		}

		SetRateLimitHeaders(c, res)
		retry := int(math.Ceil(time.Until(res.Reset).Seconds()))
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":     "Too many requests",
			"limit":     res.Limit,
			"remaining": res.Remaining,
			"reset":     res.Reset.UnixMilli(),
		})
	}
}
