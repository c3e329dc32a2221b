// Package ratelimit 基于 Redis 实现按身份的滑动窗口限流。
package ratelimit

import (
	"ai-chatbot-go/pkg/log"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 当前窗口计数加上按剩余比例折算的上一窗口计数，超过上限即拒绝。
// 返回剩余配额，被拒绝时返回 -1。
var slidingWindowScript = redis.NewScript(`
local currentKey  = KEYS[1]
local previousKey = KEYS[2]
local tokens      = tonumber(ARGV[1])
local now         = tonumber(ARGV[2])
local window      = tonumber(ARGV[3])
local incrementBy = tonumber(ARGV[4])

local current = tonumber(redis.call("GET", currentKey) or "0")
local previous = tonumber(redis.call("GET", previousKey) or "0")

local percentageInCurrent = (now % window) / window
previous = math.floor((1 - percentageInCurrent) * previous)
if previous + current >= tokens then
  return -1
end

local newValue = redis.call("INCRBY", currentKey, incrementBy)
if newValue == incrementBy then
  redis.call("PEXPIRE", currentKey, window * 2 + 1000)
end
return tokens - (newValue + previous)
`)

// Rule 是一个滑动窗口规则：Window 时间内最多 Limit 次。
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result 是一次限流判定的结果。
type Result struct {
	Success   bool
	Limit     int
	Remaining int
	// Reset 是当前窗口结束的时间点。
	Reset time.Time
}

// Limiter 是滑动窗口限流器。
type Limiter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
	// Production 为 true 时，放行降级会记录 warn 日志。
	Production bool
}

// New 创建一个限流器。rdb 为 nil 表示后端未配置。
func New(rdb *redis.Client, prefix string) *Limiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &Limiter{rdb: rdb, prefix: prefix, now: time.Now}
}

// Configured 报告是否配置了后端。
func (l *Limiter) Configured() bool {
	return l != nil && l.rdb != nil
}

// ErrNotConfigured 表示未配置限流后端。
var ErrNotConfigured = errors.New("ratelimit: backend not configured")

// Limit 为 identifier 消耗一次配额。
func (l *Limiter) Limit(ctx context.Context, identifier string, rule Rule) (Result, error) {
	if !l.Configured() {
		return Result{}, ErrNotConfigured
	}
	windowMs := rule.Window.Milliseconds()
	if windowMs <= 0 || rule.Limit <= 0 {
		return Result{}, fmt.Errorf("ratelimit: invalid rule %+v", rule)
	}

	nowMs := l.now().UnixMilli()
	currentWindow := nowMs / windowMs
	base := fmt.Sprintf("%s:%s:%s", l.prefix, rule.Name, identifier)
	keys := []string{
		fmt.Sprintf("%s:%d", base, currentWindow),
		fmt.Sprintf("%s:%d", base, currentWindow-1),
	}

	remaining, err := slidingWindowScript.Run(ctx, l.rdb, keys, rule.Limit, nowMs, windowMs, 1).Int64()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: %w", err)
	}

	res := Result{
		Success:   remaining >= 0,
		Limit:     rule.Limit,
		Remaining: int(remaining),
		Reset:     time.UnixMilli((currentWindow + 1) * windowMs),
	}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	return res, nil
}

// Allow 与 Limit 相同，但后端未配置或不可用时放行请求（fail-open）。
func (l *Limiter) Allow(ctx context.Context, identifier string, rule Rule) Result {
	res, err := l.Limit(ctx, identifier, rule)
	if err == nil {
		return res
	}
	if l != nil && l.Production {
		log.Warnw("限流后端不可用，放行请求", "rule", rule.Name, "identifier", identifier, "error", err)
	}
	return Result{Success: true, Limit: rule.Limit, Remaining: rule.Limit}
}
