// Package cache 在 Redis 之上实现通用的读穿透缓存。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultTTL 是未指定 TTL 时的缓存时长。
const DefaultTTL = time.Hour

// ErrNilValue 表示 producer 没有产出值，视为 producer 失败。
var ErrNilValue = errors.New("producer returned nil")

// Error 是缓存层唯一对外的错误类型，携带出错的 key 和原始原因。
type Error struct {
	Op  string // get / invalidate / invalidate-pattern
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s failed for key %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cache 封装 Redis 客户端。rdb 为 nil 时缓存被禁用，每次都直接调用 producer。
type Cache struct {
	rdb        *redis.Client
	defaultTTL time.Duration
}

// New 创建一个 Cache。defaultTTL <= 0 时使用 DefaultTTL。
func New(rdb *redis.Client, defaultTTL time.Duration) *Cache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &Cache{rdb: rdb, defaultTTL: defaultTTL}
}

// Enabled 报告是否配置了后端存储。
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

type options struct {
	ttl        time.Duration
	forceFresh bool
}

// Option 配置单次 Get 调用。
type Option func(*options)

// WithTTL 指定本次写入的过期时间。
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// ForceFresh 跳过读取，总是调用 producer 并覆盖缓存。
func ForceFresh() Option {
	return func(o *options) { o.forceFresh = true }
}

// Get 按 key 读取缓存，未命中时调用 producer 并写回。
// 值以 JSON 编码存储。任何一步失败都返回 *Error。c 为 nil 时直接调用 producer。
func Get[T any](ctx context.Context, c *Cache, key string, producer func(context.Context) (*T, error), opts ...Option) (*T, error) {
	o := options{ttl: DefaultTTL}
	if c != nil {
		o.ttl = c.defaultTTL
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.ttl <= 0 {
		o.ttl = DefaultTTL
	}

	if c.Enabled() && !o.forceFresh {
		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, &Error{Op: "get", Key: key, Err: err}
			}
			return &v, nil
		case !errors.Is(err, redis.Nil):
			return nil, &Error{Op: "get", Key: key, Err: err}
		}
	}

	fresh, err := producer(ctx)
	if err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	if fresh == nil {
		return nil, &Error{Op: "get", Key: key, Err: ErrNilValue}
	}

	if c.Enabled() {
		raw, err := json.Marshal(fresh)
		if err != nil {
			return nil, &Error{Op: "get", Key: key, Err: err}
		}
		if err := c.rdb.Set(ctx, key, raw, o.ttl).Err(); err != nil {
			return nil, &Error{Op: "get", Key: key, Err: err}
		}
	}
	return fresh, nil
}

// Invalidate 删除单个 key，key 不存在时不报错。
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return &Error{Op: "invalidate", Key: key, Err: err}
	}
	return nil
}

// InvalidatePattern 一次性删除所有匹配 glob 模式的 key。
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	if !c.Enabled() {
		return nil
	}
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return &Error{Op: "invalidate-pattern", Key: pattern, Err: err}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return &Error{Op: "invalidate-pattern", Key: pattern, Err: err}
	}
	return nil
}
