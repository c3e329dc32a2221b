package database

import (
	"ai-chatbot-go/pkg/log"
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

var RDB *redis.Client

// InitRedis 初始化 Redis 客户端连接。
// addr 为空时不创建客户端，依赖 Redis 的组件会以降级方式运行。
func InitRedis(addr, password string, db int) {
	if addr == "" {
		log.Warnf("未配置 Redis，缓存与限流将以降级模式运行")
		return
	}
	RDB = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to redis", err)
	}

	log.Info("Redis client connected successfully")
}
