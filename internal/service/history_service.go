package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"ai-chatbot-go/pkg/cache"
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

func historyKey(userID string, limit int, endingBefore string) string {
	return fmt.Sprintf("history:%s:%d:%s", userID, limit, endingBefore)
}

func historyKeyPattern(userID string) string {
	return "history:" + userID + ":*"
}

// HistoryService 提供聊天列表查询。
type HistoryService interface {
	List(ctx context.Context, user *model.User, limit int, endingBefore string) (*repository.ChatPage, error)
}

type historyService struct {
	chats repository.ChatRepository
	cache *cache.Cache
	ttl   time.Duration
}

// NewHistoryService 创建一个新的 HistoryService。结果按用户缓存 ttl 时长。
func NewHistoryService(chats repository.ChatRepository, c *cache.Cache, ttl time.Duration) HistoryService {
	return &historyService{chats: chats, cache: c, ttl: ttl}
}

func (s *historyService) List(ctx context.Context, user *model.User, limit int, endingBefore string) (*repository.ChatPage, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	page, err := cache.Get(ctx, s.cache, historyKey(user.ID, limit, endingBefore), func(ctx context.Context) (*repository.ChatPage, error) {
		return s.chats.ListByUser(ctx, user.ID, limit, endingBefore)
	}, cache.WithTTL(s.ttl))
	if err != nil {
		if errors.Is(err, repository.ErrCursorNotFound) {
			return nil, newError(KindNotFound, fmt.Sprintf("Chat with id %s not found", endingBefore), err)
		}
		return nil, newError(KindInternal, "Failed to fetch chat history", err)
	}
	if page.Chats == nil {
		page.Chats = []model.Chat{}
	}
	return page, nil
}
