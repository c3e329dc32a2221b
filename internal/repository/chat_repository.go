package repository

import (
	"ai-chatbot-go/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// ChatPage 是分页查询聊天列表的结果。
type ChatPage struct {
	Chats   []model.Chat `json:"chats"`
	HasMore bool         `json:"hasMore"`
}

// ChatRepository 定义了聊天的持久化操作。
type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	// FindByID 返回聊天，不存在时返回 (nil, nil)。
	FindByID(ctx context.Context, id string) (*model.Chat, error)
	// ListByUser 按创建时间倒序列出用户的聊天。
	// endingBefore 非空时只返回比该聊天更早创建的记录。
	ListByUser(ctx context.Context, userID string, limit int, endingBefore string) (*ChatPage, error)
	UpdateVisibility(ctx context.Context, id string, visibility model.Visibility) error
	// Delete 删除聊天及其全部消息和投票。
	Delete(ctx context.Context, id string) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 创建一个新的 ChatRepository 实例。
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, chat *model.Chat) error {
	return r.db.WithContext(ctx).Create(chat).Error
}

func (r *chatRepository) FindByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *chatRepository) ListByUser(ctx context.Context, userID string, limit int, endingBefore string) (*ChatPage, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if endingBefore != "" {
		cursor, err := r.FindByID(ctx, endingBefore)
		if err != nil {
			return nil, err
		}
		if cursor == nil {
			return nil, ErrCursorNotFound
		}
		q = q.Where("created_at < ?", cursor.CreatedAt)
	}

	var chats []model.Chat
	// 多取一条用于判断是否还有更多
	if err := q.Order("created_at DESC").Limit(limit + 1).Find(&chats).Error; err != nil {
		return nil, err
	}
	page := &ChatPage{Chats: chats, HasMore: len(chats) > limit}
	if page.HasMore {
		page.Chats = chats[:limit]
	}
	return page, nil
}

func (r *chatRepository) UpdateVisibility(ctx context.Context, id string, visibility model.Visibility) error {
	return r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", id).Update("visibility", visibility).Error
}

func (r *chatRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Chat{}).Error
	})
}
