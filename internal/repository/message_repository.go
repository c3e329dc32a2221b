package repository

import (
	"ai-chatbot-go/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// MessageRepository 定义了消息的持久化操作。消息写入后不再修改。
type MessageRepository interface {
	Save(ctx context.Context, messages ...*model.Message) error
	ListByChat(ctx context.Context, chatID string) ([]model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建一个新的 MessageRepository 实例。
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Save(ctx context.Context, messages ...*model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(messages).Error
}

// ListByChat 按创建时间升序返回聊天中的消息。
func (r *messageRepository) ListByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	var msgs []model.Message
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&msgs).Error
	return msgs, err
}

// FindByID 返回消息，不存在时返回 (nil, nil)。
func (r *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
