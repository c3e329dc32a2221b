package repository

import (
	"ai-chatbot-go/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoteRepository 定义了投票的持久化操作。
type VoteRepository interface {
	// Upsert 写入投票，同一 (chatId, messageId) 已存在时覆盖 isUpvoted。
	Upsert(ctx context.Context, vote *model.Vote) error
	ListByChat(ctx context.Context, chatID string) ([]model.Vote, error)
}

type voteRepository struct {
	db *gorm.DB
}

// NewVoteRepository 创建一个新的 VoteRepository 实例。
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db}
}

func (r *voteRepository) Upsert(ctx context.Context, vote *model.Vote) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}, {Name: "message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_upvoted"}),
	}).Create(vote).Error
}

func (r *voteRepository) ListByChat(ctx context.Context, chatID string) ([]model.Vote, error) {
	var votes []model.Vote
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Find(&votes).Error
	return votes, err
}
