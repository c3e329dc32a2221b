package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"context"
)

// VoteType 是 PATCH /api/vote 中的投票方向。
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// VoteService 提供消息投票的读写。
type VoteService interface {
	List(ctx context.Context, user *model.User, chatID string) ([]model.Vote, error)
	Vote(ctx context.Context, user *model.User, chatID, messageID string, t VoteType) error
}

type voteService struct {
	chats repository.ChatRepository
	votes repository.VoteRepository
}

func NewVoteService(chats repository.ChatRepository, votes repository.VoteRepository) VoteService {
	return &voteService{chats: chats, votes: votes}
}

// ownedChat 校验聊天存在且属于 user。
func ownedChat(ctx context.Context, chats repository.ChatRepository, user *model.User, chatID string) error {
	if user == nil {
		return ErrUnauthorized
	}
	chat, err := chats.FindByID(ctx, chatID)
	if err != nil {
		return newError(KindInternal, "Failed to load chat", err)
	}
	if chat == nil {
		return newError(KindNotFound, "Chat not found", nil)
	}
	if chat.UserID != user.ID {
		return ErrUnauthorized
	}
	return nil
}

func (s *voteService) List(ctx context.Context, user *model.User, chatID string) ([]model.Vote, error) {
	if chatID == "" {
		return nil, newError(KindBadRequest, "chatId is required", nil)
	}
	if err := ownedChat(ctx, s.chats, user, chatID); err != nil {
		return nil, err
	}
	votes, err := s.votes.ListByChat(ctx, chatID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load votes", err)
	}
	if votes == nil {
		votes = []model.Vote{}
	}
	return votes, nil
}

func (s *voteService) Vote(ctx context.Context, user *model.User, chatID, messageID string, t VoteType) error {
	if chatID == "" || messageID == "" || (t != VoteUp && t != VoteDown) {
		return newError(KindBadRequest, "messageId and type are required", nil)
	}
	if err := ownedChat(ctx, s.chats, user, chatID); err != nil {
		return err
	}
	if err := s.votes.Upsert(ctx, &model.Vote{ChatID: chatID, MessageID: messageID, IsUpvoted: t == VoteUp}); err != nil {
		return newError(KindInternal, "Failed to vote", err)
	}
	return nil
}
