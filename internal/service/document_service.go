package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"context"
)

// DocumentService 提供文档版本和修改建议的查询。
type DocumentService interface {
	Versions(ctx context.Context, user *model.User, id string) ([]model.Document, error)
	Suggestions(ctx context.Context, user *model.User, documentID string) ([]model.Suggestion, error)
}

type documentService struct {
	docs repository.DocumentRepository
}

func NewDocumentService(docs repository.DocumentRepository) DocumentService {
	return &documentService{docs: docs}
}

func (s *documentService) Versions(ctx context.Context, user *model.User, id string) ([]model.Document, error) {
	if id == "" {
		return nil, newError(KindBadRequest, "Missing id", nil)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	docs, err := s.docs.Versions(ctx, id)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load document", err)
	}
	if len(docs) == 0 {
		return nil, newError(KindNotFound, "Not Found", nil)
	}
	if docs[0].UserID != user.ID {
		return nil, ErrUnauthorized
	}
	return docs, nil
}

func (s *documentService) Suggestions(ctx context.Context, user *model.User, documentID string) ([]model.Suggestion, error) {
	if documentID == "" {
		return nil, newError(KindBadRequest, "Missing documentId", nil)
	}
	if user == nil {
		return nil, ErrUnauthorized
	}
	list, err := s.docs.ListSuggestions(ctx, documentID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load suggestions", err)
	}
	if len(list) == 0 {
		return []model.Suggestion{}, nil
	}
	if list[0].UserID != user.ID {
		return nil, ErrUnauthorized
	}
	return list, nil
}
