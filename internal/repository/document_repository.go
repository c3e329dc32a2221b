package repository

import (
	"ai-chatbot-go/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

// DocumentRepository 定义了文档及修改建议的持久化操作。
type DocumentRepository interface {
	// Save 保存文档的一个新版本。
	Save(ctx context.Context, doc *model.Document) error
	// Latest 返回文档的最新版本，不存在时返回 (nil, nil)。
	Latest(ctx context.Context, id string) (*model.Document, error)
	// Versions 按创建时间升序返回文档的全部版本。
	Versions(ctx context.Context, id string) ([]model.Document, error)
	SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error
	ListSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error)
}

type documentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository 创建一个新的 DocumentRepository 实例。
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Save(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepository) Latest(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Order("created_at DESC").First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) Versions(ctx context.Context, id string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).Order("created_at ASC").Find(&docs).Error
	return docs, err
}

func (r *documentRepository) SaveSuggestions(ctx context.Context, suggestions []model.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&suggestions).Error
}

func (r *documentRepository) ListSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error) {
	var out []model.Suggestion
	err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at ASC").Find(&out).Error
	return out, err
}
