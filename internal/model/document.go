package model

import "time"

// DocumentKind 是生成文档的类型。
type DocumentKind string

const (
	KindText  DocumentKind = "text"
	KindCode  DocumentKind = "code"
	KindSheet DocumentKind = "sheet"
)

// Valid 报告 kind 是否为已知类型。
func (k DocumentKind) Valid() bool {
	switch k {
	case KindText, KindCode, KindSheet:
		return true
	}
	return false
}

// Document 是模型生成的文档。同一个 ID 的每次修改都以新的 CreatedAt 存为一个版本。
type Document struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time    `gorm:"primaryKey" json:"createdAt"`
	Title     string       `gorm:"type:text;not null" json:"title"`
	Content   string       `gorm:"type:text" json:"content"`
	Kind      DocumentKind `gorm:"type:varchar(16);not null;default:text" json:"kind"`
	UserID    string       `gorm:"type:varchar(36);index;not null" json:"userId"`
}

func (Document) TableName() string {
	return "documents"
}

// Suggestion 是针对某个文档版本的修改建议。
type Suggestion struct {
	ID                string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DocumentID        string    `gorm:"type:varchar(36);index;not null" json:"documentId"`
	DocumentCreatedAt time.Time `gorm:"not null" json:"documentCreatedAt"`
	OriginalText      string    `gorm:"type:text;not null" json:"originalText"`
	SuggestedText     string    `gorm:"type:text;not null" json:"suggestedText"`
	Description       string    `gorm:"type:text" json:"description"`
	IsResolved        bool      `gorm:"not null;default:false" json:"isResolved"`
	UserID            string    `gorm:"type:varchar(36);not null" json:"userId"`
	CreatedAt         time.Time `gorm:"not null" json:"createdAt"`
}

func (Suggestion) TableName() string {
	return "suggestions"
}
