package model

import "time"

// Visibility 决定聊天是否对所有者之外的用户可读。
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Chat 代表一个用户与模型之间的会话。
type Chat struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string     `gorm:"type:varchar(36);index;not null" json:"userId"`
	Title      string     `gorm:"type:text;not null" json:"title"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:private" json:"visibility"`
	CreatedAt  time.Time  `gorm:"index;not null" json:"createdAt"`
}

func (Chat) TableName() string {
	return "chats"
}
