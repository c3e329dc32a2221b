package model

// Vote 是用户对一条助手消息的评价，(ChatID, MessageID) 联合主键保证每条消息最多一票。
type Vote struct {
	ChatID    string `gorm:"primaryKey;type:varchar(36)" json:"chatId"`
	MessageID string `gorm:"primaryKey;type:varchar(36)" json:"messageId"`
	IsUpvoted bool   `gorm:"not null" json:"isUpvoted"`
}

func (Vote) TableName() string {
	return "votes"
}

// LegacyVote 是旧版消息结构对应的投票表，仅供迁移使用。
type LegacyVote struct {
	ChatID    string `gorm:"primaryKey;type:varchar(36)"`
	MessageID string `gorm:"primaryKey;type:varchar(36)"`
	IsUpvoted bool   `gorm:"not null"`
}

func (LegacyVote) TableName() string {
	return "votes_legacy"
}
