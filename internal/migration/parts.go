// Package migration 包含数据库 schema 迁移和旧版消息数据的转换。
package migration

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/pkg/log"
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// ChatBatchSize 是每批处理的聊天数量。
	ChatBatchSize = 50
	// InsertBatchSize 是每次批量写入的行数。
	InsertBatchSize = 100
)

// AutoMigrate 创建或更新所有表。
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Stats 汇总一次 parts 迁移的结果。
type Stats struct {
	Chats    int
	Messages int
	Votes    int
}

// MigrateParts 把 messages_legacy 中只有纯文本 content 的消息转换为 parts 格式写入 messages，
// 并把指向这些消息的投票从 votes_legacy 复制到 votes。
//
// 每个以用户消息开头的片段会转换为一条用户消息和一条合并后的助手消息，
// 合并后的助手消息沿用片段中第一条助手消息的 id 和时间。
// 单个片段或单批写入失败只记录日志并跳过；已存在的行不会被覆盖，因此可以重复执行。
func MigrateParts(ctx context.Context, db *gorm.DB) (Stats, error) {
	var stats Stats
	db = db.WithContext(ctx)

	var chatIDs []string
	if err := db.Model(&model.Chat{}).Order("created_at ASC").Pluck("id", &chatIDs).Error; err != nil {
		return stats, fmt.Errorf("load chats: %w", err)
	}

	for i := 0; i < len(chatIDs); i += ChatBatchSize {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		batch := chatIDs[i:min(i+ChatBatchSize, len(chatIDs))]

		var legacy []model.LegacyMessage
		if err := db.Where("chat_id IN ?", batch).Order("created_at ASC").Find(&legacy).Error; err != nil {
			return stats, fmt.Errorf("load legacy messages: %w", err)
		}
		var legacyVotes []model.LegacyVote
		if err := db.Where("chat_id IN ?", batch).Find(&legacyVotes).Error; err != nil {
			return stats, fmt.Errorf("load legacy votes: %w", err)
		}

		byChat := make(map[string][]model.LegacyMessage, len(batch))
		for _, m := range legacy {
			byChat[m.ChatID] = append(byChat[m.ChatID], m)
		}
		votesByMessage := make(map[string][]model.LegacyVote)
		for _, v := range legacyVotes {
			votesByMessage[v.ChatID+"/"+v.MessageID] = append(votesByMessage[v.ChatID+"/"+v.MessageID], v)
		}

		var messages []*model.Message
		var votes []*model.Vote
		for _, chatID := range batch {
			stats.Chats++
			log.Infof("Processed %d/%d chats", stats.Chats, len(chatIDs))

			for _, section := range splitSections(byChat[chatID]) {
				projected, firstAssistant, err := projectSection(section)
				if err != nil {
					log.Errorw("Error processing message section", "chatId", chatID, "error", err)
					continue
				}
				messages = append(messages, projected...)
				if firstAssistant == "" {
					continue
				}
				for _, v := range votesByMessage[chatID+"/"+firstAssistant] {
					votes = append(votes, &model.Vote{ChatID: v.ChatID, MessageID: v.MessageID, IsUpvoted: v.IsUpvoted})
				}
			}
		}

		stats.Messages += insertBatches(db, messages, "messages")
		stats.Votes += insertBatches(db, votes, "votes")
	}

	log.Infof("Migration completed: %d chats processed", stats.Chats)
	return stats, nil
}

// splitSections 按用户消息切分消息序列，每个片段以一条用户消息开头（第一个片段除外）。
func splitSections(msgs []model.LegacyMessage) [][]model.LegacyMessage {
	var sections [][]model.LegacyMessage
	var current []model.LegacyMessage
	for _, m := range msgs {
		if m.Role == model.RoleUser && len(current) > 0 {
			sections = append(sections, current)
			current = nil
		}
		current = append(current, m)
	}
	if len(current) > 0 {
		sections = append(sections, current)
	}
	return sections
}

// projectSection 把一个片段转换为新格式的消息，返回合并后的助手消息 id（没有助手消息时为空）。
func projectSection(section []model.LegacyMessage) ([]*model.Message, string, error) {
	head := section[0]
	if head.ID == "" {
		return nil, "", fmt.Errorf("message without id in chat %s", head.ChatID)
	}
	out := []*model.Message{
		model.NewMessage(head.ID, head.ChatID, head.Role, []model.Part{model.TextPart(head.Content)}, nil, head.CreatedAt),
	}

	var first *model.LegacyMessage
	var parts []model.Part
	for i, m := range section[1:] {
		if m.Role != model.RoleAssistant {
			continue
		}
		if first == nil {
			first = &section[1+i]
		}
		if m.Content != "" {
			parts = append(parts, model.TextPart(m.Content))
		}
	}
	if first == nil {
		return out, "", nil
	}
	assistant := model.NewMessage(first.ID, first.ChatID, model.RoleAssistant, parts, nil, first.CreatedAt)
	return append(out, assistant), assistant.ID, nil
}

// insertBatches 以 InsertBatchSize 为单位写入 rows，失败的批次记录日志后跳过，返回成功写入的行数。
func insertBatches[T any](db *gorm.DB, rows []*T, table string) int {
	inserted := 0
	for i := 0; i < len(rows); i += InsertBatchSize {
		chunk := rows[i:min(i+InsertBatchSize, len(rows))]
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(chunk)
		if res.Error != nil {
			log.Errorw("Error inserting "+table, "error", res.Error)
			continue
		}
		inserted += int(res.RowsAffected)
	}
	return inserted
}
