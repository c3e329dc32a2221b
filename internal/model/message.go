package model

import (
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// PartsSchemaVersion 是当前 parts 存储结构的版本号，随 Message 一起落库。
const PartsSchemaVersion = 2

// Role 是消息的作者角色。
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleData      Role = "data"
)

// PartType 是消息片段的判别字段。
type PartType string

const (
	PartText           PartType = "text"
	PartReasoning      PartType = "reasoning"
	PartToolInvocation PartType = "tool-invocation"
	PartStepStart      PartType = "step-start"
)

// ToolState 描述一次工具调用所处的阶段。
type ToolState string

const (
	ToolStateCall   ToolState = "call"
	ToolStateResult ToolState = "result"
)

// Part 是消息内容的一个片段，Type 决定其余哪些字段有意义：
//   text            -> Text
//   reasoning       -> Reasoning
//   tool-invocation -> ToolInvocation
//   step-start      -> 无
type Part struct {
	Type           PartType        `json:"type"`
	Text           string          `json:"text,omitempty"`
	Reasoning      string          `json:"reasoning,omitempty"`
	ToolInvocation *ToolInvocation `json:"toolInvocation,omitempty"`
}

// ToolInvocation 记录一次工具调用及其结果。
type ToolInvocation struct {
	State      ToolState       `json:"state"`
	Step       int             `json:"step"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
	Result     json.RawMessage `json:"result,omitempty"`
}

func TextPart(text string) Part {
	return Part{Type: PartText, Text: text}
}

func ReasoningPart(reasoning string) Part {
	return Part{Type: PartReasoning, Reasoning: reasoning}
}

func StepStartPart() Part {
	return Part{Type: PartStepStart}
}

// ToolResultPart 构造一个已完成的工具调用片段。
func ToolResultPart(step int, callID, name string, args, result json.RawMessage) Part {
	return Part{Type: PartToolInvocation, ToolInvocation: &ToolInvocation{
		State:      ToolStateResult,
		Step:       step,
		ToolCallID: callID,
		ToolName:   name,
		Args:       args,
		Result:     result,
	}}
}

// Attachment 描述消息携带的附件。
type Attachment struct {
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url"`
}

// Message 是持久化的一条消息，写入后不再修改。
type Message struct {
	ID            string                           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChatID        string                           `gorm:"type:varchar(36);index;not null" json:"chatId"`
	Role          Role                             `gorm:"type:varchar(16);not null" json:"role"`
	Parts         datatypes.JSONType[[]Part]       `gorm:"not null" json:"parts"`
	Attachments   datatypes.JSONType[[]Attachment] `gorm:"not null" json:"attachments"`
	SchemaVersion int                              `gorm:"not null;default:2" json:"-"`
	CreatedAt     time.Time                        `gorm:"index;not null" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// NewMessage 构造一条带当前 schema 版本的消息。
func NewMessage(id, chatID string, role Role, parts []Part, attachments []Attachment, createdAt time.Time) *Message {
	if attachments == nil {
		attachments = []Attachment{}
	}
	if parts == nil {
		parts = []Part{}
	}
	return &Message{
		ID:            id,
		ChatID:        chatID,
		Role:          role,
		Parts:         datatypes.NewJSONType(parts),
		Attachments:   datatypes.NewJSONType(attachments),
		SchemaVersion: PartsSchemaVersion,
		CreatedAt:     createdAt,
	}
}

// LegacyMessage 是旧版只有纯文本 content 的消息结构，仅供迁移使用。
type LegacyMessage struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	ChatID    string    `gorm:"type:varchar(36);index;not null"`
	Role      Role      `gorm:"type:varchar(16);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (LegacyMessage) TableName() string {
	return "messages_legacy"
}

// UIMessage 是客户端提交的消息格式。
// 旧客户端只发送 Content，新客户端发送 Parts。
type UIMessage struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Parts       []Part       `json:"parts,omitempty"`
	Attachments []Attachment `json:"experimental_attachments,omitempty"`
	CreatedAt   *time.Time   `json:"createdAt,omitempty"`
}

// ContentParts 返回消息的片段；没有 parts 时把 Content 视为一个文本片段。
func (m UIMessage) ContentParts() []Part {
	if len(m.Parts) > 0 {
		return m.Parts
	}
	return []Part{TextPart(m.Content)}
}

// PlainText 拼接消息中的全部文本片段。
func (m UIMessage) PlainText() string {
	var sb strings.Builder
	for _, p := range m.ContentParts() {
		if p.Type == PartText {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// MostRecentUserMessage 返回列表中最后一条用户消息。
func MostRecentUserMessage(messages []UIMessage) (UIMessage, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i], true
		}
	}
	return UIMessage{}, false
}

// ToUIMessage 把持久化消息转换为客户端格式。
func (m *Message) ToUIMessage() UIMessage {
	created := m.CreatedAt
	ui := UIMessage{
		ID:          m.ID,
		Role:        m.Role,
		Parts:       m.Parts.Data(),
		Attachments: m.Attachments.Data(),
		CreatedAt:   &created,
	}
	ui.Content = ui.PlainText()
	return ui
}
