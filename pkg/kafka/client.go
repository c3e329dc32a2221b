// Package kafka 提供了与 Kafka 消息队列交互的功能，用于发布和消费聊天事件。
package kafka

import (
	"ai-chatbot-go/internal/config"
	"ai-chatbot-go/pkg/log"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// 聊天事件类型
const (
	EventChatCreated           = "chat.created"
	EventChatDeleted           = "chat.deleted"
	EventUserMessageSaved      = "message.user.saved"
	EventAssistantMessageSaved = "message.assistant.saved"
)

// Event 是发布到 Kafka 的聊天生命周期事件。
type Event struct {
	Type      string    `json:"type"`
	ChatID    string    `json:"chatId"`
	MessageID string    `json:"messageId,omitempty"`
	UserID    string    `json:"userId"`
	At        time.Time `json:"at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher 发布聊天事件。nil 的 *Publisher 可以安全使用，所有操作都是空操作。
type Publisher struct {
	w messageWriter
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewPublisher 初始化 Kafka 生产者。未配置 brokers 时返回 nil。
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	addrs := brokers(cfg)
	if len(addrs) == 0 {
		log.Info("Kafka 未配置，聊天事件不会被发布")
		return nil
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Warnw("发布聊天事件失败", "count", len(messages), "error", err)
			}
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Publisher{w: w}
}

// Publish 发送一个事件，同一聊天的事件按 chatId 分区以保持顺序。
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if p == nil {
		return nil
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.w.WriteMessages(ctx, kafka.Message{Key: []byte(e.ChatID), Value: value})
}

// Close 刷新缓冲并关闭生产者。
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.w.Close()
}

// Handler 处理一条消费到的事件。
type Handler func(ctx context.Context, e Event) error

// Consume 启动一个 Kafka 消费者，直到 ctx 结束。
// 无法解析的消息直接提交，处理失败的消息记录日志后同样提交，不做重试。
func Consume(ctx context.Context, cfg config.KafkaConfig, groupID string, handle Handler) error {
	addrs := brokers(cfg)
	if len(addrs) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  addrs,
		Topic:    cfg.Topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	defer func() {
		if err := r.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var e Event
		if err := json.Unmarshal(m.Value, &e); err != nil {
			log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(m.Value))
		} else if err := handle(ctx, e); err != nil {
			log.Errorw("处理聊天事件失败", "type", e.Type, "chatId", e.ChatID, "error", err)
		}
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}
