package main

import (
	"ai-chatbot-go/internal/config"
	"ai-chatbot-go/pkg/kafka"
	"ai-chatbot-go/pkg/log"
	"context"

	"github.com/spf13/cobra"
)

var eventsGroup string

// eventsCmd 订阅聊天事件主题并逐条记录日志，用于排查事件发布。
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume chat lifecycle events from Kafka and log them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return kafka.Consume(cmd.Context(), config.Conf.Kafka, eventsGroup, func(ctx context.Context, e kafka.Event) error {
			log.Infow("chat event", "type", e.Type, "chatId", e.ChatID, "messageId", e.MessageID, "userId", e.UserID, "at", e.At)
			return nil
		})
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsGroup, "group", "chatbot-events-log", "Kafka consumer group id")
}
