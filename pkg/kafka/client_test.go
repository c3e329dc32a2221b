package kafka

import (
	"ai-chatbot-go/internal/config"
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error {
	c.closed = true
	return nil
}

func TestPublishEncodesEvent(t *testing.T) {
	w := &captureWriter{}
	p := &Publisher{w: w}

	require.NoError(t, p.Publish(context.Background(), Event{Type: EventChatCreated, ChatID: "c1", UserID: "u1"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "c1", string(w.msgs[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, EventChatCreated, got.Type)
	assert.False(t, got.At.IsZero())
	assert.NotContains(t, string(w.msgs[0].Value), "messageId")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	assert.NoError(t, p.Publish(context.Background(), Event{Type: EventChatDeleted}))
	assert.NoError(t, p.Close())
	assert.Nil(t, NewPublisher(config.KafkaConfig{Brokers: " , "}))
}

func TestBrokersSplit(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, brokers(config.KafkaConfig{Brokers: "a:9092, b:9092,"}))
}

func TestConsumeWithoutBrokers(t *testing.T) {
	err := Consume(context.Background(), config.KafkaConfig{}, "g", func(context.Context, Event) error { return nil })
	assert.Error(t, err)
}
