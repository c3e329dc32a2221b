package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"ai-chatbot-go/pkg/database"
	"ai-chatbot-go/pkg/kafka"
	"ai-chatbot-go/pkg/llm"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type repos struct {
	users    repository.UserRepository
	chats    repository.ChatRepository
	messages repository.MessageRepository
	votes    repository.VoteRepository
	docs     repository.DocumentRepository
}

func newRepos(t *testing.T) repos {
	db := newTestDB(t)
	return repos{
		users:    repository.NewUserRepository(db),
		chats:    repository.NewChatRepository(db),
		messages: repository.NewMessageRepository(db),
		votes:    repository.NewVoteRepository(db),
		docs:     repository.NewDocumentRepository(db),
	}
}

// scriptedStep 是脚本化模型的一次 step 输出。
type scriptedStep struct {
	chunks    []string
	reasoning []string
	result    llm.StepResult
	err       error
}

// scriptedLLM 按顺序返回预设的 step。
type scriptedLLM struct {
	mu       sync.Mutex
	steps    []scriptedStep
	title    string
	titleErr error
	streams  []llm.ChatRequest
	titles   int
}

func (s *scriptedLLM) StreamChat(_ context.Context, req llm.ChatRequest, h llm.DeltaHandler) (*llm.StepResult, error) {
	s.mu.Lock()
	s.streams = append(s.streams, req)
	idx := len(s.streams) - 1
	s.mu.Unlock()

	if idx >= len(s.steps) {
		return nil, fmt.Errorf("unexpected step %d", idx)
	}
	step := s.steps[idx]
	for _, r := range step.reasoning {
		if err := h.OnReasoning(r); err != nil {
			return nil, err
		}
	}
	for _, c := range step.chunks {
		if err := h.OnText(c); err != nil {
			return nil, err
		}
	}
	if step.err != nil {
		return nil, step.err
	}
	res := step.result
	return &res, nil
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.ChatRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.titles++
	return s.title, s.titleErr
}

type capturePublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (c *capturePublisher) Publish(_ context.Context, e kafka.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return c.err
}

func (c *capturePublisher) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.events))
	for i, e := range c.events {
		out[i] = e.Type
	}
	return out
}

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func userMsg(id, text string) model.UIMessage {
	return model.UIMessage{ID: id, Role: model.RoleUser, Content: text}
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
