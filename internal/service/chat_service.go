package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"ai-chatbot-go/internal/stream"
	"ai-chatbot-go/internal/tools"
	"ai-chatbot-go/pkg/cache"
	"ai-chatbot-go/pkg/kafka"
	"ai-chatbot-go/pkg/llm"
	"ai-chatbot-go/pkg/log"
	"ai-chatbot-go/pkg/metrics"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StreamErrorMessage 是流式响应中途失败时写给客户端的提示。
const StreamErrorMessage = "An error occurred while streaming the response."

// DefaultMaxSteps 是单次请求中模型与工具往返的最大次数。
const DefaultMaxSteps = 5

// ChatRequest 是 POST /api/chat 的请求体。
type ChatRequest struct {
	ID                string            `json:"id"`
	Messages          []model.UIMessage `json:"messages"`
	SelectedChatModel string            `json:"selectedChatModel"`
}

// Turn 是通过校验、已保存用户消息、可以开始流式生成的一轮对话。
type Turn struct {
	ChatID      string
	UserID      string
	Model       string
	UserMessage model.UIMessage
	Messages    []model.UIMessage
}

// EventPublisher 发布聊天生命周期事件。
type EventPublisher interface {
	Publish(ctx context.Context, e kafka.Event) error
}

// ChatService 定义了聊天编排的操作。
type ChatService interface {
	// Prepare 完成流开始之前的全部工作：校验、创建聊天、保存用户消息。
	Prepare(ctx context.Context, user *model.User, req ChatRequest) (*Turn, error)
	// Stream 运行模型与工具的多步循环，把事件写入 w，完成后保存助手消息。
	// 中途失败时会向 w 写入错误提示，并返回原始错误。
	Stream(ctx context.Context, turn *Turn, w stream.Writer) error
	// Delete 删除用户拥有的聊天。
	Delete(ctx context.Context, user *model.User, chatID string) error
	// Messages 返回用户可读的聊天中的消息。
	Messages(ctx context.Context, user *model.User, chatID string) ([]model.UIMessage, error)
	// UpdateVisibility 修改用户拥有的聊天的可见性。
	UpdateVisibility(ctx context.Context, user *model.User, chatID string, visibility model.Visibility) error
}

// ChatOptions 配置聊天编排。
type ChatOptions struct {
	MaxSteps    int
	SmoothDelay time.Duration
}

type chatService struct {
	chats     repository.ChatRepository
	messages  repository.MessageRepository
	llm       llm.Client
	tools     *tools.Registry
	cache     *cache.Cache
	publisher EventPublisher
	opts      ChatOptions
	now       func() time.Time
	newID     func() string
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	client llm.Client,
	registry *tools.Registry,
	c *cache.Cache,
	publisher EventPublisher,
	opts ChatOptions,
) ChatService {
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &chatService{
		chats:     chats,
		messages:  messages,
		llm:       client,
		tools:     registry,
		cache:     c,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *chatService) Prepare(ctx context.Context, user *model.User, req ChatRequest) (*Turn, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}

	userMessage, ok := model.MostRecentUserMessage(req.Messages)
	if !ok {
		return nil, newError(KindBadRequest, "No user message found", nil)
	}

	// 1. 校验聊天归属，不存在时创建
	chat, err := s.chats.FindByID(ctx, req.ID)
	if err != nil {
		log.Errorf("Error handling chat: %v", err)
		return nil, newError(KindInternal, "Error handling chat", err)
	}
	if chat == nil {
		title, err := s.generateTitle(ctx, userMessage)
		if err != nil {
			log.Errorf("Error handling chat: %v", err)
			return nil, newError(KindInternal, "Error handling chat", err)
		}
		chat = &model.Chat{
			ID:         req.ID,
			UserID:     user.ID,
			Title:      title,
			Visibility: model.VisibilityPrivate,
			CreatedAt:  s.now(),
		}
		if err := s.chats.Create(ctx, chat); err != nil {
			log.Errorf("Error handling chat: %v", err)
			return nil, newError(KindInternal, "Error handling chat", err)
		}
		s.invalidateHistory(ctx, user.ID)
		s.publish(ctx, kafka.Event{Type: kafka.EventChatCreated, ChatID: chat.ID, UserID: user.ID})
	} else if chat.UserID != user.ID {
		return nil, ErrUnauthorized
	}

	// 2. 在调用模型之前保存用户消息
	msg := model.NewMessage(userMessage.ID, req.ID, model.RoleUser, userMessage.ContentParts(), userMessage.Attachments, s.now())
	if err := s.messages.Save(ctx, msg); err != nil {
		log.Errorf("Error saving user message: %v", err)
		return nil, newError(KindInternal, "Error saving message", err)
	}
	s.publish(ctx, kafka.Event{Type: kafka.EventUserMessageSaved, ChatID: req.ID, MessageID: msg.ID, UserID: user.ID})

	return &Turn{
		ChatID:      req.ID,
		UserID:      user.ID,
		Model:       req.SelectedChatModel,
		UserMessage: userMessage,
		Messages:    req.Messages,
	}, nil
}

func (s *chatService) generateTitle(ctx context.Context, msg model.UIMessage) (string, error) {
	title, err := s.llm.Complete(ctx, llm.ChatRequest{
		Model:    llm.ModelTitle,
		System:   titlePrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: msg.PlainText()}},
	})
	if err != nil {
		return "", err
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if r := []rune(title); len(r) > maxTitleLength {
		title = string(r[:maxTitleLength])
	}
	if title == "" {
		title = "New Chat"
	}
	return title, nil
}

// textSink 把模型增量转成流事件。
type textSink struct {
	w stream.Writer
}

func (t textSink) OnText(delta string) error { return t.w.Write(stream.Text(delta)) }

func (t textSink) OnReasoning(delta string) error { return t.w.Write(stream.Reasoning(delta)) }

func (s *chatService) Stream(ctx context.Context, turn *Turn, w stream.Writer) error {
	assistantID, parts, err := s.run(ctx, turn, w)
	if err != nil {
		metrics.StreamErrors.Inc()
		metrics.ChatRequests.WithLabelValues("stream_error").Inc()
		log.Errorw("Stream error", "chatId", turn.ChatID, "error", err)
		if werr := w.Write(stream.Error(StreamErrorMessage)); werr != nil {
			log.Warnw("failed to write stream error notice", "chatId", turn.ChatID, "error", werr)
		}
		return err
	}
	metrics.ChatRequests.WithLabelValues("ok").Inc()

	// 请求上下文可能已被取消，保存使用独立的上下文
	s.saveAssistant(context.Background(), turn, assistantID, parts)
	return nil
}

// run 执行多步生成，返回最后一个助手 step 的 id 和整轮的消息片段。
func (s *chatService) run(ctx context.Context, turn *Turn, w stream.Writer) (string, []model.Part, error) {
	smoother := stream.NewSmoother(ctx, w, s.opts.SmoothDelay)
	sess := tools.Session{UserID: turn.UserID, Emit: smoother.Write}

	req := llm.ChatRequest{
		Model:    turn.Model,
		System:   systemPrompt(turn.Model),
		Messages: toLLMMessages(turn.Messages),
	}
	if turn.Model != llm.ModelChatReasoning {
		req.Tools = s.tools.Definitions()
	}

	var (
		parts       []model.Part
		total       llm.Usage
		assistantID string
		finish      = "stop"
	)
	for step := 0; step < s.opts.MaxSteps; step++ {
		assistantID = s.newID()
		if err := smoother.Write(stream.StartStep(assistantID)); err != nil {
			return "", nil, err
		}

		res, err := s.llm.StreamChat(ctx, req, textSink{w: smoother})
		if err != nil {
			return "", nil, err
		}
		if err := smoother.Flush(); err != nil {
			return "", nil, err
		}
		total = total.Add(res.Usage)
		finish = res.FinishReason

		parts = append(parts, model.StepStartPart())
		if res.Reasoning != "" {
			parts = append(parts, model.ReasoningPart(res.Reasoning))
		}
		if res.Text != "" {
			parts = append(parts, model.TextPart(res.Text))
		}

		assistant := llm.Message{Role: llm.RoleAssistant, Content: res.Text, ToolCalls: res.ToolCalls}
		var results []llm.Message
		for _, call := range res.ToolCalls {
			args := json.RawMessage(call.Arguments)
			if !json.Valid(args) {
				args = json.RawMessage(`{}`)
			}
			if err := smoother.Write(stream.ToolCall(call.ID, call.Name, args)); err != nil {
				return "", nil, err
			}
			result, err := s.tools.Execute(ctx, sess, call)
			if err != nil {
				return "", nil, err
			}
			if err := smoother.Write(stream.ToolResult(call.ID, result)); err != nil {
				return "", nil, err
			}
			parts = append(parts, model.ToolResultPart(step, call.ID, call.Name, args, result))
			results = append(results, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: string(result)})
		}

		// 没有工具调用或达到步数上限时结束本轮
		continued := len(res.ToolCalls) > 0 && step < s.opts.MaxSteps-1
		if err := smoother.Write(stream.FinishStep(res.FinishReason, res.Usage, continued)); err != nil {
			return "", nil, err
		}
		if !continued {
			break
		}
		req.Messages = append(req.Messages, assistant)
		req.Messages = append(req.Messages, results...)
	}

	if err := smoother.Write(stream.Finish(finish, total)); err != nil {
		return "", nil, err
	}
	return assistantID, parts, nil
}

// saveAssistant 保存助手消息。失败只记录日志，不影响已经发出的响应。
func (s *chatService) saveAssistant(ctx context.Context, turn *Turn, assistantID string, parts []model.Part) {
	if assistantID == "" {
		log.Errorw("Failed to save assistant message", "chatId", turn.ChatID, "error", "no assistant message found")
		return
	}
	msg := model.NewMessage(assistantID, turn.ChatID, model.RoleAssistant, parts, nil, s.now())
	if err := s.messages.Save(ctx, msg); err != nil {
		log.Errorw("Failed to save assistant message", "chatId", turn.ChatID, "messageId", assistantID, "error", err)
		return
	}
	s.publish(ctx, kafka.Event{Type: kafka.EventAssistantMessageSaved, ChatID: turn.ChatID, MessageID: assistantID, UserID: turn.UserID})
}

func (s *chatService) Delete(ctx context.Context, user *model.User, chatID string) error {
	if chatID == "" {
		return newError(KindNotFound, "Not Found", nil)
	}
	if user == nil {
		return ErrUnauthorized
	}
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return newError(KindInternal, "An error occurred while processing your request!", err)
	}
	if chat == nil {
		return newError(KindNotFound, "Not Found", nil)
	}
	if chat.UserID != user.ID {
		return ErrUnauthorized
	}
	if err := s.chats.Delete(ctx, chatID); err != nil {
		return newError(KindInternal, "An error occurred while processing your request!", err)
	}
	s.invalidateHistory(ctx, user.ID)
	s.publish(ctx, kafka.Event{Type: kafka.EventChatDeleted, ChatID: chatID, UserID: user.ID})
	return nil
}

func (s *chatService) Messages(ctx context.Context, user *model.User, chatID string) ([]model.UIMessage, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load chat", err)
	}
	if chat == nil {
		return nil, newError(KindNotFound, "Not Found", nil)
	}
	if chat.Visibility != model.VisibilityPublic && (user == nil || chat.UserID != user.ID) {
		return nil, ErrUnauthorized
	}
	msgs, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, newError(KindInternal, "Failed to load messages", err)
	}
	out := make([]model.UIMessage, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].ToUIMessage())
	}
	return out, nil
}

func (s *chatService) UpdateVisibility(ctx context.Context, user *model.User, chatID string, visibility model.Visibility) error {
	if visibility != model.VisibilityPrivate && visibility != model.VisibilityPublic {
		return newError(KindBadRequest, "visibility must be private or public", nil)
	}
	if err := ownedChat(ctx, s.chats, user, chatID); err != nil {
		return err
	}
	if err := s.chats.UpdateVisibility(ctx, chatID, visibility); err != nil {
		return newError(KindInternal, "Failed to update chat visibility", err)
	}
	s.invalidateHistory(ctx, user.ID)
	return nil
}

func (s *chatService) invalidateHistory(ctx context.Context, userID string) {
	if err := s.cache.InvalidatePattern(ctx, historyKeyPattern(userID)); err != nil {
		log.Warnw("failed to invalidate history cache", "userId", userID, "error", err)
	}
}

func (s *chatService) publish(ctx context.Context, e kafka.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		log.Warnw("failed to publish chat event", "type", e.Type, "chatId", e.ChatID, "error", err)
	}
}

// toLLMMessages 把客户端消息转换为模型消息。
// 助手消息中的工具调用按 step 拆成带 tool_calls 的助手消息和对应的 tool 消息。
func toLLMMessages(msgs []model.UIMessage) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		switch m.Role {
		case model.RoleUser:
			lm := llm.Message{Role: llm.RoleUser, Content: m.PlainText()}
			for _, a := range m.Attachments {
				if strings.HasPrefix(a.ContentType, "image/") {
					lm.ImageURLs = append(lm.ImageURLs, a.URL)
				}
			}
			out = append(out, lm)
		case model.RoleAssistant:
			out = append(out, assistantMessages(m.ContentParts())...)
		}
	}
	return out
}

func assistantMessages(parts []model.Part) []llm.Message {
	var (
		out     []llm.Message
		cur     llm.Message
		results []llm.Message
	)
	flush := func() {
		if cur.Content == "" && len(cur.ToolCalls) == 0 {
			return
		}
		cur.Role = llm.RoleAssistant
		out = append(out, cur)
		out = append(out, results...)
		cur, results = llm.Message{}, nil
	}
	for _, p := range parts {
		switch p.Type {
		case model.PartStepStart:
			flush()
		case model.PartText:
			if len(cur.ToolCalls) > 0 {
				flush()
			}
			cur.Content += p.Text
		case model.PartToolInvocation:
			ti := p.ToolInvocation
			if ti == nil || ti.State != model.ToolStateResult {
				continue
			}
			cur.ToolCalls = append(cur.ToolCalls, llm.ToolCall{ID: ti.ToolCallID, Name: ti.ToolName, Arguments: string(ti.Args)})
			results = append(results, llm.Message{Role: llm.RoleTool, ToolCallID: ti.ToolCallID, Content: string(ti.Result)})
		}
	}
	flush()
	return out
}
