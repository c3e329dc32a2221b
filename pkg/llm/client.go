// Package llm 封装了 OpenAI 兼容的大模型接口，支持流式输出与工具调用。
package llm

import (
	"ai-chatbot-go/internal/config"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// 逻辑模型 id，与客户端的 selectedChatModel 对应。
const (
	ModelChat          = "chat-model"
	ModelChatReasoning = "chat-model-reasoning"
	ModelTitle         = "title-model"
	ModelArtifact      = "artifact-model"
)

// 消息角色
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
	RoleTool      = openai.ChatMessageRoleTool
)

// ErrUnknownModel 表示请求了未配置的逻辑模型。
var ErrUnknownModel = errors.New("llm: unknown model")

// Message 表示一条角色消息
type Message struct {
	Role       string
	Content    string
	ImageURLs  []string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall 是模型发起的一次工具调用，Arguments 为 JSON 字符串。
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDef 描述一个可供模型调用的工具。
type ToolDef struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Usage 是一次调用的 token 统计。
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Add 累加另一次调用的用量。
func (u Usage) Add(o Usage) Usage {
	return Usage{PromptTokens: u.PromptTokens + o.PromptTokens, CompletionTokens: u.CompletionTokens + o.CompletionTokens}
}

// ChatRequest 是一次生成请求。Model 为逻辑模型 id。
type ChatRequest struct {
	Model    string
	System   string
	Messages []Message
	Tools    []ToolDef
}

// DeltaHandler 接收流式输出的增量。
type DeltaHandler interface {
	OnText(delta string) error
	OnReasoning(delta string) error
}

// StepResult 是一次流式调用（一个 step）的完整结果。
type StepResult struct {
	ID           string
	Text         string
	Reasoning    string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Client defines the interface for an LLM client.
type Client interface {
	// StreamChat 流式生成，增量写入 h，结束后返回汇总结果。
	StreamChat(ctx context.Context, req ChatRequest, h DeltaHandler) (*StepResult, error)
	// Complete 非流式生成，返回完整文本。
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type openaiClient struct {
	client *openai.Client
	models map[string]config.ModelConfig
	gen    config.LLMGenerationConfig
	// timeout 只作用于非流式调用
	timeout time.Duration
}

// NewClient 根据配置创建一个 OpenAI 兼容的客户端。
func NewClient(cfg config.LLMConfig) Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	// 流式响应不设置整体超时，由请求 ctx 控制
	clientConfig.HTTPClient = &http.Client{}
	return &openaiClient{
		client:  openai.NewClientWithConfig(clientConfig),
		models:  cfg.Models,
		gen:     cfg.Generation,
		timeout: cfg.Timeout,
	}
}

func (c *openaiClient) resolve(id string) (config.ModelConfig, error) {
	m, ok := c.models[id]
	if !ok || m.Name == "" {
		return config.ModelConfig{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	return m, nil
}

func (c *openaiClient) buildRequest(model string, req ChatRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req.System, req.Messages),
		Temperature: float32(c.gen.Temperature),
		TopP:        float32(c.gen.TopP),
		MaxTokens:   c.gen.MaxTokens,
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func convertMessages(system string, messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{Role: RoleSystem, Content: system})
	}
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{Role: m.Role, ToolCallID: m.ToolCallID}
		if len(m.ImageURLs) > 0 {
			// 带图片的消息必须使用 MultiContent，此时 Content 需为空
			msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: m.Content,
			})
			for _, u := range m.ImageURLs {
				msg.MultiContent = append(msg.MultiContent, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: u},
				})
			}
		} else {
			msg.Content = m.Content
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

// StreamChat 调用流式接口。工具调用的参数按 index 累积，推理内容单独回调。
func (c *openaiClient) StreamChat(ctx context.Context, req ChatRequest, h DeltaHandler) (*StepResult, error) {
	model, err := c.resolve(req.Model)
	if err != nil {
		return nil, err
	}

	oreq := c.buildRequest(model.Name, req)
	oreq.Stream = true
	oreq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := c.client.CreateChatCompletionStream(ctx, oreq)
	if err != nil {
		return nil, fmt.Errorf("create stream failed: %w", err)
	}
	defer func() { _ = stream.Close() }()

	result := &StepResult{}
	var text, reasoning strings.Builder
	extractor := newTagExtractor(model.ReasoningTag)
	calls := map[int]*ToolCall{}

	emit := func(seg segment) error {
		if seg.text == "" {
			return nil
		}
		if seg.reasoning {
			reasoning.WriteString(seg.text)
			return h.OnReasoning(seg.text)
		}
		text.WriteString(seg.text)
		return h.OnText(seg.text)
	}

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stream recv failed: %w", err)
		}
		if result.ID == "" {
			result.ID = resp.ID
		}
		if resp.Usage != nil {
			result.Usage = Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			result.FinishReason = finishReason(choice.FinishReason)
		}
		if rc := choice.Delta.ReasoningContent; rc != "" {
			if err := emit(segment{text: rc, reasoning: true}); err != nil {
				return nil, err
			}
		}
		for _, seg := range extractor.push(choice.Delta.Content) {
			if err := emit(seg); err != nil {
				return nil, err
			}
		}
		for i, tc := range choice.Delta.ToolCalls {
			idx := i
			if tc.Index != nil {
				idx = *tc.Index
			}
			acc, ok := calls[idx]
			if !ok {
				acc = &ToolCall{}
				calls[idx] = acc
			}
			if tc.ID != "" {
				acc.ID = tc.ID
			}
			if tc.Function.Name != "" {
				acc.Name = tc.Function.Name
			}
			acc.Arguments += tc.Function.Arguments
		}
	}

	for _, seg := range extractor.flush() {
		if err := emit(seg); err != nil {
			return nil, err
		}
	}

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		result.ToolCalls = append(result.ToolCalls, *calls[idx])
	}

	result.Text = text.String()
	result.Reasoning = reasoning.String()
	if result.FinishReason == "" {
		result.FinishReason = "stop"
	}
	return result, nil
}

// finishReason 把 OpenAI 的结束原因转换为数据流协议使用的取值。
func finishReason(r openai.FinishReason) string {
	switch r {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return "tool-calls"
	case openai.FinishReasonContentFilter:
		return "content-filter"
	case openai.FinishReasonStop, openai.FinishReasonLength:
		return string(r)
	default:
		return "other"
	}
}

// Complete 调用非流式接口。推理标签中的内容会被去掉。
func (c *openaiClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	model, err := c.resolve(req.Model)
	if err != nil {
		return "", err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(model.Name, req))
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	extractor := newTagExtractor(model.ReasoningTag)
	segs := extractor.push(resp.Choices[0].Message.Content)
	segs = append(segs, extractor.flush()...)
	var sb strings.Builder
	for _, s := range segs {
		if !s.reasoning {
			sb.WriteString(s.text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
