// Package tools 实现了模型在生成过程中可以调用的工具。
package tools

import (
	"ai-chatbot-go/internal/stream"
	"ai-chatbot-go/pkg/llm"
	"ai-chatbot-go/pkg/metrics"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ErrUnknownTool 表示模型调用了未注册的工具。
var ErrUnknownTool = errors.New("tools: unknown tool")

// Session 是一次工具调用的上下文：调用者身份和向客户端写数据事件的通道。
type Session struct {
	UserID string
	Emit   func(stream.Event) error
}

func (s Session) data(v any) error {
	if s.Emit == nil {
		return nil
	}
	return s.Emit(stream.Data(v))
}

// Tool 是一个可供模型调用的工具。
type Tool interface {
	Name() string
	Description() string
	// Parameters 返回参数的 JSON Schema。
	Parameters() json.RawMessage
	// Execute 执行工具，返回值会被序列化为 JSON 交还给模型。
	Execute(ctx context.Context, sess Session, args json.RawMessage) (any, error)
}

// Registry 按注册顺序保存工具。
type Registry struct {
	order []string
	tools map[string]Tool
}

// NewRegistry 创建注册表，重名的工具只保留第一个。
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := r.tools[t.Name()]; ok {
			continue
		}
		r.order = append(r.order, t.Name())
		r.tools[t.Name()] = t
	}
	return r
}

// Names 返回全部工具名。
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions 返回传给模型的工具定义。
func (r *Registry) Definitions() []llm.ToolDef {
	defs := make([]llm.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.ToolDef{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	return defs
}

// Execute 执行一次工具调用并返回 JSON 结果。
func (r *Registry) Execute(ctx context.Context, sess Session, call llm.ToolCall) (json.RawMessage, error) {
	t, ok := r.tools[call.Name]
	if !ok {
		metrics.ToolInvocations.WithLabelValues(call.Name, "unknown").Inc()
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
	}
	args := json.RawMessage(call.Arguments)
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	out, err := t.Execute(ctx, sess, args)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(call.Name, "error").Inc()
		return nil, fmt.Errorf("tool %s: %w", call.Name, err)
	}
	result, err := json.Marshal(out)
	if err != nil {
		metrics.ToolInvocations.WithLabelValues(call.Name, "error").Inc()
		return nil, fmt.Errorf("tool %s: encode result: %w", call.Name, err)
	}
	metrics.ToolInvocations.WithLabelValues(call.Name, "ok").Inc()
	return result, nil
}

var reflector = &jsonschema.Reflector{
	DoNotReference: true,
	ExpandedStruct: true,
	Anonymous:      true,
}

// schemaFor 根据参数结构体生成 JSON Schema。
func schemaFor(v any) json.RawMessage {
	s := reflector.Reflect(v)
	s.Version = ""
	b, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("tools: schema for %T: %v", v, err))
	}
	return b
}

// decodeArgs 解析参数，失败时返回可读的错误。
func decodeArgs(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
