// Package stream 定义了聊天流式输出的事件模型以及各种传输方式的写入器。
package stream

import (
	"ai-chatbot-go/pkg/llm"
	"encoding/json"
)

// Kind 是流事件的类型。
type Kind string

const (
	KindStartStep  Kind = "start-step"
	KindText       Kind = "text"
	KindReasoning  Kind = "reasoning"
	KindToolCall   Kind = "tool-call"
	KindToolResult Kind = "tool-result"
	KindData       Kind = "data"
	KindFinishStep Kind = "finish-step"
	KindFinish     Kind = "finish"
	KindError      Kind = "error"
)

// Event 是写往客户端的一个流事件，Kind 决定哪些字段有效。
type Event struct {
	Kind         Kind
	MessageID    string
	Text         string
	ToolCallID   string
	ToolName     string
	Args         json.RawMessage
	Result       json.RawMessage
	Data         any
	FinishReason string
	Usage        llm.Usage
	Continued    bool
}

// Writer 接收流事件。实现需要在每个事件后立即把数据推送给客户端。
type Writer interface {
	Write(e Event) error
}

func StartStep(messageID string) Event { return Event{Kind: KindStartStep, MessageID: messageID} }

func Text(delta string) Event { return Event{Kind: KindText, Text: delta} }

func Reasoning(delta string) Event { return Event{Kind: KindReasoning, Text: delta} }

func ToolCall(id, name string, args json.RawMessage) Event {
	return Event{Kind: KindToolCall, ToolCallID: id, ToolName: name, Args: args}
}

func ToolResult(id string, result json.RawMessage) Event {
	return Event{Kind: KindToolResult, ToolCallID: id, Result: result}
}

func Data(v any) Event { return Event{Kind: KindData, Data: v} }

func FinishStep(reason string, usage llm.Usage, continued bool) Event {
	return Event{Kind: KindFinishStep, FinishReason: reason, Usage: usage, Continued: continued}
}

func Finish(reason string, usage llm.Usage) Event {
	return Event{Kind: KindFinish, FinishReason: reason, Usage: usage}
}

func Error(msg string) Event { return Event{Kind: KindError, Text: msg} }

type toolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Args       json.RawMessage `json:"args"`
}

type toolResultPayload struct {
	ToolCallID string          `json:"toolCallId"`
	Result     json.RawMessage `json:"result"`
}

type finishPayload struct {
	FinishReason string    `json:"finishReason"`
	Usage        llm.Usage `json:"usage"`
	IsContinued  *bool     `json:"isContinued,omitempty"`
}

// payload 返回事件的 JSON 负载，各传输方式共用。
func (e Event) payload() any {
	switch e.Kind {
	case KindStartStep:
		return map[string]string{"messageId": e.MessageID}
	case KindText, KindReasoning, KindError:
		return e.Text
	case KindToolCall:
		return toolCallPayload{ToolCallID: e.ToolCallID, ToolName: e.ToolName, Args: rawOrEmpty(e.Args)}
	case KindToolResult:
		return toolResultPayload{ToolCallID: e.ToolCallID, Result: rawOrEmpty(e.Result)}
	case KindData:
		return []any{e.Data}
	case KindFinishStep:
		continued := e.Continued
		return finishPayload{FinishReason: e.FinishReason, Usage: e.Usage, IsContinued: &continued}
	case KindFinish:
		return finishPayload{FinishReason: e.FinishReason, Usage: e.Usage}
	}
	return nil
}

func rawOrEmpty(r json.RawMessage) json.RawMessage {
	if len(r) == 0 {
		return json.RawMessage("{}")
	}
	return r
}
