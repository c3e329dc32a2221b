package tools

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/internal/repository"
	"ai-chatbot-go/pkg/llm"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DataEvent 是文档工具写给客户端的数据事件。
type DataEvent struct {
	Type    string `json:"type"`
	Content any    `json:"content"`
}

const (
	textPrompt  = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."
	codePrompt  = "You are a code generator that creates self-contained, executable code snippets. Return only the code without explanations or markdown fences. Keep snippets concise and prefer the standard library."
	sheetPrompt = "You are a spreadsheet creation assistant. Create a spreadsheet in csv format based on the given prompt. The spreadsheet should contain meaningful column headers and data."
)

func createPrompt(kind model.DocumentKind) string {
	switch kind {
	case model.KindCode:
		return codePrompt
	case model.KindSheet:
		return sheetPrompt
	default:
		return textPrompt
	}
}

func updatePrompt(doc *model.Document) string {
	switch doc.Kind {
	case model.KindCode:
		return "Improve the following code snippet based on the given prompt.\n\n" + doc.Content
	case model.KindSheet:
		return "Improve the following spreadsheet based on the given prompt.\n\n" + doc.Content
	default:
		return "Improve the following contents of the document based on the given prompt.\n\n" + doc.Content
	}
}

// deltaWriter 把模型增量转发为 <kind>-delta 数据事件。
// text 发送增量，code 和 sheet 发送到目前为止的完整内容。
type deltaWriter struct {
	sess Session
	kind model.DocumentKind
	sb   strings.Builder
}

func (w *deltaWriter) OnText(delta string) error {
	w.sb.WriteString(delta)
	if w.kind == model.KindText {
		return w.sess.data(DataEvent{Type: "text-delta", Content: delta})
	}
	return w.sess.data(DataEvent{Type: string(w.kind) + "-delta", Content: w.sb.String()})
}

func (w *deltaWriter) OnReasoning(string) error { return nil }

// documentTools 是三个文档工具的公共依赖。
type documentTools struct {
	llm  llm.Client
	docs repository.DocumentRepository
	now  func() time.Time
}

func (d *documentTools) generate(ctx context.Context, sess Session, kind model.DocumentKind, system, prompt string) (string, error) {
	w := &deltaWriter{sess: sess, kind: kind}
	_, err := d.llm.StreamChat(ctx, llm.ChatRequest{
		Model:    llm.ModelArtifact,
		System:   system,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	}, w)
	if err != nil {
		return "", err
	}
	return w.sb.String(), nil
}

type createDocumentArgs struct {
	Title string             `json:"title" jsonschema:"description=Title of the document"`
	Kind  model.DocumentKind `json:"kind" jsonschema:"enum=text,enum=code,enum=sheet"`
}

// CreateDocumentTool 生成一篇新文档并流式推送给客户端。
type CreateDocumentTool struct{ documentTools }

func NewCreateDocumentTool(client llm.Client, docs repository.DocumentRepository) *CreateDocumentTool {
	return &CreateDocumentTool{documentTools{llm: client, docs: docs, now: time.Now}}
}

func (t *CreateDocumentTool) Name() string { return "createDocument" }

func (t *CreateDocumentTool) Description() string {
	return "Create a document for a writing or content creation activities. This tool will call other functions that will generate the contents of the document based on the title and kind."
}

func (t *CreateDocumentTool) Parameters() json.RawMessage { return schemaFor(&createDocumentArgs{}) }

func (t *CreateDocumentTool) Execute(ctx context.Context, sess Session, raw json.RawMessage) (any, error) {
	var args createDocumentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if !args.Kind.Valid() {
		return nil, fmt.Errorf("invalid document kind %q", args.Kind)
	}
	if strings.TrimSpace(args.Title) == "" {
		return nil, errors.New("title is required")
	}

	id := uuid.NewString()
	for _, ev := range []DataEvent{
		{Type: "kind", Content: args.Kind},
		{Type: "id", Content: id},
		{Type: "title", Content: args.Title},
		{Type: "clear", Content: ""},
	} {
		if err := sess.data(ev); err != nil {
			return nil, err
		}
	}

	content, err := t.generate(ctx, sess, args.Kind, createPrompt(args.Kind), args.Title)
	if err != nil {
		return nil, err
	}
	doc := &model.Document{
		ID:        id,
		CreatedAt: t.now(),
		Title:     args.Title,
		Content:   content,
		Kind:      args.Kind,
		UserID:    sess.UserID,
	}
	if err := t.docs.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := sess.data(DataEvent{Type: "finish", Content: ""}); err != nil {
		return nil, err
	}

	return map[string]any{
		"id":      id,
		"title":   args.Title,
		"kind":    args.Kind,
		"content": "A document was created and is now visible to the user.",
	}, nil
}

type updateDocumentArgs struct {
	ID          string `json:"id" jsonschema:"description=The ID of the document to update"`
	Description string `json:"description" jsonschema:"description=The description of changes that need to be made"`
}

// UpdateDocumentTool 基于最新版本重新生成文档，保存为新版本。
type UpdateDocumentTool struct{ documentTools }

func NewUpdateDocumentTool(client llm.Client, docs repository.DocumentRepository) *UpdateDocumentTool {
	return &UpdateDocumentTool{documentTools{llm: client, docs: docs, now: time.Now}}
}

func (t *UpdateDocumentTool) Name() string { return "updateDocument" }

func (t *UpdateDocumentTool) Description() string {
	return "Update a document with the given description."
}

func (t *UpdateDocumentTool) Parameters() json.RawMessage { return schemaFor(&updateDocumentArgs{}) }

func (t *UpdateDocumentTool) Execute(ctx context.Context, sess Session, raw json.RawMessage) (any, error) {
	var args updateDocumentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	doc, err := t.docs.Latest(ctx, args.ID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.UserID != sess.UserID {
		return map[string]any{"error": "Document not found"}, nil
	}

	if err := sess.data(DataEvent{Type: "clear", Content: doc.Title}); err != nil {
		return nil, err
	}
	content, err := t.generate(ctx, sess, doc.Kind, updatePrompt(doc), args.Description)
	if err != nil {
		return nil, err
	}
	next := &model.Document{
		ID:        doc.ID,
		CreatedAt: t.now(),
		Title:     doc.Title,
		Content:   content,
		Kind:      doc.Kind,
		UserID:    sess.UserID,
	}
	if err := t.docs.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := sess.data(DataEvent{Type: "finish", Content: ""}); err != nil {
		return nil, err
	}

	return map[string]any{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"content": "The document has been updated successfully.",
	}, nil
}

const suggestionsPrompt = `You are a help writing assistant. Given a piece of writing, please offer suggestions to improve the piece of writing and describe the change. It is very important for the edits to contain full sentences instead of just words. Max 5 suggestions.
Respond with only a JSON array of objects with the fields "originalSentence", "suggestedSentence" and "description".`

const maxSuggestions = 5

type suggestionArgs struct {
	DocumentID string `json:"documentId" jsonschema:"description=The ID of the document to request edits"`
}

type suggestionDraft struct {
	OriginalSentence  string `json:"originalSentence"`
	SuggestedSentence string `json:"suggestedSentence"`
	Description       string `json:"description"`
}

// RequestSuggestionsTool 为文档生成修改建议。
type RequestSuggestionsTool struct{ documentTools }

func NewRequestSuggestionsTool(client llm.Client, docs repository.DocumentRepository) *RequestSuggestionsTool {
	return &RequestSuggestionsTool{documentTools{llm: client, docs: docs, now: time.Now}}
}

func (t *RequestSuggestionsTool) Name() string { return "requestSuggestions" }

func (t *RequestSuggestionsTool) Description() string {
	return "Request suggestions for a document"
}

func (t *RequestSuggestionsTool) Parameters() json.RawMessage { return schemaFor(&suggestionArgs{}) }

func (t *RequestSuggestionsTool) Execute(ctx context.Context, sess Session, raw json.RawMessage) (any, error) {
	var args suggestionArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	doc, err := t.docs.Latest(ctx, args.DocumentID)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.Content == "" || doc.UserID != sess.UserID {
		return map[string]any{"error": "Document not found"}, nil
	}

	out, err := t.llm.Complete(ctx, llm.ChatRequest{
		Model:    llm.ModelArtifact,
		System:   suggestionsPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: doc.Content}},
	})
	if err != nil {
		return nil, err
	}
	drafts, err := parseSuggestions(out)
	if err != nil {
		return nil, err
	}

	now := t.now()
	suggestions := make([]model.Suggestion, 0, len(drafts))
	for _, d := range drafts {
		s := model.Suggestion{
			ID:                uuid.NewString(),
			DocumentID:        doc.ID,
			DocumentCreatedAt: doc.CreatedAt,
			OriginalText:      d.OriginalSentence,
			SuggestedText:     d.SuggestedSentence,
			Description:       d.Description,
			UserID:            sess.UserID,
			CreatedAt:         now,
		}
		if err := sess.data(DataEvent{Type: "suggestion", Content: s}); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, s)
	}
	if err := t.docs.SaveSuggestions(ctx, suggestions); err != nil {
		return nil, fmt.Errorf("save suggestions: %w", err)
	}

	return map[string]any{
		"id":      doc.ID,
		"title":   doc.Title,
		"kind":    doc.Kind,
		"message": "Suggestions have been added to the document",
	}, nil
}

// parseSuggestions 解析模型返回的 JSON 数组，容忍 markdown 代码块包裹。
func parseSuggestions(out string) ([]suggestionDraft, error) {
	s := strings.TrimSpace(out)
	if start := strings.Index(s, "["); start >= 0 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = s[start : end+1]
		}
	}
	var drafts []suggestionDraft
	if err := json.Unmarshal([]byte(s), &drafts); err != nil {
		return nil, fmt.Errorf("malformed suggestions: %w", err)
	}
	filtered := drafts[:0]
	for _, d := range drafts {
		if d.OriginalSentence != "" && d.SuggestedSentence != "" {
			filtered = append(filtered, d)
		}
	}
	if len(filtered) > maxSuggestions {
		filtered = filtered[:maxSuggestions]
	}
	return filtered, nil
}
