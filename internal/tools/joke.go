package tools

import (
	"ai-chatbot-go/internal/model"
	"context"
	"encoding/json"
)

// JokeTeller 返回一条笑话，不会失败。
type JokeTeller interface {
	Tell(ctx context.Context, category string) model.JokeResult
}

type jokeArgs struct {
	Category string `json:"category,omitempty" jsonschema:"description=The category of joke to fetch,enum=any,enum=programming,enum=misc,enum=pun"`
}

// JokeTool 获取一条笑话，与 /api/joke 共用缓存和兜底列表。
type JokeTool struct {
	teller JokeTeller
}

func NewJokeTool(teller JokeTeller) *JokeTool {
	return &JokeTool{teller: teller}
}

func (t *JokeTool) Name() string { return "getJoke" }

func (t *JokeTool) Description() string { return "Get a random joke to entertain the user" }

func (t *JokeTool) Parameters() json.RawMessage { return schemaFor(&jokeArgs{}) }

func (t *JokeTool) Execute(ctx context.Context, _ Session, raw json.RawMessage) (any, error) {
	var args jokeArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Category == "" {
		args.Category = "any"
	}
	return t.teller.Tell(ctx, args.Category), nil
}
