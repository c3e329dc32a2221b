// Package jokeapi 是 JokeAPI (v2.jokeapi.dev) 的客户端。
package jokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// 过滤敏感内容，只请求单段式笑话。
const (
	blacklistFlags = "nsfw,religious,political,racist,sexist,explicit"
	jokeType       = "single"
)

// Joke 是上游返回的一条笑话。
type Joke struct {
	Text     string
	Category string
}

type jokeResponse struct {
	Error    bool   `json:"error"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Joke     string `json:"joke"`
	Setup    string `json:"setup"`
	Delivery string `json:"delivery"`
}

// ErrNoJoke 表示响应里既没有 joke 也没有 setup/delivery。
var ErrNoJoke = errors.New("jokeapi: response contains no joke")

// Client 是 JokeAPI 客户端。
type Client struct {
	http *resty.Client
}

// NewClient 创建客户端。timeout 为单次请求的超时时间。
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Fetch 获取 category（上游分类名，如 Programming、Any）下的一条笑话。
// 非 2xx 状态、无法解析的响应和上游报告的错误都会返回 error。
func (c *Client) Fetch(ctx context.Context, category string) (*Joke, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("category", category).
		SetQueryParams(map[string]string{
			"blacklistFlags": blacklistFlags,
			"type":           jokeType,
		}).
		Get("/joke/{category}")
	if err != nil {
		return nil, fmt.Errorf("jokeapi: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode())
	}

	var data jokeResponse
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("jokeapi: malformed response: %w", err)
	}
	if data.Error {
		if data.Message == "" {
			return nil, errors.New("API returned an error")
		}
		return nil, errors.New(data.Message)
	}

	text := data.Joke
	if text == "" && data.Setup != "" && data.Delivery != "" {
		text = data.Setup + " " + data.Delivery
	}
	if text == "" {
		return nil, ErrNoJoke
	}
	return &Joke{Text: text, Category: data.Category}, nil
}
