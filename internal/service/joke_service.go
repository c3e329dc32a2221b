package service

import (
	"ai-chatbot-go/internal/model"
	"ai-chatbot-go/pkg/jokeapi"
	"ai-chatbot-go/pkg/log"
	"ai-chatbot-go/pkg/metrics"
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// DefaultJokeTTL 是笑话缓存的新鲜期。
const DefaultJokeTTL = 60 * time.Second

// 上游不可用时使用的静态笑话。
var fallbackJokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"What do you call a fake noodle? An impasta!",
	"Why don't eggs tell jokes? They'd crack each other up!",
	"What did the ocean say to the beach? Nothing, it just waved!",
	"Why did the bicycle fall over? Because it was two-tired!",
	"What do you call cheese that isn't yours? Nacho cheese!",
	"Why did the math book look so sad? Because it had too many problems!",
}

// JokeFetcher 从上游获取一条笑话，category 为上游分类名。
type JokeFetcher interface {
	Fetch(ctx context.Context, category string) (*jokeapi.Joke, error)
}

// JokeService 返回一条笑话，永远不会失败。
type JokeService interface {
	Tell(ctx context.Context, category string) model.JokeResult
}

type jokeEntry struct {
	joke       string
	capturedAt time.Time
	category   string
}

type jokeService struct {
	fetcher JokeFetcher
	ttl     time.Duration
	now     func() time.Time
	pick    func(n int) int

	mu    sync.Mutex
	slots map[string]jokeEntry
}

// NewJokeService 创建笑话服务。ttl <= 0 时使用 DefaultJokeTTL。
func NewJokeService(fetcher JokeFetcher, ttl time.Duration) JokeService {
	return newJokeService(fetcher, ttl, time.Now)
}

func newJokeService(fetcher JokeFetcher, ttl time.Duration, now func() time.Time) *jokeService {
	if ttl <= 0 {
		ttl = DefaultJokeTTL
	}
	return &jokeService{
		fetcher: fetcher,
		ttl:     ttl,
		now:     now,
		pick:    rand.IntN,
		slots:   make(map[string]jokeEntry),
	}
}

// UpstreamCategory 把内部分类映射为 JokeAPI 的分类名。
func UpstreamCategory(category string) string {
	switch category {
	case "programming":
		return "Programming"
	case "misc":
		return "Miscellaneous"
	case "pun":
		return "Pun"
	default:
		return "Any"
	}
}

// Tell 先查缓存，未命中或过期时请求上游，失败则返回静态笑话。
// 同一分类的并发刷新不做合并，后写入者覆盖。
func (s *jokeService) Tell(ctx context.Context, category string) model.JokeResult {
	key := strings.ToLower(strings.TrimSpace(category))
	if key == "" {
		key = "any"
	}

	if entry, ok := s.lookup(key); ok {
		metrics.JokeResponses.WithLabelValues(string(model.JokeFromCache)).Inc()
		return model.JokeResult{Joke: entry.joke, Source: model.JokeFromCache, Category: entry.category}
	}

	joke, err := s.fetcher.Fetch(ctx, UpstreamCategory(key))
	if err != nil {
		log.Warnw("joke upstream failed, serving fallback", "category", key, "error", err)
		metrics.JokeResponses.WithLabelValues(string(model.JokeFromFallback)).Inc()
		return model.JokeResult{
			Joke:   fallbackJokes[s.pick(len(fallbackJokes))],
			Source: model.JokeFromFallback,
			Error:  err.Error(),
		}
	}

	s.mu.Lock()
	s.slots[key] = jokeEntry{joke: joke.Text, capturedAt: s.now(), category: joke.Category}
	s.mu.Unlock()

	metrics.JokeResponses.WithLabelValues(string(model.JokeFromAPI)).Inc()
	return model.JokeResult{Joke: joke.Text, Source: model.JokeFromAPI, Category: joke.Category}
}

func (s *jokeService) lookup(key string) (jokeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.slots[key]
	if !ok || s.now().Sub(entry.capturedAt) >= s.ttl {
		return jokeEntry{}, false
	}
	return entry, true
}
