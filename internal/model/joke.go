package model

// JokeSource 标记笑话的来源。
type JokeSource string

const (
	JokeFromCache    JokeSource = "cache"
	JokeFromAPI      JokeSource = "api"
	JokeFromFallback JokeSource = "fallback"
)

// JokeResult 是笑话接口和 getJoke 工具的返回值。
type JokeResult struct {
	Joke     string     `json:"joke"`
	Source   JokeSource `json:"source"`
	Category string     `json:"category,omitempty"`
	Error    string     `json:"error,omitempty"`
}
