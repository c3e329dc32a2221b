// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Joke      JokeConfig      `mapstructure:"joke"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Cache     CacheConfig     `mapstructure:"cache"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
	// MaxDuration 是单个请求（包括流式响应）的最长处理时间。
	MaxDuration time.Duration `mapstructure:"max_duration"`
}

// IsProduction 报告服务是否以 release 模式运行。
func (s ServerConfig) IsProduction() bool {
	return s.Mode == "release"
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // mysql 或 sqlite
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空表示未配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Models 将对外暴露的逻辑模型 id（chat-model 等）映射到供应商模型。
	Models     map[string]ModelConfig `mapstructure:"models"`
	Generation LLMGenerationConfig    `mapstructure:"generation"`
}

// ModelConfig 描述一个逻辑模型。
type ModelConfig struct {
	Name string `mapstructure:"name"`
	// ReasoningTag 非空时，模型输出中 <tag>...</tag> 的内容视为推理过程。
	ReasoningTag string `mapstructure:"reasoning_tag"`
}

// LLMGenerationConfig 配置生成相关参数（可选）。
type LLMGenerationConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// ChatConfig 存储聊天编排相关的配置。
type ChatConfig struct {
	MaxSteps    int           `mapstructure:"max_steps"`
	SmoothDelay time.Duration `mapstructure:"smooth_delay"`
}

// JokeConfig 存储笑话接口的配置。
type JokeConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WeatherConfig 存储天气接口的配置。
type WeatherConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig 存储限流相关的配置。
type RateLimitConfig struct {
	Enabled bool       `mapstructure:"enabled"`
	Prefix  string     `mapstructure:"prefix"`
	Global  WindowRule `mapstructure:"global"`
	Joke    WindowRule `mapstructure:"joke"`
}

// WindowRule 是一个滑动窗口规则。
type WindowRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// CacheConfig 存储通用缓存的配置。
type CacheConfig struct {
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。Endpoint 为空表示未启用附件上传。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
	PublicURL       string `mapstructure:"public_url"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空表示不发布事件。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// MetricsConfig 存储 Prometheus 指标的配置。
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_duration", 60*time.Second)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "chatbot.db")
	v.SetDefault("database.redis.addr", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("chat.max_steps", 5)
	v.SetDefault("chat.smooth_delay", 10*time.Millisecond)
	v.SetDefault("joke.base_url", "https://v2.jokeapi.dev")
	v.SetDefault("joke.cache_ttl", 60*time.Second)
	v.SetDefault("joke.timeout", 5*time.Second)
	v.SetDefault("weather.base_url", "https://api.open-meteo.com")
	v.SetDefault("weather.cache_ttl", 10*time.Minute)
	v.SetDefault("weather.timeout", 5*time.Second)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.prefix", "ratelimit")
	v.SetDefault("ratelimit.global.limit", 20)
	v.SetDefault("ratelimit.global.window", 10*time.Second)
	v.SetDefault("ratelimit.joke.limit", 10)
	v.SetDefault("ratelimit.joke.window", time.Minute)
	v.SetDefault("cache.default_ttl", time.Hour)
	v.SetDefault("cache.history_ttl", 5*time.Minute)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.bucket_name", "attachments")
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "chat-events")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 读取 .env 文件、YAML 配置文件和环境变量，返回解析后的配置。
// configPath 为空或文件不存在时只使用默认值和环境变量。
// 环境变量以 CHATBOT_ 为前缀，键中的 "." 替换为 "_"，例如 CHATBOT_DATABASE_DSN。
func Load(configPath string) (Config, error) {
	// .env.local 优先于 .env，godotenv 不会覆盖已存在的变量
	for _, f := range []string{".env.local", ".env"} {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("加载 %s 失败: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CHATBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("读取配置文件失败: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return cfg, nil
}

// Init 初始化配置加载，并将结果写入全局变量 Conf。失败时 panic。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = cfg
}
