package tools

import (
	"ai-chatbot-go/pkg/cache"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Forecaster 返回指定坐标的天气预报 JSON。
type Forecaster interface {
	Forecast(ctx context.Context, latitude, longitude float64) (json.RawMessage, error)
}

type weatherArgs struct {
	Latitude  float64 `json:"latitude" jsonschema:"description=Latitude of the location,minimum=-90,maximum=90"`
	Longitude float64 `json:"longitude" jsonschema:"description=Longitude of the location,minimum=-180,maximum=180"`
}

// WeatherTool 查询当前天气，结果经通用缓存保存。
type WeatherTool struct {
	forecaster Forecaster
	cache      *cache.Cache
	ttl        time.Duration
}

func NewWeatherTool(f Forecaster, c *cache.Cache, ttl time.Duration) *WeatherTool {
	return &WeatherTool{forecaster: f, cache: c, ttl: ttl}
}

func (t *WeatherTool) Name() string { return "getWeather" }

func (t *WeatherTool) Description() string { return "Get the current weather at a location" }

func (t *WeatherTool) Parameters() json.RawMessage { return schemaFor(&weatherArgs{}) }

func (t *WeatherTool) Execute(ctx context.Context, _ Session, raw json.RawMessage) (any, error) {
	var args weatherArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Latitude < -90 || args.Latitude > 90 || args.Longitude < -180 || args.Longitude > 180 {
		return nil, errors.New("coordinates out of range")
	}

	// 坐标保留两位小数，缓存键与上游请求使用同一组值
	lat, lon := roundCoord(args.Latitude), roundCoord(args.Longitude)
	key := fmt.Sprintf("weather:%.2f:%.2f", lat, lon)
	forecast, err := cache.Get(ctx, t.cache, key, func(ctx context.Context) (*json.RawMessage, error) {
		body, err := t.forecaster.Forecast(ctx, lat, lon)
		if err != nil {
			return nil, err
		}
		return &body, nil
	}, cache.WithTTL(t.ttl))
	if err != nil {
		return nil, err
	}
	return *forecast, nil
}

func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}
