// Package weather 是 Open-Meteo 天气预报接口的客户端。
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client 是 Open-Meteo 客户端。
type Client struct {
	http *resty.Client
}

// NewClient 创建客户端。
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// Forecast 返回指定坐标的当前气温、逐小时气温和日出日落时间，保留上游 JSON 原样。
func (c *Client) Forecast(ctx context.Context, latitude, longitude float64) (json.RawMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(latitude, 'f', -1, 64),
			"longitude": strconv.FormatFloat(longitude, 'f', -1, 64),
			"current":   "temperature_2m",
			"hourly":    "temperature_2m",
			"daily":     "sunrise,sunset",
			"timezone":  "auto",
		}).
		Get("/v1/forecast")
	if err != nil {
		return nil, fmt.Errorf("weather: request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("weather: API returned status %d: %s", resp.StatusCode(), resp.String())
	}
	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("weather: malformed response")
	}
	return json.RawMessage(body), nil
}
