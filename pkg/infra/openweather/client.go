package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/config"
)

const (
	sourceName   = "OpenWeatherMap"
	forecastDays = 8
)

// Client One Call 接口客户端（实现 storm.WeatherProvider）
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient 创建客户端，api_key 为空时报错，调用方改用气候均值
func NewClient(cfg config.OpenWeatherConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openweather api_key is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("openweather base_url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}, nil
}

// Name 数据源名称
func (c *Client) Name() string {
	return sourceName
}

// oneCallResponse 只解析 daily 部分
type oneCallResponse struct {
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Max float64 `json:"max"`
			Min float64 `json:"min"`
		} `json:"temp"`
		Humidity  float64 `json:"humidity"`
		Pop       float64 `json:"pop"`
		Rain      float64 `json:"rain"`
		WindSpeed float64 `json:"wind_speed"`
		Weather   []struct {
			Main string `json:"main"`
		} `json:"weather"`
	} `json:"daily"`
}

// Forecast 拉取未来 8 天逐日预报
func (c *Client) Forecast(ctx context.Context, latitude, longitude float64) ([]model.WeatherDay, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("appid", c.APIKey)
	q.Set("units", "metric")
	q.Set("exclude", "minutely,hourly,alerts")

	data, err := c.get(ctx, c.BaseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp oneCallResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode openweather response: %w", err)
	}
	if len(resp.Daily) == 0 {
		return nil, errors.New("openweather response has no daily forecast")
	}

	daily := resp.Daily
	if len(daily) > forecastDays {
		daily = daily[:forecastDays]
	}

	days := make([]model.WeatherDay, 0, len(daily))
	for _, d := range daily {
		condition := ""
		if len(d.Weather) > 0 {
			condition = strings.ToLower(d.Weather[0].Main)
		}
		days = append(days, model.WeatherDay{
			Date:              time.Unix(d.Dt, 0).UTC().Format("2006-01-02"),
			TempMax:           d.Temp.Max,
			TempMin:           d.Temp.Min,
			Humidity:          d.Humidity,
			PrecipProbability: d.Pop,
			PrecipAmount:      d.Rain,
			Condition:         condition,
			WindSpeed:         d.WindSpeed,
		})
	}
	return days, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweather API error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}
