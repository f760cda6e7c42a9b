package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"agrichain/advisor/common/model"
)

// PriceSnapshot 某数据源某作物的行情快照
type PriceSnapshot struct {
	Markets   []model.Market `json:"markets"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// PriceSource 从 Redis 读取行情快照（实现 market.Provider）
// key 为 <prefix><source>:<crop>，由行情同步任务写入
type PriceSource struct {
	client *redis.Client
	prefix string
	source string
}

// NewPriceSource 创建行情数据源
func NewPriceSource(client *redis.Client, prefix, source string) *PriceSource {
	return &PriceSource{client: client, prefix: prefix, source: source}
}

// Name 数据源名称
func (s *PriceSource) Name() string {
	return s.source
}

// Key 行情快照 key
func (s *PriceSource) Key(crop string) string {
	return PriceKey(s.prefix, s.source, crop)
}

// PriceKey 行情快照 key
func PriceKey(prefix, source, crop string) string {
	return fmt.Sprintf("%s%s:%s", prefix, source, strings.ToLower(strings.TrimSpace(crop)))
}

// Fetch 读取快照；key 不存在视为数据源不可用
func (s *PriceSource) Fetch(ctx context.Context, crop string) ([]model.Market, error) {
	key := s.Key(crop)
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("no price snapshot at %s", key)
		}
		return nil, fmt.Errorf("failed to get price snapshot %s: %w", key, err)
	}

	markets, err := DecodeSnapshot(raw, s.source)
	if err != nil {
		return nil, fmt.Errorf("price snapshot %s: %w", key, err)
	}
	return markets, nil
}

// SetPrices 写入快照，ttl=0 不过期
func (s *PriceSource) SetPrices(ctx context.Context, crop string, markets []model.Market, ttl time.Duration) error {
	raw, err := json.Marshal(PriceSnapshot{Markets: markets, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal price snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.Key(crop), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set price snapshot: %w", err)
	}
	return nil
}

// DecodeSnapshot 解析快照，补齐 Source 与 LastUpdated
func DecodeSnapshot(raw []byte, source string) ([]model.Market, error) {
	var snapshot PriceSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	markets := make([]model.Market, 0, len(snapshot.Markets))
	for _, m := range snapshot.Markets {
		if m.Source == "" {
			m.Source = source
		}
		if m.LastUpdated.IsZero() {
			m.LastUpdated = snapshot.UpdatedAt
		}
		markets = append(markets, m)
	}
	return markets, nil
}
