package geocache

import (
	"context"
	"fmt"
	"math"
	"time"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

// DefaultTTLDays 缓存有效期
const DefaultTTLDays = 7

const dateLayout = "2006-01-02"

// Store 卫星缓存持久化
// Get 未找到时返回 (nil, nil)；Upsert 以 (latitude, longitude, date) 为唯一键，后写覆盖
type Store interface {
	Get(ctx context.Context, latitude, longitude float64, date time.Time) (*model.GeoCacheEntry, error)
	Upsert(ctx context.Context, entry *model.GeoCacheEntry) error
}

// Cache 卫星数据缓存（TTL 判定与键规则）
type Cache struct {
	store   Store
	ttlDays int
	log     logger.Logger
	now     func() time.Time
}

// NewCache 创建缓存
func NewCache(store Store, ttlDays int, log logger.Logger) *Cache {
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Cache{store: store, ttlDays: ttlDays, log: log, now: time.Now}
}

// Key 缓存键 "<lat:.8f>_<lon:.8f>_<YYYY-MM-DD>"
func Key(latitude, longitude float64, date time.Time) string {
	return fmt.Sprintf("%.8f_%.8f_%s", latitude, longitude, date.Format(dateLayout))
}

// RoundCoord 坐标保留 8 位小数
func RoundCoord(v float64) float64 {
	return math.Round(v*1e8) / 1e8
}

// DateOnly 截断为 UTC 零点
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AgeDays 缓存年龄（整天数，向下取整）
func AgeDays(entry *model.GeoCacheEntry, now time.Time) int {
	return int(now.Sub(entry.CreatedAt) / (24 * time.Hour))
}

// IsExpired 年龄达到 TTL 天即过期
func (c *Cache) IsExpired(entry *model.GeoCacheEntry) bool {
	if entry == nil || entry.CreatedAt.IsZero() {
		return true
	}
	return AgeDays(entry, c.now()) >= c.ttlDays
}

// AgeDays 相对当前时间的缓存年龄
func (c *Cache) AgeDays(entry *model.GeoCacheEntry) int {
	return AgeDays(entry, c.now())
}

// Get 读取缓存；不存在与已过期都返回 (nil, nil)
func (c *Cache) Get(ctx context.Context, latitude, longitude float64, date time.Time) (*model.GeoCacheEntry, error) {
	lat, lon, day := RoundCoord(latitude), RoundCoord(longitude), DateOnly(date)
	key := Key(lat, lon, day)

	entry, err := c.store.Get(ctx, lat, lon, day)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errorutil.Unavailable("satellite_cache", err)
	}
	if entry == nil {
		c.log.Debugf(ctx, "satellite cache miss: %s", key)
		return nil, nil
	}
	if c.IsExpired(entry) {
		c.log.Debugf(ctx, "satellite cache expired: %s", key)
		return nil, nil
	}

	c.log.Debugf(ctx, "satellite cache hit: %s", key)
	return entry, nil
}

// Update 写入缓存，expires_at = created_at + TTL
func (c *Cache) Update(ctx context.Context, latitude, longitude float64, date time.Time,
	ndvi, soilMoisture, rainfallMM float64, sources map[string]interface{}) (*model.GeoCacheEntry, error) {
	if err := validateReading(latitude, longitude, ndvi, soilMoisture, rainfallMM); err != nil {
		return nil, err
	}

	created := c.now().UTC()
	entry := &model.GeoCacheEntry{
		Latitude:     RoundCoord(latitude),
		Longitude:    RoundCoord(longitude),
		Date:         DateOnly(date),
		NDVI:         ndvi,
		SoilMoisture: soilMoisture,
		RainfallMM:   rainfallMM,
		DataSources:  sources,
		CreatedAt:    created,
		ExpiresAt:    created.AddDate(0, 0, c.ttlDays),
	}

	if err := c.store.Upsert(ctx, entry); err != nil {
		return nil, errorutil.Unavailable("satellite_cache", err)
	}

	c.log.Infof(ctx, "satellite cache updated: %s", Key(entry.Latitude, entry.Longitude, entry.Date))
	return entry, nil
}

func validateReading(latitude, longitude, ndvi, soilMoisture, rainfallMM float64) error {
	switch {
	case latitude < -90 || latitude > 90:
		return errorutil.Invalid("latitude", "must be within [-90, 90]")
	case longitude < -180 || longitude > 180:
		return errorutil.Invalid("longitude", "must be within [-180, 180]")
	case ndvi < 0 || ndvi > 1:
		return errorutil.Invalid("ndvi", "must be within [0, 1]")
	case soilMoisture < 0 || soilMoisture > 100:
		return errorutil.Invalid("soil_moisture", "must be within [0, 100]")
	case rainfallMM < 0:
		return errorutil.Invalid("rainfall_mm", "must not be negative")
	}
	return nil
}
