package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agrichain/advisor/common/model"
)

const (
	dateLayout = "2006-01-02"
	// 定长格式，expires_at 可按字符串比较
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// CacheStore 卫星缓存（实现 geocache.Store）
type CacheStore struct {
	db *sql.DB
}

// NewCacheStore 创建缓存存储
func NewCacheStore(db *sql.DB) *CacheStore {
	return &CacheStore{db: db}
}

// Get 按 (latitude, longitude, date) 精确查找，未找到返回 (nil, nil)
func (s *CacheStore) Get(ctx context.Context, latitude, longitude float64, date time.Time) (*model.GeoCacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT latitude, longitude, date, ndvi, soil_moisture, rainfall_mm,
		data_sources, created_at, expires_at
		FROM satellite_cache WHERE latitude = ? AND longitude = ? AND date = ?`,
		latitude, longitude, date.Format(dateLayout))

	var (
		entry                 model.GeoCacheEntry
		day, created, expires string
		sources               sql.NullString
	)
	err := row.Scan(&entry.Latitude, &entry.Longitude, &day, &entry.NDVI, &entry.SoilMoisture,
		&entry.RainfallMM, &sources, &created, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get satellite cache: %w", err)
	}

	if entry.Date, err = time.Parse(dateLayout, day); err != nil {
		return nil, fmt.Errorf("bad cache date %q: %w", day, err)
	}
	if entry.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("bad cache created_at %q: %w", created, err)
	}
	if entry.ExpiresAt, err = time.Parse(timeLayout, expires); err != nil {
		return nil, fmt.Errorf("bad cache expires_at %q: %w", expires, err)
	}
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &entry.DataSources); err != nil {
			return nil, fmt.Errorf("bad cache data_sources: %w", err)
		}
	}
	return &entry, nil
}

// Upsert 唯一键冲突时后写覆盖
func (s *CacheStore) Upsert(ctx context.Context, entry *model.GeoCacheEntry) error {
	if entry == nil {
		return errors.New("nil satellite cache entry")
	}

	var sources sql.NullString
	if len(entry.DataSources) > 0 {
		raw, err := json.Marshal(entry.DataSources)
		if err != nil {
			return fmt.Errorf("failed to marshal data sources: %w", err)
		}
		sources = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO satellite_cache
		(latitude, longitude, date, ndvi, soil_moisture, rainfall_mm, data_sources, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (latitude, longitude, date) DO UPDATE SET
			ndvi = excluded.ndvi,
			soil_moisture = excluded.soil_moisture,
			rainfall_mm = excluded.rainfall_mm,
			data_sources = excluded.data_sources,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		entry.Latitude, entry.Longitude, entry.Date.Format(dateLayout),
		entry.NDVI, entry.SoilMoisture, entry.RainfallMM, sources,
		entry.CreatedAt.UTC().Format(timeLayout), entry.ExpiresAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to upsert satellite cache: %w", err)
	}
	return nil
}

// DeleteExpired 清理 expires_at 早于 before 的行
func (s *CacheStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM satellite_cache WHERE expires_at < ?`,
		before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired satellite cache: %w", err)
	}
	return res.RowsAffected()
}
