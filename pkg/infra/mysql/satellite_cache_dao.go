package mysql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"agrichain/advisor/common/entity"
	"agrichain/advisor/common/model"
)

const dateLayout = "2006-01-02"

// upsertColumns 冲突时覆盖的列，created_at 一并覆盖以重置 TTL
var upsertColumns = []string{"ndvi", "soil_moisture", "rainfall_mm", "data_sources", "created_at", "expires_at"}

// SatelliteCacheDAO 卫星缓存数据访问对象（实现 geocache.Store）
type SatelliteCacheDAO struct {
	db *gorm.DB
}

// NewSatelliteCacheDAO 创建 SatelliteCacheDAO 实例
func NewSatelliteCacheDAO(dsn string) (*SatelliteCacheDAO, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &SatelliteCacheDAO{db: db}, nil
}

// NewSatelliteCacheDAOWithDB 使用已有连接
func NewSatelliteCacheDAOWithDB(db *gorm.DB) *SatelliteCacheDAO {
	return &SatelliteCacheDAO{db: db}
}

// AutoMigrate 建表
func (dao *SatelliteCacheDAO) AutoMigrate(ctx context.Context) error {
	return dao.db.WithContext(ctx).AutoMigrate(&entity.SatelliteCache{})
}

// Get 按 (latitude, longitude, date) 精确查找，未找到返回 (nil, nil)
func (dao *SatelliteCacheDAO) Get(ctx context.Context, latitude, longitude float64, date time.Time) (*model.GeoCacheEntry, error) {
	var row entity.SatelliteCache
	result := dao.db.WithContext(ctx).
		Where("latitude = ? AND longitude = ? AND date = ?", latitude, longitude, date.Format(dateLayout)).
		Take(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get satellite cache: %w", result.Error)
	}
	return toModel(&row)
}

// Upsert 写入缓存，唯一键冲突时后写覆盖
func (dao *SatelliteCacheDAO) Upsert(ctx context.Context, entry *model.GeoCacheEntry) error {
	row, err := toEntity(entry)
	if err != nil {
		return err
	}

	result := dao.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "latitude"}, {Name: "longitude"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert satellite cache: %w", result.Error)
	}
	return nil
}

// DeleteExpired 清理 expires_at 早于 before 的行
func (dao *SatelliteCacheDAO) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := dao.db.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&entity.SatelliteCache{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired satellite cache: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close 关闭数据库连接
func (dao *SatelliteCacheDAO) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toEntity(entry *model.GeoCacheEntry) (*entity.SatelliteCache, error) {
	if entry == nil {
		return nil, errors.New("nil satellite cache entry")
	}

	var sources datatypes.JSON
	if len(entry.DataSources) > 0 {
		raw, err := json.Marshal(entry.DataSources)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data sources: %w", err)
		}
		sources = datatypes.JSON(raw)
	}

	return &entity.SatelliteCache{
		Latitude:     entry.Latitude,
		Longitude:    entry.Longitude,
		Date:         datatypes.Date(entry.Date),
		NDVI:         entry.NDVI,
		SoilMoisture: entry.SoilMoisture,
		RainfallMM:   entry.RainfallMM,
		DataSources:  sources,
		CreatedAt:    entry.CreatedAt,
		ExpiresAt:    entry.ExpiresAt,
	}, nil
}

func toModel(row *entity.SatelliteCache) (*model.GeoCacheEntry, error) {
	entry := &model.GeoCacheEntry{
		Latitude:     row.Latitude,
		Longitude:    row.Longitude,
		Date:         time.Time(row.Date),
		NDVI:         row.NDVI,
		SoilMoisture: row.SoilMoisture,
		RainfallMM:   row.RainfallMM,
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
	}
	if len(row.DataSources) > 0 {
		if err := json.Unmarshal(row.DataSources, &entry.DataSources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal data sources: %w", err)
		}
	}
	return entry, nil
}
