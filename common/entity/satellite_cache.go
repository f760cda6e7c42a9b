package entity

import (
	"time"

	"gorm.io/datatypes"
)

// SatelliteCache 卫星数据缓存实体
// (latitude, longitude, date) 唯一，upsert 时后写覆盖
type SatelliteCache struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`

	// 位置与日期
	Latitude  float64        `gorm:"column:latitude;type:decimal(10,8);not null;uniqueIndex:uk_location_date"`
	Longitude float64        `gorm:"column:longitude;type:decimal(11,8);not null;uniqueIndex:uk_location_date"`
	Date      datatypes.Date `gorm:"column:date;not null;uniqueIndex:uk_location_date"`

	// 卫星指标
	NDVI         float64        `gorm:"column:ndvi;type:decimal(5,4);not null"`
	SoilMoisture float64        `gorm:"column:soil_moisture;type:decimal(5,2);not null"`
	RainfallMM   float64        `gorm:"column:rainfall_mm;type:decimal(8,2);not null"`
	DataSources  datatypes.JSON `gorm:"column:data_sources;type:json"`

	// 时间戳
	CreatedAt time.Time `gorm:"column:created_at;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index:idx_expires_at"`
}

// TableName 指定表名
func (SatelliteCache) TableName() string {
	return "satellite_cache"
}
