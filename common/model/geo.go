package model

import "time"

// GeoCacheEntry 卫星数据缓存行，(Latitude, Longitude, Date) 唯一
type GeoCacheEntry struct {
	Latitude     float64                `json:"latitude"`  // 8 位小数
	Longitude    float64                `json:"longitude"` // 8 位小数
	Date         time.Time              `json:"date"`
	NDVI         float64                `json:"ndvi"`          // [0,1]
	SoilMoisture float64                `json:"soil_moisture"` // [0,100]
	RainfallMM   float64                `json:"rainfall_mm"`
	DataSources  map[string]interface{} `json:"data_sources,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	ExpiresAt    time.Time              `json:"expires_at"`
}
