package synthesis

import "agrichain/advisor/common/model"

// GeoSignal 卫星分支结果
type GeoSignal struct {
	NDVI         *float64
	SoilMoisture *float64
	RainfallMM   *float64
	Cached       bool
	CacheAgeDays int
	Err          error
}

// WeatherSignal 天气分支结果
type WeatherSignal struct {
	Report *model.WeatherReport
	Err    error
}

// RulesSignal 腐败规则分支结果
type RulesSignal struct {
	Assessment *model.SpoilageAssessment
	Err        error
}

// MarketSignal 市场分支结果
type MarketSignal struct {
	Recommendation *model.MarketRecommendation
	Err            error
}

// Inputs 四路信号全部落定后的输入
type Inputs struct {
	Crop    string
	Locale  model.Locale
	Geo     GeoSignal
	Weather WeatherSignal
	Rules   RulesSignal
	Market  MarketSignal
}

// Signals 决策级联使用的原始指标
type Signals struct {
	CropReady         bool
	StormRisk         bool
	SpoilageRisk      model.Severity
	MarketOpportunity model.Opportunity
	PriceDifference   float64
}

// NDVIReadyThreshold NDVI 高于该值视为可收获
const NDVIReadyThreshold = 0.6

// CropReady 无 NDVI 时默认可收获
func CropReady(ndvi *float64) bool {
	if ndvi == nil {
		return true
	}
	return *ndvi > NDVIReadyThreshold
}
