package model

import "time"

// Location 经纬度
type Location struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Market 单个 Mandi 市场报价
type Market struct {
	Name        string    `json:"name"`
	Location    Location  `json:"location"`
	PricePerKg  float64   `json:"price_per_kg"`
	DistanceKm  float64   `json:"distance_km"` // 距农户位置
	LastUpdated time.Time `json:"last_updated"`
	Source      string    `json:"source"` // Agmarknet/AIKosh
	Warning     string    `json:"warning,omitempty"`
}

// Opportunity 价格机会等级
type Opportunity string

const (
	OpportunityExcellent Opportunity = "excellent"
	OpportunityGood      Opportunity = "good"
	OpportunityModerate  Opportunity = "moderate"
	OpportunityLow       Opportunity = "low"
)

// Valid 是否为已知机会等级
func (o Opportunity) Valid() bool {
	switch o {
	case OpportunityExcellent, OpportunityGood, OpportunityModerate, OpportunityLow:
		return true
	}
	return false
}

// MarketRecommendation 市场推荐结果
type MarketRecommendation struct {
	Crop            string      `json:"crop"`
	BestMarket      *Market     `json:"best_market"`  // 无数据时为 nil
	LocalMarket     *Market     `json:"local_market"` // 距离最近的市场
	AllMarkets      []Market    `json:"all_markets"`  // 按价格降序
	PriceDifference float64     `json:"price_difference"`
	Opportunity     Opportunity `json:"market_opportunity"`
	Reasoning       string      `json:"reasoning"`
	DataSource      string      `json:"data_source"`
	FallbackUsed    bool        `json:"fallback_used"`
	Timestamp       time.Time   `json:"timestamp"`
}

// MarketStatistics 市场对比统计
type MarketStatistics struct {
	HighestPrice   float64 `json:"highest_price"`
	LowestPrice    float64 `json:"lowest_price"`
	AveragePrice   float64 `json:"average_price"`
	PriceRange     float64 `json:"price_range"`
	ClosestMarket  float64 `json:"closest_market"`
	FarthestMarket float64 `json:"farthest_market"`
	TotalMarkets   int     `json:"total_markets"`
}

// MarketComparison 全量市场对比
type MarketComparison struct {
	Crop         string            `json:"crop"`
	Markets      []Market          `json:"markets"`
	Statistics   *MarketStatistics `json:"statistics"`
	FallbackUsed bool              `json:"fallback_used"`
	Timestamp    time.Time         `json:"timestamp"`
}
