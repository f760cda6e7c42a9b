package model

import "time"

// WeatherDay 单日预报
type WeatherDay struct {
	Date              string  `json:"date"` // YYYY-MM-DD
	TempMax           float64 `json:"temp_max"`
	TempMin           float64 `json:"temp_min"`
	Humidity          float64 `json:"humidity"`           // [0,100]
	PrecipProbability float64 `json:"precip_probability"` // [0,1]
	PrecipAmount      float64 `json:"precip_amount"`      // mm
	Condition         string  `json:"condition"`
	WindSpeed         float64 `json:"wind_speed"`
}

// 风险窗口
const (
	RiskWindowNext24Hours = "next 24 hours"
	RiskWindow24To48Hours = "24-48 hours"
)

// StormRiskAssessment 48 小时风暴风险
// 无风险时 RiskWindow / Impact 为空
type StormRiskAssessment struct {
	HasStormRisk bool   `json:"has_storm_risk"`
	RiskWindow   string `json:"risk_window,omitempty"`
	Impact       string `json:"impact,omitempty"`
}

// WeatherReport 天气分支产出
type WeatherReport struct {
	Forecast     []WeatherDay         `json:"forecast"`
	Risk         StormRiskAssessment  `json:"risk_assessment"`
	Current      EnvironmentalReading `json:"current_conditions"`
	Source       string               `json:"source"`
	FallbackUsed bool                 `json:"fallback_used"`
	Warning      string               `json:"warning,omitempty"`
	LastUpdated  time.Time            `json:"last_updated"`
}
