package model

import (
	"strings"
	"time"
)

// Action 推荐动作
type Action string

const (
	ActionHarvestNow Action = "harvest_now"
	ActionSellNow    Action = "sell_now"
	ActionWait       Action = "wait"
)

// Urgency 紧急程度
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// PrimaryFactor 决策主因
type PrimaryFactor string

const (
	FactorStormRisk         PrimaryFactor = "storm_risk"
	FactorSpoilageRisk      PrimaryFactor = "spoilage_risk"
	FactorMarketOpportunity PrimaryFactor = "market_opportunity"
	FactorOptimalTiming     PrimaryFactor = "optimal_timing"
)

// DataQuality 数据质量等级
type DataQuality string

const (
	QualityExcellent DataQuality = "excellent"
	QualityGood      DataQuality = "good"
	QualityFair      DataQuality = "fair"
	QualityPoor      DataQuality = "poor"
)

// Locale 输出语言
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleHindi   Locale = "hi"
)

// ParseLocale "hi" 为印地语，其余一律英语
func ParseLocale(s string) Locale {
	if strings.EqualFold(strings.TrimSpace(s), string(LocaleHindi)) {
		return LocaleHindi
	}
	return LocaleEnglish
}

// Indicators 四路原始信号快照
type Indicators struct {
	NDVI              *float64    `json:"ndvi"`
	StormRisk         bool        `json:"storm_risk"`
	SpoilageRisk      Severity    `json:"spoilage_risk"`
	MarketOpportunity Opportunity `json:"market_opportunity"`
	PriceDifference   float64     `json:"price_difference"`
}

// Recommendation 最终推荐
type Recommendation struct {
	Action         Action        `json:"action"`
	Urgency        Urgency       `json:"urgency"`
	PrimaryFactor  PrimaryFactor `json:"primary_factor"`
	PrimaryMessage string        `json:"primary_message"`
	Reasoning      string        `json:"reasoning"`
	Confidence     float64       `json:"confidence"` // [0,100]
	DataQuality    DataQuality   `json:"data_quality"`
	QualityFactors []string      `json:"quality_factors"`
	ReasoningChain []string      `json:"reasoning_chain"`
	CropReady      bool          `json:"crop_ready"`
	Indicators     Indicators    `json:"indicators"`
	Locale         Locale        `json:"language"`
	Timestamp      time.Time     `json:"timestamp"`
}
