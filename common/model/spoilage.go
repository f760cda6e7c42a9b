package model

import "time"

// Severity 风险等级（规则排序与紧急程度共用）
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// severityRanks critical 最靠前；未知等级统一排在 low 之后
var severityRanks = map[Severity]int{
	SeverityCritical: 1,
	SeverityHigh:     2,
	SeverityMedium:   3,
	SeverityLow:      4,
}

// UnknownSeverityRank 未识别等级的排序位置
const UnknownSeverityRank = 5

// Rank 返回排序用的等级序号
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return UnknownSeverityRank
}

// Known 是否为四个已知等级之一
func (s Severity) Known() bool {
	_, ok := severityRanks[s]
	return ok
}

// Range 闭区间 [Min, Max]
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Valid Min <= Max
func (r Range) Valid() bool {
	return r.Min <= r.Max
}

// Contains 闭区间包含判断
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// EnvironmentalReading 环境读数
type EnvironmentalReading struct {
	Temperature float64 `json:"temperature"` // °C
	Humidity    float64 `json:"humidity"`    // %
}

// RuleSource 规则出处
type RuleSource struct {
	Name        string  `json:"name" yaml:"name"`
	Type        string  `json:"type" yaml:"type"` // ICAR/AGROVOC/FALLBACK
	Reference   string  `json:"reference" yaml:"reference"`
	Credibility float64 `json:"credibility" yaml:"credibility"` // [0,1]
}

// SpoilageRule 生物腐败规则
type SpoilageRule struct {
	ID                string     `json:"id" yaml:"id"`
	Condition         string     `json:"condition" yaml:"condition"`
	TempRange         Range      `json:"temp_range" yaml:"temp_range"`
	HumidityRange     Range      `json:"humidity_range" yaml:"humidity_range"`
	SpoilageTimeHours int        `json:"spoilage_time_hours" yaml:"spoilage_time_hours"`
	Severity          Severity   `json:"severity" yaml:"severity"`
	Source            RuleSource `json:"source" yaml:"source"`
}

// SpoilageTimeline 腐败时间线
type SpoilageTimeline struct {
	Hours       *int          `json:"time_to_spoilage_hours"` // 无匹配规则时为 nil
	Display     string        `json:"time_to_spoilage_display"`
	RiskLevel   Severity      `json:"risk_level"`
	PrimaryRule *SpoilageRule `json:"primary_rule,omitempty"`
}

// Citation 去重后的引用
type Citation struct {
	Source      string  `json:"source"`
	Type        string  `json:"type"`
	Reference   string  `json:"reference"`
	Credibility float64 `json:"credibility"`
}

// SpoilageAssessment 腐败风险评估结果
type SpoilageAssessment struct {
	Crop         string               `json:"crop"`
	Reading      EnvironmentalReading `json:"conditions"`
	MatchedRules []SpoilageRule       `json:"matched_rules"`
	Timeline     SpoilageTimeline     `json:"spoilage_timeline"`
	RiskFactors  []string             `json:"risk_factors"`
	Citations    []Citation           `json:"citations"`
	FallbackUsed bool                 `json:"fallback_used"` // 规则库不可用，使用内置保守规则
	Warning      string               `json:"warning,omitempty"`
	Timestamp    time.Time            `json:"timestamp"`
}
