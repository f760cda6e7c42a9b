package spoilage

import (
	"fmt"

	"agrichain/advisor/common/model"
)

const (
	hoursPerDay  = 24
	hoursPerWeek = 168
)

// Timeline 以首条（最严重）规则推导腐败时间线
func Timeline(rules []model.SpoilageRule) model.SpoilageTimeline {
	if len(rules) == 0 {
		return model.SpoilageTimeline{
			Display:   "Unknown",
			RiskLevel: model.SeverityUnknown,
		}
	}

	primary := rules[0]
	hours := primary.SpoilageTimeHours
	level := primary.Severity
	if !level.Known() {
		level = model.SeverityUnknown
	}

	return model.SpoilageTimeline{
		Hours:       &hours,
		Display:     FormatDuration(hours),
		RiskLevel:   level,
		PrimaryRule: &primary,
	}
}

// FormatDuration 小时数转展示文本：<24 小时，<168 天，否则周
func FormatDuration(hours int) string {
	switch {
	case hours < hoursPerDay:
		return fmt.Sprintf("%d hours", hours)
	case hours < hoursPerWeek:
		return pluralize(hours/hoursPerDay, "day")
	default:
		return pluralize(hours/hoursPerWeek, "week")
	}
}

func pluralize(n int, unit string) string {
	if n > 1 {
		return fmt.Sprintf("%d %ss", n, unit)
	}
	return fmt.Sprintf("%d %s", n, unit)
}

// RiskFactors 由首条规则声明的区间推导风险因素（不看实时读数）
func RiskFactors(rules []model.SpoilageRule) []string {
	factors := make([]string, 0, 3)
	if len(rules) == 0 {
		return factors
	}

	primary := rules[0]
	if primary.TempRange.Max > 30 {
		factors = append(factors, "High temperature accelerating spoilage")
	} else if primary.TempRange.Min < 10 {
		factors = append(factors, "Low temperature risk (chilling injury)")
	}

	if primary.HumidityRange.Min > 85 {
		factors = append(factors, "High humidity promoting fungal growth")
	} else if primary.HumidityRange.Max < 70 {
		factors = append(factors, "Low humidity causing dehydration")
	}

	return append(factors, primary.Condition)
}

// Citations 按 (type, reference) 去重，保留首次出现
func Citations(rules []model.SpoilageRule) []model.Citation {
	citations := make([]model.Citation, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))

	for _, r := range rules {
		key := r.Source.Type + ":" + r.Source.Reference
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		citations = append(citations, model.Citation{
			Source:      r.Source.Name,
			Type:        r.Source.Type,
			Reference:   r.Source.Reference,
			Credibility: r.Source.Credibility,
		})
	}
	return citations
}
