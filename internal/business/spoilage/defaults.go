package spoilage

import "agrichain/advisor/common/model"

var fallbackSource = model.RuleSource{
	Name:        "Default Rules",
	Type:        "FALLBACK",
	Reference:   "Conservative estimate",
	Credibility: 0.5,
}

// DefaultRules 规则库不可达时的内置保守规则，未知作物返回空列表
func DefaultRules(crop string) []model.SpoilageRule {
	var (
		hours    int
		severity model.Severity
	)
	switch normalizeCrop(crop) {
	case "tomato":
		hours, severity = 72, model.SeverityHigh
	case "onion":
		hours, severity = 168, model.SeverityMedium
	default:
		return []model.SpoilageRule{}
	}

	return []model.SpoilageRule{{
		ID:                "default_" + normalizeCrop(crop),
		Condition:         "Default conservative rule (database unavailable)",
		TempRange:         model.Range{Min: 0, Max: 50},
		HumidityRange:     model.Range{Min: 0, Max: 100},
		SpoilageTimeHours: hours,
		Severity:          severity,
		Source:            fallbackSource,
	}}
}
