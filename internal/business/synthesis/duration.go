package synthesis

import (
	"fmt"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/business/spoilage"
)

// localizedDuration 腐败时长的本地化展示，英文沿用规则匹配器的格式
func localizedDuration(locale model.Locale, hours int) string {
	if locale != model.LocaleHindi {
		return spoilage.FormatDuration(hours)
	}
	switch {
	case hours < 24:
		return fmt.Sprintf("%d घंटे", hours)
	case hours < 168:
		return fmt.Sprintf("%d दिन", hours/24)
	default:
		return fmt.Sprintf("%d सप्ताह", hours/168)
	}
}
