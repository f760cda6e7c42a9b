package synthesis

import (
	"strings"
	"text/template"

	"agrichain/advisor/common/model"
)

// messageKey 主消息模板键；Factor 为空表示该动作的兜底模板
type messageKey struct {
	Action model.Action
	Factor model.PrimaryFactor
	Locale model.Locale
}

var messageTexts = map[messageKey]string{
	{model.ActionHarvestNow, model.FactorStormRisk, model.LocaleEnglish}:      "Harvest your {{.Crop}} immediately! Heavy rain expected {{.RiskWindow}}.",
	{model.ActionHarvestNow, model.FactorSpoilageRisk, model.LocaleEnglish}:   "Harvest your {{.Crop}} now! Spoilage risk is high - crop may deteriorate in {{.SpoilageDisplay}}.",
	{model.ActionHarvestNow, "", model.LocaleEnglish}:                         "Harvest your {{.Crop}} now for best results.",
	{model.ActionSellNow, model.FactorMarketOpportunity, model.LocaleEnglish}: "Sell at {{.BestMarket}} now! You'll earn ₹{{.PriceDifference}} more per kg.",
	{model.ActionSellNow, "", model.LocaleEnglish}:                            "Sell at {{.BestMarket}} now! You'll earn ₹{{.PriceDifference}} more per kg.",
	{model.ActionWait, model.FactorOptimalTiming, model.LocaleEnglish}:        "Wait for optimal conditions. Your {{.Crop}} will benefit from more time.",
	{model.ActionWait, "", model.LocaleEnglish}:                               "Monitor conditions closely. We'll alert you when it's time to harvest.",
	{model.ActionHarvestNow, model.FactorStormRisk, model.LocaleHindi}:        "अपनी {{.Crop}} की फसल तुरंत काटें! भारी बारिश आने वाली है।",
	{model.ActionHarvestNow, model.FactorSpoilageRisk, model.LocaleHindi}:     "अपनी {{.Crop}} की फसल अभी काटें! खराब होने का खतरा है।",
	{model.ActionHarvestNow, "", model.LocaleHindi}:                           "अपनी {{.Crop}} की फसल अभी काटें।",
	{model.ActionSellNow, model.FactorMarketOpportunity, model.LocaleHindi}:   "{{.BestMarket}} में अभी बेचें! आपको ₹{{.PriceDifference}} प्रति किलो अधिक मिलेगा।",
	{model.ActionSellNow, "", model.LocaleHindi}:                              "{{.BestMarket}} में अभी बेचें! आपको ₹{{.PriceDifference}} प्रति किलो अधिक मिलेगा।",
	{model.ActionWait, model.FactorOptimalTiming, model.LocaleHindi}:          "इष्टतम स्थितियों की प्रतीक्षा करें। आपकी {{.Crop}} को अधिक समय से लाभ होगा।",
	{model.ActionWait, "", model.LocaleHindi}:                                 "स्थितियों पर नज़र रखें। कटाई का समय होने पर हम आपको सूचित करेंगे।",
}

// lineKey 推理链与摘要中的固定语句
type lineKey string

const (
	lineWeatherAlert      lineKey = "weather.alert"
	lineWeatherClear      lineKey = "weather.clear"
	lineCropReady         lineKey = "crop.ready"
	lineCropNotReady      lineKey = "crop.not_ready"
	lineCropNoData        lineKey = "crop.no_data"
	lineSpoilageKnown     lineKey = "spoilage.known"
	lineSpoilageUnknown   lineKey = "spoilage.unknown"
	lineMarketGain        lineKey = "market.gain"
	lineMarketLocalBest   lineKey = "market.local_best"
	lineMarketUnavailable lineKey = "market.unavailable"
	lineFinal             lineKey = "final"

	summaryStorm          lineKey = "summary.storm"
	summarySpoilage       lineKey = "summary.spoilage"
	summarySpoilageDetail lineKey = "summary.spoilage_detail"
	summaryMarket         lineKey = "summary.market"
	summaryNoThreats      lineKey = "summary.no_threats"
	summaryReadyHarvest   lineKey = "summary.ready_harvest"
	summaryReadySale      lineKey = "summary.ready_sale"
	summaryNeedsTime      lineKey = "summary.needs_time"
)

var lineTexts = map[model.Locale]map[lineKey]string{
	model.LocaleEnglish: {
		lineWeatherAlert:      "Weather Alert: {{.Impact}} {{.RiskWindow}}.",
		lineWeatherClear:      "Weather: No immediate storm threats detected in the next 48 hours.",
		lineCropReady:         "Crop Health: NDVI index is {{.NDVI}}, indicating healthy vegetation ready for harvest.",
		lineCropNotReady:      "Crop Health: NDVI index is {{.NDVI}}, indicating crop needs more time.",
		lineCropNoData:        "Crop Health: Satellite data unavailable, assessment based on typical growth patterns.",
		lineSpoilageKnown:     "Spoilage Risk: {{.SpoilageRiskTitle}} - current conditions (temp: {{.Temperature}}°C, humidity: {{.Humidity}}%) may cause deterioration in {{.SpoilageDisplay}}.",
		lineSpoilageUnknown:   "Spoilage Risk: Unable to assess due to missing biological rules data.",
		lineMarketGain:        "Market Opportunity: {{.BestMarket}} is paying ₹{{.BestPrice}}/kg, which is ₹{{.PriceDifference}} more than your local market.",
		lineMarketLocalBest:   "Market Prices: Your local market offers the best price at ₹{{.BestPrice}}/kg.",
		lineMarketUnavailable: "Market Prices: Market data unavailable at this time.",
		lineFinal:             "Recommendation: Based on {{.FactorPhrase}}, we advise you to {{.ActionPhrase}}.",

		summaryStorm:          "Heavy rain forecast within 48 hours",
		summarySpoilage:       "Spoilage risk is {{.SpoilageRisk}}",
		summarySpoilageDetail: "Current conditions accelerate deterioration",
		summaryMarket:         "Market opportunity is {{.Opportunity}}",
		summaryNoThreats:      "No immediate threats detected",
		summaryReadyHarvest:   "Crop is ready for harvest",
		summaryReadySale:      "Crop is ready for sale",
		summaryNeedsTime:      "Crop needs more time to mature",
	},
	model.LocaleHindi: {
		lineWeatherAlert:      "मौसम चेतावनी: अगले 48 घंटों में भारी बारिश की संभावना।",
		lineWeatherClear:      "मौसम: अगले 48 घंटों में कोई तूफान का खतरा नहीं।",
		lineCropReady:         "फसल स्वास्थ्य: फसल कटाई के लिए तैयार है।",
		lineCropNotReady:      "फसल स्वास्थ्य: फसल को और समय चाहिए।",
		lineCropNoData:        "फसल स्वास्थ्य: उपग्रह डेटा उपलब्ध नहीं, सामान्य वृद्धि के आधार पर आकलन।",
		lineSpoilageKnown:     "खराब होने का जोखिम: {{.SpoilageRisk}} ({{.SpoilageDisplay}})।",
		lineSpoilageUnknown:   "खराब होने का जोखिम: जैविक नियम डेटा उपलब्ध नहीं।",
		lineMarketGain:        "बाजार अवसर: {{.BestMarket}} में ₹{{.BestPrice}}/किलो मिल रहा है।",
		lineMarketLocalBest:   "बाजार मूल्य: आपके स्थानीय बाजार में सबसे अच्छी कीमत है।",
		lineMarketUnavailable: "बाजार मूल्य: इस समय बाजार डेटा उपलब्ध नहीं है।",
		lineFinal:             "सिफारिश: {{.FactorPhrase}} के आधार पर, {{.ActionPhrase}}।",

		summaryStorm:          "48 घंटे के भीतर भारी बारिश का पूर्वानुमान",
		summarySpoilage:       "खराब होने का जोखिम {{.SpoilageRisk}} है",
		summarySpoilageDetail: "मौजूदा स्थितियाँ खराबी को तेज़ कर रही हैं",
		summaryMarket:         "बाजार में अच्छी कीमत मिल रही है",
		summaryNoThreats:      "कोई तात्कालिक खतरा नहीं",
		summaryReadyHarvest:   "फसल कटाई के लिए तैयार है",
		summaryReadySale:      "फसल बिक्री के लिए तैयार है",
		summaryNeedsTime:      "फसल को पकने के लिए और समय चाहिए",
	},
}

// summaryLines 摘要结构：固定语句 + 按成熟度追加的语句
type summaryLines struct {
	always     []lineKey
	ifReady    []lineKey
	ifNotReady []lineKey
}

var summaryPlan = map[model.PrimaryFactor]summaryLines{
	model.FactorStormRisk:         {always: []lineKey{summaryStorm}, ifReady: []lineKey{summaryReadyHarvest}},
	model.FactorSpoilageRisk:      {always: []lineKey{summarySpoilage, summarySpoilageDetail}},
	model.FactorMarketOpportunity: {always: []lineKey{summaryMarket}, ifReady: []lineKey{summaryReadySale}},
	model.FactorOptimalTiming:     {always: []lineKey{summaryNoThreats}, ifNotReady: []lineKey{summaryNeedsTime}},
}

var factorPhrases = map[model.Locale]map[model.PrimaryFactor]string{
	model.LocaleEnglish: {
		model.FactorStormRisk:         "imminent weather threat",
		model.FactorSpoilageRisk:      "high spoilage risk under current conditions",
		model.FactorMarketOpportunity: "favorable market prices",
		model.FactorOptimalTiming:     "no immediate threats or opportunities",
	},
	model.LocaleHindi: {
		model.FactorStormRisk:         "मौसम के तात्कालिक खतरे",
		model.FactorSpoilageRisk:      "मौजूदा स्थितियों में खराब होने के उच्च जोखिम",
		model.FactorMarketOpportunity: "अनुकूल बाजार कीमतों",
		model.FactorOptimalTiming:     "किसी तात्कालिक खतरे या अवसर के अभाव",
	},
}

var actionPhrases = map[model.Locale]map[model.Action]string{
	model.LocaleEnglish: {
		model.ActionHarvestNow: "harvest immediately",
		model.ActionSellNow:    "sell at the recommended market",
		model.ActionWait:       "wait and monitor conditions",
	},
	model.LocaleHindi: {
		model.ActionHarvestNow: "तुरंत फसल काटें",
		model.ActionSellNow:    "अनुशंसित बाजार में बेचें",
		model.ActionWait:       "प्रतीक्षा करें और स्थितियों की निगरानी करें",
	},
}

var cropNames = map[model.Locale]map[string]string{
	model.LocaleHindi: {
		"tomato": "टमाटर",
		"onion":  "प्याज",
	},
}

var severityNames = map[model.Locale]map[model.Severity]string{
	model.LocaleHindi: {
		model.SeverityCritical: "गंभीर",
		model.SeverityHigh:     "उच्च",
		model.SeverityMedium:   "मध्यम",
		model.SeverityLow:      "कम",
		model.SeverityUnknown:  "अज्ञात",
	},
}

// 各语言的兜底词
var placeholders = map[model.Locale]struct{ soon, market string }{
	model.LocaleEnglish: {soon: "soon", market: "nearby market"},
	model.LocaleHindi:   {soon: "जल्द", market: "बाजार"},
}

// 模板在包加载时编译，任何语法错误都会直接 panic
var (
	messageTemplates = compileMessages(messageTexts)
	lineTemplates    = compileLines(lineTexts)
)

func compileMessages(texts map[messageKey]string) map[messageKey]*template.Template {
	out := make(map[messageKey]*template.Template, len(texts))
	for k, text := range texts {
		name := string(k.Locale) + "/" + string(k.Action) + "/" + string(k.Factor)
		out[k] = template.Must(template.New(name).Parse(text))
	}
	return out
}

func compileLines(texts map[model.Locale]map[lineKey]string) map[model.Locale]map[lineKey]*template.Template {
	out := make(map[model.Locale]map[lineKey]*template.Template, len(texts))
	for locale, lines := range texts {
		compiled := make(map[lineKey]*template.Template, len(lines))
		for k, text := range lines {
			compiled[k] = template.Must(template.New(string(locale) + "/" + string(k)).Parse(text))
		}
		out[locale] = compiled
	}
	return out
}

// textData 模板变量，均为已格式化的字符串
type textData struct {
	Crop              string
	RiskWindow        string
	Impact            string
	NDVI              string
	SpoilageRisk      string
	SpoilageRiskTitle string
	SpoilageDisplay   string
	Temperature       string
	Humidity          string
	Opportunity       string
	BestMarket        string
	BestPrice         string
	PriceDifference   string
	FactorPhrase      string
	ActionPhrase      string
}

func execute(t *template.Template, data *textData) string {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return ""
	}
	return b.String()
}

// renderMessage 精确键 → 动作兜底 → 英文
func renderMessage(action model.Action, factor model.PrimaryFactor, locale model.Locale, data *textData) string {
	for _, k := range []messageKey{
		{action, factor, locale},
		{action, "", locale},
		{action, factor, model.LocaleEnglish},
		{action, "", model.LocaleEnglish},
		{model.ActionWait, "", model.LocaleEnglish},
	} {
		if t, ok := messageTemplates[k]; ok {
			return execute(t, data)
		}
	}
	return ""
}

func renderLine(locale model.Locale, key lineKey, data *textData) string {
	if t, ok := lineTemplates[locale][key]; ok {
		return execute(t, data)
	}
	if t, ok := lineTemplates[model.LocaleEnglish][key]; ok {
		return execute(t, data)
	}
	return ""
}

func localizedCrop(locale model.Locale, crop string) string {
	if name, ok := cropNames[locale][crop]; ok {
		return name
	}
	return crop
}

func localizedSeverity(locale model.Locale, s model.Severity) string {
	if name, ok := severityNames[locale][s]; ok {
		return name
	}
	return string(s)
}
