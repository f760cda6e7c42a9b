package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

const summarySeparator = " • "

// Synthesizer 推荐合成器：纯计算，无 I/O，可并发调用
type Synthesizer struct {
	staleCacheDays int
	log            logger.Logger
	now            func() time.Time
}

// NewSynthesizer 创建合成器
func NewSynthesizer(staleCacheDays int, log logger.Logger) *Synthesizer {
	if staleCacheDays <= 0 {
		staleCacheDays = DefaultStaleCacheDays
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Synthesizer{staleCacheDays: staleCacheDays, log: log, now: time.Now}
}

// Synthesize 合成最终推荐；任何信号缺失或出错都按默认值继续，由置信度体现降级
func (s *Synthesizer) Synthesize(ctx context.Context, in Inputs) *model.Recommendation {
	crop := strings.ToLower(strings.TrimSpace(in.Crop))
	locale := in.Locale
	if _, ok := lineTemplates[locale]; !ok {
		locale = model.LocaleEnglish
	}

	signals := s.extractSignals(ctx, in)
	decision := Decide(signals)
	confidence, factors := Confidence(in, s.staleCacheDays)
	quality := QualityFor(confidence)

	data := s.buildTextData(in, crop, locale, signals, decision)
	rec := &model.Recommendation{
		Action:         decision.Action,
		Urgency:        decision.Urgency,
		PrimaryFactor:  decision.Factor,
		PrimaryMessage: renderMessage(decision.Action, decision.Factor, locale, data),
		Reasoning:      summary(decision.Factor, signals.CropReady, locale, data),
		Confidence:     confidence,
		DataQuality:    quality,
		QualityFactors: factors,
		ReasoningChain: reasoningChain(in, signals, locale, data),
		CropReady:      signals.CropReady,
		Indicators: model.Indicators{
			NDVI:              s.ndvi(in),
			StormRisk:         signals.StormRisk,
			SpoilageRisk:      signals.SpoilageRisk,
			MarketOpportunity: signals.MarketOpportunity,
			PriceDifference:   signals.PriceDifference,
		},
		Locale:    locale,
		Timestamp: s.now().UTC(),
	}

	s.log.Infof(ctx, "recommendation for %s: action=%s urgency=%s factor=%s confidence=%.1f quality=%s factors=%v",
		crop, rec.Action, rec.Urgency, rec.PrimaryFactor, confidence, quality, factors)

	return rec
}

func (s *Synthesizer) ndvi(in Inputs) *float64 {
	if in.Geo.Err != nil {
		return nil
	}
	return in.Geo.NDVI
}

// extractSignals 提取级联指标，越界枚举按计算错误处理并归一化
func (s *Synthesizer) extractSignals(ctx context.Context, in Inputs) Signals {
	signals := Signals{
		CropReady:         CropReady(s.ndvi(in)),
		SpoilageRisk:      model.SeverityUnknown,
		MarketOpportunity: model.OpportunityLow,
	}

	if r := in.Weather.Report; in.Weather.Err == nil && r != nil {
		signals.StormRisk = r.Risk.HasStormRisk
	}

	if a := in.Rules.Assessment; in.Rules.Err == nil && a != nil {
		level := a.Timeline.RiskLevel
		if level != model.SeverityUnknown && !level.Known() {
			s.log.Warnf(ctx, "normalizing spoilage risk: %v",
				errorutil.Computation(fmt.Sprintf("unmapped severity %q", level)))
			level = model.SeverityUnknown
		}
		signals.SpoilageRisk = level
	}

	if m := in.Market.Recommendation; in.Market.Err == nil && m != nil {
		opp := m.Opportunity
		if !opp.Valid() {
			s.log.Warnf(ctx, "normalizing market opportunity: %v",
				errorutil.Computation(fmt.Sprintf("unmapped opportunity %q", opp)))
			opp = model.OpportunityLow
		}
		signals.MarketOpportunity = opp
		signals.PriceDifference = m.PriceDifference
	}

	return signals
}

func (s *Synthesizer) buildTextData(in Inputs, crop string, locale model.Locale, signals Signals, d Decision) *textData {
	ph := placeholders[locale]
	data := &textData{
		Crop:            localizedCrop(locale, crop),
		RiskWindow:      ph.soon,
		SpoilageDisplay: ph.soon,
		BestMarket:      ph.market,
		SpoilageRisk:    localizedSeverity(locale, signals.SpoilageRisk),
		Opportunity:     string(signals.MarketOpportunity),
		PriceDifference: fmt.Sprintf("%.2f", signals.PriceDifference),
		FactorPhrase:    factorPhrases[locale][d.Factor],
		ActionPhrase:    actionPhrases[locale][d.Action],
	}
	data.SpoilageRiskTitle = titleCase(data.SpoilageRisk)

	if ndvi := s.ndvi(in); ndvi != nil {
		data.NDVI = fmt.Sprintf("%.2f", *ndvi)
	}

	if r := in.Weather.Report; in.Weather.Err == nil && r != nil && r.Risk.HasStormRisk {
		if r.Risk.RiskWindow != "" {
			data.RiskWindow = r.Risk.RiskWindow
		}
		data.Impact = r.Risk.Impact
		if data.Impact == "" {
			data.Impact = "Heavy rainfall expected"
		}
	}

	if a := in.Rules.Assessment; in.Rules.Err == nil && a != nil {
		if a.Timeline.Hours != nil {
			data.SpoilageDisplay = localizedDuration(locale, *a.Timeline.Hours)
		}
		data.Temperature = fmt.Sprintf("%.1f", a.Reading.Temperature)
		data.Humidity = fmt.Sprintf("%.0f", a.Reading.Humidity)
	}

	if m := in.Market.Recommendation; in.Market.Err == nil && m != nil && m.BestMarket != nil {
		data.BestMarket = m.BestMarket.Name
		data.BestPrice = fmt.Sprintf("%.2f", m.BestMarket.PricePerKg)
	}

	return data
}

// summary 横幅摘要，按 (primary_factor, locale) 取语句后用 " • " 连接
func summary(factor model.PrimaryFactor, cropReady bool, locale model.Locale, data *textData) string {
	plan := summaryPlan[factor]
	keys := append([]lineKey(nil), plan.always...)
	if cropReady {
		keys = append(keys, plan.ifReady...)
	} else {
		keys = append(keys, plan.ifNotReady...)
	}

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if line := renderLine(locale, k, data); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, summarySeparator)
}

// reasoningChain 天气、作物、腐败、市场、结论五行
func reasoningChain(in Inputs, signals Signals, locale model.Locale, data *textData) []string {
	chain := make([]string, 0, 5)

	if signals.StormRisk {
		chain = append(chain, renderLine(locale, lineWeatherAlert, data))
	} else {
		chain = append(chain, renderLine(locale, lineWeatherClear, data))
	}

	switch {
	case data.NDVI == "":
		chain = append(chain, renderLine(locale, lineCropNoData, data))
	case signals.CropReady:
		chain = append(chain, renderLine(locale, lineCropReady, data))
	default:
		chain = append(chain, renderLine(locale, lineCropNotReady, data))
	}

	if signals.SpoilageRisk != model.SeverityUnknown {
		chain = append(chain, renderLine(locale, lineSpoilageKnown, data))
	} else {
		chain = append(chain, renderLine(locale, lineSpoilageUnknown, data))
	}

	m := in.Market.Recommendation
	switch {
	case in.Market.Err != nil || m == nil || m.BestMarket == nil:
		chain = append(chain, renderLine(locale, lineMarketUnavailable, data))
	case m.PriceDifference > 0:
		chain = append(chain, renderLine(locale, lineMarketGain, data))
	default:
		chain = append(chain, renderLine(locale, lineMarketLocalBest, data))
	}

	return append(chain, renderLine(locale, lineFinal, data))
}

func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
