package storm

import (
	"context"
	"errors"
	"sort"
	"time"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/logger"
)

// 风暴判定阈值
const (
	stormProbability = 0.6
	stormAmountMM    = 10.0
	severeAmountMM   = 50.0
	severeWindSpeed  = 40.0
	moderateAmountMM = 25.0
	windowDays       = 2
)

// 影响描述
const (
	ImpactSevere   = "Heavy rain and strong winds expected. Harvest immediately to prevent crop damage."
	ImpactModerate = "Moderate rain expected. Consider harvesting soon to avoid quality loss."
	ImpactLight    = "Light to moderate rain expected. Monitor conditions closely."
)

// defaultReading 无预报时的当前环境
var defaultReading = model.EnvironmentalReading{Temperature: 25, Humidity: 70}

// WeatherProvider 天气预报数据源
type WeatherProvider interface {
	Name() string
	Forecast(ctx context.Context, latitude, longitude float64) ([]model.WeatherDay, error)
}

// Assess 48 小时风暴风险：按日期顺序检查前两天，第一个触发的日期胜出
func Assess(days []model.WeatherDay) model.StormRiskAssessment {
	ordered := chronological(days)
	if len(ordered) > windowDays {
		ordered = ordered[:windowDays]
	}

	for i, day := range ordered {
		if day.PrecipProbability > stormProbability && day.PrecipAmount > stormAmountMM {
			window := model.RiskWindowNext24Hours
			if i > 0 {
				window = model.RiskWindow24To48Hours
			}
			return model.StormRiskAssessment{
				HasStormRisk: true,
				RiskWindow:   window,
				Impact:       impactFor(day),
			}
		}
	}
	return model.StormRiskAssessment{}
}

func impactFor(day model.WeatherDay) string {
	switch {
	case day.PrecipAmount > severeAmountMM || day.WindSpeed > severeWindSpeed:
		return ImpactSevere
	case day.PrecipAmount > moderateAmountMM:
		return ImpactModerate
	default:
		return ImpactLight
	}
}

// chronological 按日期升序的副本（YYYY-MM-DD 可直接按字符串比较）
func chronological(days []model.WeatherDay) []model.WeatherDay {
	out := append([]model.WeatherDay(nil), days...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out
}

// CurrentConditions 首日平均气温与湿度
func CurrentConditions(days []model.WeatherDay) model.EnvironmentalReading {
	ordered := chronological(days)
	if len(ordered) == 0 {
		return defaultReading
	}
	first := ordered[0]
	return model.EnvironmentalReading{
		Temperature: (first.TempMax + first.TempMin) / 2,
		Humidity:    first.Humidity,
	}
}

// Assessor 天气分支：拉取预报，失败时退回气候均值
type Assessor struct {
	provider WeatherProvider
	log      logger.Logger
	now      func() time.Time
}

// NewAssessor 创建风暴评估器，provider 为 nil 时始终使用气候均值
func NewAssessor(provider WeatherProvider, log logger.Logger) *Assessor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Assessor{provider: provider, log: log, now: time.Now}
}

// Report 生成天气报告；只在 ctx 取消时返回错误，超时按不可达处理
func (a *Assessor) Report(ctx context.Context, latitude, longitude float64) (*model.WeatherReport, error) {
	if a.provider != nil {
		days, err := a.provider.Forecast(ctx, latitude, longitude)
		if err == nil && len(days) > 0 {
			return a.build(days, a.provider.Name(), false), nil
		}
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		if err == nil {
			err = errors.New("empty forecast")
		}
		a.log.Warnf(ctx, "weather provider %s failed, using historical averages: %v", a.provider.Name(), err)
	}

	report := a.build(Climatology(a.now()), ClimatologySource, true)
	report.Warning = "Using historical weather averages due to API unavailability"
	return report, nil
}

func (a *Assessor) build(days []model.WeatherDay, source string, fallback bool) *model.WeatherReport {
	days = chronological(days)
	return &model.WeatherReport{
		Forecast:     days,
		Risk:         Assess(days),
		Current:      CurrentConditions(days),
		Source:       source,
		FallbackUsed: fallback,
		LastUpdated:  a.now().UTC(),
	}
}
