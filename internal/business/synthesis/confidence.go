package synthesis

import "agrichain/advisor/common/model"

// DefaultStaleCacheDays 卫星缓存超过该天数视为陈旧
const DefaultStaleCacheDays = 3

// 扣分项
const (
	FactorSatelliteError   = "satellite_error"
	FactorNoSatelliteCache = "no_satellite_cache"
	FactorOldSatelliteData = "old_satellite_data"
	FactorWeatherError     = "weather_error"
	FactorWeatherFallback  = "weather_fallback"
	FactorRulesError       = "biological_rules_error"
	FactorNoMatchingRules  = "no_matching_rules"
	FactorMarketError      = "market_error"
	FactorMarketFallback   = "market_fallback"
	FactorNoMarketData     = "no_market_data"
)

// Confidence 从 100 起扣分，每类最多扣一项，结果截断到 [0, 100]
func Confidence(in Inputs, staleCacheDays int) (float64, []string) {
	confidence := 100.0
	factors := make([]string, 0, 4)
	deduct := func(points float64, factor string) {
		confidence -= points
		factors = append(factors, factor)
	}

	switch {
	case in.Geo.Err != nil:
		deduct(25, FactorSatelliteError)
	case !in.Geo.Cached:
		deduct(15, FactorNoSatelliteCache)
	case in.Geo.CacheAgeDays > staleCacheDays:
		deduct(10, FactorOldSatelliteData)
	}

	switch {
	case in.Weather.Err != nil || in.Weather.Report == nil:
		deduct(20, FactorWeatherError)
	case in.Weather.Report.FallbackUsed:
		deduct(15, FactorWeatherFallback)
	}

	switch {
	case in.Rules.Err != nil || in.Rules.Assessment == nil:
		deduct(15, FactorRulesError)
	case len(in.Rules.Assessment.MatchedRules) == 0:
		deduct(10, FactorNoMatchingRules)
	}

	switch {
	case in.Market.Err != nil || in.Market.Recommendation == nil:
		deduct(10, FactorMarketError)
	case in.Market.Recommendation.FallbackUsed:
		deduct(5, FactorMarketFallback)
	case in.Market.Recommendation.BestMarket == nil:
		deduct(10, FactorNoMarketData)
	}

	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence, factors
}

// QualityFor ≥90 excellent，≥75 good，≥50 fair，其余 poor
func QualityFor(confidence float64) model.DataQuality {
	switch {
	case confidence >= 90:
		return model.QualityExcellent
	case confidence >= 75:
		return model.QualityGood
	case confidence >= 50:
		return model.QualityFair
	default:
		return model.QualityPoor
	}
}
