package synthesis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"agrichain/advisor/common/model"
)

var errDown = errors.New("down")

func geoStates() map[string]GeoSignal {
	return map[string]GeoSignal{
		"error":    {Err: errDown},
		"uncached": {},
		"stale":    {NDVI: float(0.7), Cached: true, CacheAgeDays: 4},
		"fresh":    {NDVI: float(0.7), Cached: true, CacheAgeDays: 3},
	}
}

func weatherStates() map[string]WeatherSignal {
	return map[string]WeatherSignal{
		"error":    {Err: errDown},
		"missing":  {},
		"fallback": {Report: &model.WeatherReport{FallbackUsed: true}},
		"live":     {Report: &model.WeatherReport{}},
	}
}

func rulesStates() map[string]RulesSignal {
	return map[string]RulesSignal{
		"error":   {Err: errDown},
		"none":    {Assessment: &model.SpoilageAssessment{}},
		"matched": {Assessment: &model.SpoilageAssessment{MatchedRules: []model.SpoilageRule{{ID: "r"}}}},
	}
}

func marketStates() map[string]MarketSignal {
	best := &model.Market{Name: "Nagpur Mandi", PricePerKg: 25}
	return map[string]MarketSignal{
		"error":    {Err: errDown, Recommendation: &model.MarketRecommendation{}},
		"fallback": {Recommendation: &model.MarketRecommendation{FallbackUsed: true, BestMarket: best}},
		"empty":    {Recommendation: &model.MarketRecommendation{}},
		"ok":       {Recommendation: &model.MarketRecommendation{BestMarket: best}},
	}
}

func TestConfidenceBoundedForAllCombinations(t *testing.T) {
	for gn, g := range geoStates() {
		for wn, w := range weatherStates() {
			for rn, r := range rulesStates() {
				for mn, m := range marketStates() {
					name := fmt.Sprintf("geo=%s weather=%s rules=%s market=%s", gn, wn, rn, mn)
					conf, factors := Confidence(Inputs{Geo: g, Weather: w, Rules: r, Market: m}, DefaultStaleCacheDays)

					assert.GreaterOrEqual(t, conf, 0.0, name)
					assert.LessOrEqual(t, conf, 100.0, name)
					assert.LessOrEqual(t, len(factors), 4, name)
					assert.Contains(t, []model.DataQuality{model.QualityExcellent, model.QualityGood, model.QualityFair, model.QualityPoor}, QualityFor(conf), name)
				}
			}
		}
	}
}

func TestConfidenceValues(t *testing.T) {
	tests := []struct {
		name        string
		in          Inputs
		want        float64
		wantFactors []string
		wantQuality model.DataQuality
	}{
		{
			name:        "all healthy",
			in:          Inputs{Geo: geoStates()["fresh"], Weather: weatherStates()["live"], Rules: rulesStates()["matched"], Market: marketStates()["ok"]},
			want:        100,
			wantFactors: []string{},
			wantQuality: model.QualityExcellent,
		},
		{
			name:        "all errors",
			in:          Inputs{Geo: geoStates()["error"], Weather: weatherStates()["error"], Rules: rulesStates()["error"], Market: marketStates()["error"]},
			want:        30,
			wantFactors: []string{FactorSatelliteError, FactorWeatherError, FactorRulesError, FactorMarketError},
			wantQuality: model.QualityPoor,
		},
		{
			name:        "typical degraded",
			in:          Inputs{Geo: geoStates()["uncached"], Weather: weatherStates()["fallback"], Rules: rulesStates()["matched"], Market: marketStates()["fallback"]},
			want:        65,
			wantFactors: []string{FactorNoSatelliteCache, FactorWeatherFallback, FactorMarketFallback},
			wantQuality: model.QualityFair,
		},
		{
			name:        "stale cache and no data",
			in:          Inputs{Geo: geoStates()["stale"], Weather: weatherStates()["live"], Rules: rulesStates()["none"], Market: marketStates()["empty"]},
			want:        70,
			wantFactors: []string{FactorOldSatelliteData, FactorNoMatchingRules, FactorNoMarketData},
			wantQuality: model.QualityFair,
		},
		{
			name:        "stale only",
			in:          Inputs{Geo: geoStates()["stale"], Weather: weatherStates()["live"], Rules: rulesStates()["matched"], Market: marketStates()["ok"]},
			want:        90,
			wantFactors: []string{FactorOldSatelliteData},
			wantQuality: model.QualityExcellent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, factors := Confidence(tt.in, DefaultStaleCacheDays)
			assert.Equal(t, tt.want, conf)
			assert.Equal(t, tt.wantFactors, factors)
			assert.Equal(t, tt.wantQuality, QualityFor(conf))
		})
	}
}

func TestQualityFor(t *testing.T) {
	tests := []struct {
		conf float64
		want model.DataQuality
	}{
		{100, model.QualityExcellent},
		{90, model.QualityExcellent},
		{89.9, model.QualityGood},
		{75, model.QualityGood},
		{74.9, model.QualityFair},
		{50, model.QualityFair},
		{49.9, model.QualityPoor},
		{0, model.QualityPoor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualityFor(tt.conf), "confidence=%v", tt.conf)
	}
}
