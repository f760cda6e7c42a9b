package spoilage

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/catalog"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

// memStore 内存规则库：返回全部候选，由 Matcher 负责过滤排序
type memStore struct {
	rules map[string][]model.SpoilageRule
	err   error
	calls int
}

func (s *memStore) Match(ctx context.Context, crop string, temperature, humidity float64, limit int) ([]model.SpoilageRule, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.SpoilageRule(nil), s.rules[crop]...), nil
}

func catalogStore(t *testing.T) *memStore {
	t.Helper()
	rules, err := catalog.Rules()
	require.NoError(t, err)
	return &memStore{rules: rules}
}

func rule(id string, sev model.Severity, hours int) model.SpoilageRule {
	return model.SpoilageRule{
		ID:                id,
		Condition:         "condition " + id,
		TempRange:         model.Range{Min: 0, Max: 50},
		HumidityRange:     model.Range{Min: 0, Max: 100},
		SpoilageTimeHours: hours,
		Severity:          sev,
		Source:            model.RuleSource{Name: "src", Type: "ICAR", Reference: id, Credibility: 0.9},
	}
}

func TestMatchTomatoHotHumid(t *testing.T) {
	m := NewMatcher(catalogStore(t), DefaultRuleLimit, logger.NewNop())

	rules, err := m.Match(context.Background(), "Tomato", 32, 90)
	require.NoError(t, err)
	require.NotEmpty(t, rules)

	primary := rules[0]
	assert.Contains(t, []model.Severity{model.SeverityCritical, model.SeverityHigh}, primary.Severity)
	assert.LessOrEqual(t, primary.SpoilageTimeHours, 96)
	for _, r := range rules {
		assert.True(t, r.TempRange.Contains(32))
		assert.True(t, r.HumidityRange.Contains(90))
	}
}

func TestMatchStoreUnavailable(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	m := NewMatcher(store, DefaultRuleLimit, logger.NewNop())

	tests := []struct {
		crop     string
		wantID   string
		wantSev  model.Severity
		wantHour int
	}{
		{crop: "tomato", wantID: "default_tomato", wantSev: model.SeverityHigh, wantHour: 72},
		{crop: "onion", wantID: "default_onion", wantSev: model.SeverityMedium, wantHour: 168},
	}
	for _, tt := range tests {
		t.Run(tt.crop, func(t *testing.T) {
			rules, err := m.Match(context.Background(), tt.crop, 32, 90)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errorutil.ErrDataSourceUnavailable))
			require.Len(t, rules, 1)
			assert.Equal(t, tt.wantID, rules[0].ID)
			assert.Equal(t, tt.wantSev, rules[0].Severity)
			assert.Equal(t, tt.wantHour, rules[0].SpoilageTimeHours)
			assert.Equal(t, "FALLBACK", rules[0].Source.Type)
		})
	}

	rules, err := m.Match(context.Background(), "wheat", 32, 90)
	assert.Error(t, err)
	assert.Empty(t, rules)
}

func TestMatchContextCanceledPassesThrough(t *testing.T) {
	store := &memStore{err: context.Canceled}
	m := NewMatcher(store, DefaultRuleLimit, logger.NewNop())

	rules, err := m.Match(context.Background(), "tomato", 20, 60)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, errorutil.ErrDataSourceUnavailable))
	assert.Nil(t, rules)
}

func TestMatchDeadlineUsesDefaults(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	store := &memStore{err: ctx.Err()}
	m := NewMatcher(store, DefaultRuleLimit, logger.NewNop())

	rules, err := m.Match(ctx, "tomato", 20, 60)
	assert.ErrorIs(t, err, errorutil.ErrDataSourceUnavailable)
	require.Len(t, rules, 1)
	assert.Equal(t, "default_tomato", rules[0].ID)
	assert.Equal(t, model.SeverityHigh, rules[0].Severity)
	assert.Equal(t, 72, rules[0].SpoilageTimeHours)

	a, err := m.Assess(ctx, "tomato", model.EnvironmentalReading{Temperature: 20, Humidity: 60})
	require.NoError(t, err)
	assert.True(t, a.FallbackUsed)
	assert.Equal(t, model.SeverityHigh, a.Timeline.RiskLevel)
}

func TestMatchInclusiveBoundaries(t *testing.T) {
	r := rule("edge", model.SeverityHigh, 48)
	r.TempRange = model.Range{Min: 30, Max: 45}
	r.HumidityRange = model.Range{Min: 85, Max: 100}
	m := NewMatcher(&memStore{rules: map[string][]model.SpoilageRule{"tomato": {r}}}, 5, logger.NewNop())

	for _, tc := range []struct {
		temp, hum float64
		want      int
	}{
		{30, 85, 1},
		{45, 100, 1},
		{29.99, 90, 0},
		{35, 84.9, 0},
	} {
		rules, err := m.Match(context.Background(), "tomato", tc.temp, tc.hum)
		require.NoError(t, err)
		assert.Len(t, rules, tc.want, "temp=%v hum=%v", tc.temp, tc.hum)
	}
}

func TestMatchDropsInvertedRanges(t *testing.T) {
	bad := rule("inverted", model.SeverityCritical, 12)
	bad.TempRange = model.Range{Min: 40, Max: 10}
	good := rule("good", model.SeverityLow, 300)
	m := NewMatcher(&memStore{rules: map[string][]model.SpoilageRule{"onion": {bad, good}}}, 5, logger.NewNop())

	rules, err := m.Match(context.Background(), "onion", 25, 50)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "good", rules[0].ID)
}

func TestMatchUnknownSeverityTrails(t *testing.T) {
	odd := rule("odd", model.Severity("extreme"), 1)
	low := rule("low", model.SeverityLow, 500)
	m := NewMatcher(&memStore{rules: map[string][]model.SpoilageRule{"tomato": {odd, low}}}, 5, logger.NewNop())

	rules, err := m.Match(context.Background(), "tomato", 25, 50)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "low", rules[0].ID)
	assert.Equal(t, "odd", rules[1].ID)
}

func TestMatchOrderingProperty(t *testing.T) {
	severities := []model.Severity{
		model.SeverityCritical, model.SeverityHigh, model.SeverityMedium, model.SeverityLow, model.Severity("bogus"),
	}
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(12)
		candidates := make([]model.SpoilageRule, 0, n)
		for i := 0; i < n; i++ {
			candidates = append(candidates, rule(fmt.Sprintf("r%d", i), severities[rng.Intn(len(severities))], 1+rng.Intn(400)))
		}
		m := NewMatcher(&memStore{rules: map[string][]model.SpoilageRule{"tomato": candidates}}, 5, logger.NewNop())

		rules, err := m.Match(context.Background(), "tomato", 25, 50)
		require.NoError(t, err)
		require.LessOrEqual(t, len(rules), 5)

		for i := 1; i < len(rules); i++ {
			prev, cur := rules[i-1], rules[i]
			require.LessOrEqual(t, prev.Severity.Rank(), cur.Severity.Rank())
			if prev.Severity.Rank() == cur.Severity.Rank() {
				require.LessOrEqual(t, prev.SpoilageTimeHours, cur.SpoilageTimeHours)
			}
		}
	}
}

func TestAssessFallback(t *testing.T) {
	m := NewMatcher(&memStore{err: errors.New("neo4j down")}, 5, logger.NewNop())

	a, err := m.Assess(context.Background(), "onion", model.EnvironmentalReading{Temperature: 28, Humidity: 70})
	require.NoError(t, err)
	assert.True(t, a.FallbackUsed)
	assert.NotEmpty(t, a.Warning)
	require.Len(t, a.MatchedRules, 1)
	assert.Equal(t, "default_onion", a.MatchedRules[0].ID)
	assert.Equal(t, "1 week", a.Timeline.Display)
	assert.Equal(t, model.SeverityMedium, a.Timeline.RiskLevel)
	require.Len(t, a.Citations, 1)
	assert.Equal(t, "Conservative estimate", a.Citations[0].Reference)
}

func TestAssessNoMatches(t *testing.T) {
	m := NewMatcher(&memStore{rules: map[string][]model.SpoilageRule{}}, 5, logger.NewNop())

	a, err := m.Assess(context.Background(), "tomato", model.EnvironmentalReading{Temperature: 25, Humidity: 60})
	require.NoError(t, err)
	assert.False(t, a.FallbackUsed)
	assert.Empty(t, a.MatchedRules)
	assert.Nil(t, a.Timeline.Hours)
	assert.Equal(t, "Unknown", a.Timeline.Display)
	assert.Equal(t, model.SeverityUnknown, a.Timeline.RiskLevel)
	assert.Empty(t, a.RiskFactors)
	assert.Empty(t, a.Citations)
}

func TestNilStoreUsesDefaults(t *testing.T) {
	m := NewMatcher(nil, 0, nil)

	a, err := m.Assess(context.Background(), "tomato", model.EnvironmentalReading{Temperature: 25, Humidity: 60})
	require.NoError(t, err)
	assert.True(t, a.FallbackUsed)
	assert.Equal(t, "default_tomato", a.MatchedRules[0].ID)
	assert.Equal(t, "3 days", a.Timeline.Display)
}
