package spoilage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

// DefaultRuleLimit 单次匹配返回的最大规则数
const DefaultRuleLimit = 5

// RuleStore 规则库
// 返回的规则应已按等级、腐败时长排序；外部不可达时返回错误
type RuleStore interface {
	Match(ctx context.Context, crop string, temperature, humidity float64, limit int) ([]model.SpoilageRule, error)
}

// Matcher 腐败规则匹配器
type Matcher struct {
	store RuleStore
	limit int
	log   logger.Logger
	now   func() time.Time
}

// NewMatcher 创建规则匹配器，store 为 nil 时始终使用内置保守规则
func NewMatcher(store RuleStore, limit int, log logger.Logger) *Matcher {
	if limit <= 0 {
		limit = DefaultRuleLimit
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Matcher{
		store: store,
		limit: limit,
		log:   log,
		now:   time.Now,
	}
}

// Match 查询读数落在温湿度闭区间内的规则
// 规则库不可达时返回内置保守规则，同时返回 DataSourceUnavailable 错误
func (m *Matcher) Match(ctx context.Context, crop string, temperature, humidity float64) ([]model.SpoilageRule, error) {
	crop = normalizeCrop(crop)

	if m.store == nil {
		return DefaultRules(crop), errorutil.Unavailable("rule_store", errors.New("rule store not configured"))
	}

	candidates, err := m.store.Match(ctx, crop, temperature, humidity, m.limit)
	if err != nil {
		// 分支超时视同规则库不可达，只有取消才向上传递
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		m.log.Warnf(ctx, "rule store unavailable, using default rules for %s: %v", crop, err)
		return DefaultRules(crop), errorutil.Unavailable("rule_store", err)
	}

	return m.filter(ctx, candidates, temperature, humidity), nil
}

// filter 剔除区间倒置与不包含读数的规则，再排序截断
func (m *Matcher) filter(ctx context.Context, candidates []model.SpoilageRule, temperature, humidity float64) []model.SpoilageRule {
	rules := make([]model.SpoilageRule, 0, len(candidates))
	for _, r := range candidates {
		if !r.TempRange.Valid() || !r.HumidityRange.Valid() {
			cerr := errorutil.Computation(fmt.Sprintf("rule %s has inverted range", r.ID))
			m.log.Warnf(ctx, "dropping rule: %v", cerr)
			continue
		}
		if !r.TempRange.Contains(temperature) || !r.HumidityRange.Contains(humidity) {
			continue
		}
		if !r.Severity.Known() {
			cerr := errorutil.Computation(fmt.Sprintf("rule %s has unmapped severity %q", r.ID, r.Severity))
			m.log.Warnf(ctx, "ranking rule last: %v", cerr)
		}
		rules = append(rules, r)
	}

	SortRules(rules)
	if len(rules) > m.limit {
		rules = rules[:m.limit]
	}
	return rules
}

// SortRules 按等级升序（critical 最前），同级按腐败时长升序，稳定排序
func SortRules(rules []model.SpoilageRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		ri, rj := rules[i].Severity.Rank(), rules[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return rules[i].SpoilageTimeHours < rules[j].SpoilageTimeHours
	})
}

// Assess 生成腐败评估；规则库不可达时降级并标记 FallbackUsed
// 仅在 ctx 取消时返回错误
func (m *Matcher) Assess(ctx context.Context, crop string, reading model.EnvironmentalReading) (*model.SpoilageAssessment, error) {
	crop = normalizeCrop(crop)

	rules, err := m.Match(ctx, crop, reading.Temperature, reading.Humidity)
	assessment := &model.SpoilageAssessment{
		Crop:      crop,
		Reading:   reading,
		Timestamp: m.now().UTC(),
	}
	if err != nil {
		if !errors.Is(err, errorutil.ErrDataSourceUnavailable) {
			return nil, err
		}
		assessment.FallbackUsed = true
		assessment.Warning = "Rule database unavailable - using conservative default rules"
	}

	if rules == nil {
		rules = []model.SpoilageRule{}
	}
	assessment.MatchedRules = rules
	assessment.Timeline = Timeline(rules)
	assessment.RiskFactors = RiskFactors(rules)
	assessment.Citations = Citations(rules)

	m.log.Debugf(ctx, "spoilage assessment: crop=%s rules=%d risk=%s fallback=%t",
		crop, len(rules), assessment.Timeline.RiskLevel, assessment.FallbackUsed)

	return assessment, nil
}

func normalizeCrop(crop string) string {
	return strings.ToLower(strings.TrimSpace(crop))
}
