package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"agrichain/advisor/common/model"
)

//go:embed rules.yaml
var rulesYAML []byte

//go:embed markets.yaml
var marketsYAML []byte

// Rules 解析内置规则种子，key 为小写作物名
func Rules() (map[string][]model.SpoilageRule, error) {
	var rules map[string][]model.SpoilageRule
	if err := yaml.Unmarshal(rulesYAML, &rules); err != nil {
		return nil, fmt.Errorf("parse rules catalog: %w", err)
	}
	return rules, nil
}

// MarketListing 目录中的单个市场
type MarketListing struct {
	Name     string             `yaml:"name"`
	Location model.Location     `yaml:"location"`
	Prices   map[string]float64 `yaml:"prices"`
}

// Markets 解析内置行情目录，key 为数据源名称
func Markets() (map[string][]MarketListing, error) {
	var markets map[string][]MarketListing
	if err := yaml.Unmarshal(marketsYAML, &markets); err != nil {
		return nil, fmt.Errorf("parse markets catalog: %w", err)
	}
	return markets, nil
}

// StaticProvider 基于目录的行情数据源
type StaticProvider struct {
	name     string
	listings []MarketListing
	now      func() time.Time
}

// NewStaticProvider 按数据源名称创建
func NewStaticProvider(source string) (*StaticProvider, error) {
	markets, err := Markets()
	if err != nil {
		return nil, err
	}
	listings, ok := markets[source]
	if !ok {
		return nil, fmt.Errorf("unknown market source %q", source)
	}
	return &StaticProvider{name: source, listings: listings, now: time.Now}, nil
}

// Name 数据源名称
func (p *StaticProvider) Name() string {
	return p.name
}

// Fetch 返回报价作物的市场列表，未收录的作物返回空列表
func (p *StaticProvider) Fetch(ctx context.Context, crop string) ([]model.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crop = strings.ToLower(strings.TrimSpace(crop))
	updated := p.now().UTC()

	markets := make([]model.Market, 0, len(p.listings))
	for _, l := range p.listings {
		price, ok := l.Prices[crop]
		if !ok || price <= 0 {
			continue
		}
		markets = append(markets, model.Market{
			Name:        l.Name,
			Location:    l.Location,
			PricePerKg:  price,
			LastUpdated: updated,
			Source:      p.name,
		})
	}
	return markets, nil
}

// Crops 目录中有规则的作物，已排序
func Crops() ([]string, error) {
	rules, err := Rules()
	if err != nil {
		return nil, err
	}
	crops := make([]string, 0, len(rules))
	for c := range rules {
		crops = append(crops, c)
	}
	sort.Strings(crops)
	return crops, nil
}
