package market

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

// FallbackWarning 备用数据源的统一提示
const FallbackWarning = "Fallback data - may not reflect current prices"

// DefaultTransportCostPerKm 默认运输成本（₹/km）
const DefaultTransportCostPerKm = 2.0

// Provider 行情数据源
type Provider interface {
	Name() string
	Fetch(ctx context.Context, crop string) ([]model.Market, error)
}

// Options 选择策略
type Options struct {
	ConsiderDistance   bool
	TransportCostPerKm float64
}

// Selector 市场选择器：主数据源失败时切换备用数据源
type Selector struct {
	primary   Provider
	secondary Provider
	opts      Options
	log       logger.Logger
	now       func() time.Time
}

// NewSelector 创建市场选择器，secondary 可为 nil
func NewSelector(primary, secondary Provider, opts Options, log logger.Logger) *Selector {
	if log == nil {
		log = logger.NewNop()
	}
	return &Selector{
		primary:   primary,
		secondary: secondary,
		opts:      opts,
		log:       log,
		now:       time.Now,
	}
}

// marketData 一次拉取的结果
type marketData struct {
	markets      []model.Market
	source       string
	fallbackUsed bool
}

// fetch 主数据源优先，失败后切换备用并打标
func (s *Selector) fetch(ctx context.Context, crop string, farmer model.Location) (*marketData, error) {
	var primaryErr error
	if s.primary != nil {
		markets, err := s.primary.Fetch(ctx, crop)
		if err == nil {
			return &marketData{
				markets: withDistances(markets, farmer),
				source:  s.primary.Name(),
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		primaryErr = err
		s.log.Warnf(ctx, "primary market source %s failed, trying fallback: %v", s.primary.Name(), err)
	} else {
		primaryErr = errors.New("primary market source not configured")
	}

	if s.secondary == nil {
		return nil, errorutil.Unavailable("market_data", primaryErr)
	}

	markets, err := s.secondary.Fetch(ctx, crop)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errorutil.Unavailable("market_data", fmt.Errorf("primary: %v; secondary %s: %w", primaryErr, s.secondary.Name(), err))
	}

	markets = withDistances(markets, farmer)
	for i := range markets {
		markets[i].Source = s.secondary.Name()
		markets[i].Warning = FallbackWarning
	}
	return &marketData{
		markets:      markets,
		source:       s.secondary.Name(),
		fallbackUsed: true,
	}, nil
}

// withDistances 计算农户到每个市场的距离（保留两位小数）
func withDistances(markets []model.Market, farmer model.Location) []model.Market {
	out := make([]model.Market, 0, len(markets))
	for _, m := range markets {
		if m.PricePerKg <= 0 {
			continue
		}
		m.DistanceKm = round2(Distance(farmer, m.Location))
		out = append(out, m)
	}
	return out
}

// Recommend 生成市场推荐
// 两个数据源都不可达时返回空推荐与 DataSourceUnavailable 错误，调用方据此降级
func (s *Selector) Recommend(ctx context.Context, crop string, farmer model.Location) (*model.MarketRecommendation, error) {
	crop = strings.ToLower(strings.TrimSpace(crop))
	rec := &model.MarketRecommendation{
		Crop:        crop,
		AllMarkets:  []model.Market{},
		Opportunity: model.OpportunityLow,
		Timestamp:   s.now().UTC(),
	}

	data, err := s.fetch(ctx, crop, farmer)
	if err != nil {
		rec.Reasoning = "Error fetching market data: " + err.Error()
		return rec, err
	}
	rec.DataSource = data.source
	rec.FallbackUsed = data.fallbackUsed

	if len(data.markets) == 0 {
		s.log.Warnf(ctx, "no market data available for %s", crop)
		rec.Reasoning = "No market data available"
		return rec, nil
	}

	var best model.Market
	if s.opts.ConsiderDistance {
		best = SelectDistanceAdjusted(data.markets, s.transportCost())
	} else {
		best = SelectHighestPrice(data.markets)
	}
	local := SelectLocal(data.markets)

	// 分档与展示使用同一个两位小数的价差
	diff := round2(best.PricePerKg - local.PricePerKg)
	rec.BestMarket = &best
	rec.LocalMarket = &local
	rec.AllMarkets = SortByPrice(data.markets)
	rec.PriceDifference = diff
	rec.Opportunity = OpportunityFor(diff)
	rec.Reasoning = Reasoning(best, local, diff, s.opts.ConsiderDistance)

	s.log.Infof(ctx, "market recommendation for %s: %s at ₹%.2f/kg (₹%.2f more than local)",
		crop, best.Name, best.PricePerKg, diff)

	return rec, nil
}

// Compare 全量市场对比统计
func (s *Selector) Compare(ctx context.Context, crop string, farmer model.Location) (*model.MarketComparison, error) {
	crop = strings.ToLower(strings.TrimSpace(crop))
	cmp := &model.MarketComparison{
		Crop:      crop,
		Markets:   []model.Market{},
		Timestamp: s.now().UTC(),
	}

	data, err := s.fetch(ctx, crop, farmer)
	if err != nil {
		return cmp, err
	}
	cmp.FallbackUsed = data.fallbackUsed
	if len(data.markets) == 0 {
		return cmp, nil
	}

	cmp.Markets = SortByPrice(data.markets)
	cmp.Statistics = Statistics(data.markets)
	return cmp, nil
}

func (s *Selector) transportCost() float64 {
	if s.opts.TransportCostPerKm < 0 {
		return DefaultTransportCostPerKm
	}
	return s.opts.TransportCostPerKm
}

// SelectHighestPrice 价格最高的市场，并列时取先出现者
func SelectHighestPrice(markets []model.Market) model.Market {
	best := markets[0]
	for _, m := range markets[1:] {
		if m.PricePerKg > best.PricePerKg {
			best = m
		}
	}
	return best
}

// SelectDistanceAdjusted 净价（价格 - 距离 × 运费）最高的市场
func SelectDistanceAdjusted(markets []model.Market, costPerKm float64) model.Market {
	best := markets[0]
	bestNet := NetPrice(best, costPerKm)
	for _, m := range markets[1:] {
		if net := NetPrice(m, costPerKm); net > bestNet {
			best, bestNet = m, net
		}
	}
	return best
}

// NetPrice 扣除运输成本后的净价
func NetPrice(m model.Market, costPerKm float64) float64 {
	return m.PricePerKg - m.DistanceKm*costPerKm
}

// SelectLocal 距离最近的市场
func SelectLocal(markets []model.Market) model.Market {
	local := markets[0]
	for _, m := range markets[1:] {
		if m.DistanceKm < local.DistanceKm {
			local = m
		}
	}
	return local
}

// SortByPrice 按价格降序返回副本
func SortByPrice(markets []model.Market) []model.Market {
	sorted := append([]model.Market(nil), markets...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PricePerKg > sorted[j].PricePerKg
	})
	return sorted
}

// OpportunityFor 价差分级：≥10 excellent，≥5 good，≥2 moderate
func OpportunityFor(priceDiff float64) model.Opportunity {
	switch {
	case priceDiff >= 10:
		return model.OpportunityExcellent
	case priceDiff >= 5:
		return model.OpportunityGood
	case priceDiff >= 2:
		return model.OpportunityModerate
	default:
		return model.OpportunityLow
	}
}

// Reasoning 推荐理由
func Reasoning(best, local model.Market, priceDiff float64, considerDistance bool) string {
	if priceDiff <= 0 {
		return fmt.Sprintf("Your local market %s offers the best price. No need to travel further.", local.Name)
	}
	if best.Name == local.Name {
		return fmt.Sprintf("Your local market %s offers the best price at ₹%g/kg.", local.Name, best.PricePerKg)
	}

	distanceText := ""
	if considerDistance {
		distanceText = fmt.Sprintf(" (%.1f km away)", best.DistanceKm)
	}
	return fmt.Sprintf("Selling at %s%s gives you ₹%.2f more per kg compared to your local market %s. "+
		"For a typical harvest, this could mean significant additional income.",
		best.Name, distanceText, priceDiff, local.Name)
}

// Statistics 价格与距离统计
func Statistics(markets []model.Market) *model.MarketStatistics {
	if len(markets) == 0 {
		return nil
	}

	st := &model.MarketStatistics{
		HighestPrice:   markets[0].PricePerKg,
		LowestPrice:    markets[0].PricePerKg,
		ClosestMarket:  markets[0].DistanceKm,
		FarthestMarket: markets[0].DistanceKm,
		TotalMarkets:   len(markets),
	}
	var sum float64
	for _, m := range markets {
		sum += m.PricePerKg
		if m.PricePerKg > st.HighestPrice {
			st.HighestPrice = m.PricePerKg
		}
		if m.PricePerKg < st.LowestPrice {
			st.LowestPrice = m.PricePerKg
		}
		if m.DistanceKm < st.ClosestMarket {
			st.ClosestMarket = m.DistanceKm
		}
		if m.DistanceKm > st.FarthestMarket {
			st.FarthestMarket = m.DistanceKm
		}
	}
	st.AveragePrice = round2(sum / float64(len(markets)))
	st.PriceRange = round2(st.HighestPrice - st.LowestPrice)
	return st
}
