package synthesis

import "agrichain/advisor/common/model"

// Decision 级联决策结果
type Decision struct {
	Action  model.Action
	Urgency model.Urgency
	Factor  model.PrimaryFactor
}

// Decide 按优先级顺序匹配，首条命中即返回
//  1. 风暴 + 可收获        → harvest_now / critical
//  2. 风暴 + 未成熟        → harvest_now / high
//  3. 腐败 critical        → harvest_now / high
//  4. 腐败 high            → harvest_now / medium
//  5. 行情 excellent|good + 可收获 → sell_now / 价差≥10 medium，否则 low
//  6. 腐败 medium + 可收获 → harvest_now / low
//  7. 其余                 → wait / low
func Decide(s Signals) Decision {
	switch {
	case s.StormRisk && s.CropReady:
		return Decision{model.ActionHarvestNow, model.UrgencyCritical, model.FactorStormRisk}
	case s.StormRisk:
		return Decision{model.ActionHarvestNow, model.UrgencyHigh, model.FactorStormRisk}
	case s.SpoilageRisk == model.SeverityCritical:
		return Decision{model.ActionHarvestNow, model.UrgencyHigh, model.FactorSpoilageRisk}
	case s.SpoilageRisk == model.SeverityHigh:
		return Decision{model.ActionHarvestNow, model.UrgencyMedium, model.FactorSpoilageRisk}
	case goodMarket(s.MarketOpportunity) && s.CropReady:
		urgency := model.UrgencyLow
		if s.PriceDifference >= 10 {
			urgency = model.UrgencyMedium
		}
		return Decision{model.ActionSellNow, urgency, model.FactorMarketOpportunity}
	case s.SpoilageRisk == model.SeverityMedium && s.CropReady:
		return Decision{model.ActionHarvestNow, model.UrgencyLow, model.FactorSpoilageRisk}
	default:
		return Decision{model.ActionWait, model.UrgencyLow, model.FactorOptimalTiming}
	}
}

func goodMarket(o model.Opportunity) bool {
	return o == model.OpportunityExcellent || o == model.OpportunityGood
}
