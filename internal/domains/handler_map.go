package domains

import (
	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/domains/common"
	"agrichain/advisor/internal/domains/handlers/harvest/recommend"
)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionTypeHarvestRecommend: recommend.NewRecommendHandler,
}
