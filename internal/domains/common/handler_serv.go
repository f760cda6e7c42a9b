package common

import (
	"context"
	"encoding/json"

	"agrichain/advisor/internal/business"
	"agrichain/advisor/internal/domains/common/job"
	"agrichain/advisor/internal/domains/common/response"
)

// Recommender 推荐执行（business.RecommendationService 实现）
type Recommender interface {
	ExecuteRecommendation(ctx context.Context, input *business.RecommendInput) (*business.Bundle, error)
}

// Deps Handler 依赖
type Deps struct {
	Recommender Recommender
}

// HandlerServProc Handler 构造函数类型
type HandlerServProc func(ctx context.Context, meta *job.Meta, payload json.RawMessage, deps *Deps) (HandlerServ, error)

// HandlerServ Handler 接口
type HandlerServ interface {
	GetProcess() *response.Response
}
