package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/business"
	"agrichain/advisor/internal/domains/common"
	"agrichain/advisor/internal/domains/common/job"
	"agrichain/advisor/internal/domains/common/response"
	"agrichain/advisor/internal/framework"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

// supportedCrops 有规则与行情数据的作物
var supportedCrops = map[string]bool{
	"tomato": true,
	"onion":  true,
}

// RecommendHandler 收获推荐 Handler
type RecommendHandler struct {
	ctx         context.Context
	meta        *job.Meta
	payload     *model.HarvestRecommendBusinessData
	recommender common.Recommender

	input  *business.RecommendInput
	bundle *business.Bundle
}

// NewRecommendHandler 创建收获推荐 Handler
// 只做结构解析，字段校验在 PreProcess 中完成
func NewRecommendHandler(ctx context.Context, meta *job.Meta, payload json.RawMessage, deps *common.Deps) (common.HandlerServ, error) {
	if deps == nil || deps.Recommender == nil {
		return nil, errors.New("recommender is not configured")
	}

	var bizData model.HarvestRecommendBusinessData
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &bizData); err != nil {
			return nil, errorutil.Invalid("payload", err.Error())
		}
	}

	return &RecommendHandler{
		ctx:         logger.WithFarmer(ctx, bizData.FarmerID, bizData.Crop),
		meta:        meta,
		payload:     &bizData,
		recommender: deps.Recommender,
	}, nil
}

// GetProcess 处理推荐请求
func (h *RecommendHandler) GetProcess() *response.Response {
	result := response.NewRecommendationResult()

	err := framework.NewPreProcessor(
		framework.Step{Name: "PreProcess", Func: h.PreProcess},
		framework.Step{Name: "Process", Func: h.Process},
		framework.Step{Name: "PostProcess", Func: func(ctx context.Context) error {
			return h.PostProcess(ctx, result)
		}},
	).Run(h.ctx)

	resp := &response.Response{}
	resp.WrapResponse(result, h.meta, err)
	return resp
}

// PreProcess 校验请求字段
func (h *RecommendHandler) PreProcess(ctx context.Context) error {
	p := h.payload
	crop := strings.ToLower(strings.TrimSpace(p.Crop))
	language := strings.ToLower(strings.TrimSpace(p.Language))

	switch {
	case strings.TrimSpace(p.FarmerID) == "":
		return errorutil.Invalid("farmer_id", "is required")
	case !supportedCrops[crop]:
		return errorutil.Invalid("crop", "must be tomato or onion")
	case p.Latitude < -90 || p.Latitude > 90:
		return errorutil.Invalid("latitude", "must be within [-90, 90]")
	case p.Longitude < -180 || p.Longitude > 180:
		return errorutil.Invalid("longitude", "must be within [-180, 180]")
	case p.FieldSize <= 0:
		return errorutil.Invalid("field_size", "must be positive")
	case language != "" && language != string(model.LocaleEnglish) && language != string(model.LocaleHindi):
		return errorutil.Invalid("language", "must be en or hi")
	}

	h.input = &business.RecommendInput{
		RequestID: h.meta.RequestID,
		FarmerID:  strings.TrimSpace(p.FarmerID),
		Location:  model.Location{Latitude: p.Latitude, Longitude: p.Longitude},
		Crop:      crop,
		FieldSize: p.FieldSize,
		Locale:    model.ParseLocale(language),
	}
	return nil
}

// Process 执行推荐并发送回调
func (h *RecommendHandler) Process(ctx context.Context) error {
	bundle, err := h.recommender.ExecuteRecommendation(ctx, h.input)
	if err != nil {
		// 超时或取消时未发送回调，交给队列重投
		if errors.Is(err, context.DeadlineExceeded) {
			return errorutil.RetriableWithDetails("recommendation timed out", err.Error())
		}
		if errors.Is(err, context.Canceled) {
			return errorutil.RetriableWithDetails("recommendation cancelled", err.Error())
		}
		return err
	}
	h.bundle = bundle
	return nil
}

// PostProcess 填充结果摘要
func (h *RecommendHandler) PostProcess(ctx context.Context, result *response.RecommendationResult) error {
	if h.bundle == nil || h.bundle.Recommendation == nil {
		return errorutil.Computation("recommendation is empty")
	}
	result.Fill(h.bundle.Recommendation)
	return nil
}
