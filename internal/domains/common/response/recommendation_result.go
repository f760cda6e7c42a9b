package response

import (
	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/domains/common/job"
	"agrichain/advisor/pkg/errorutil"
)

// 推荐结果状态
const (
	RecommendationStatusSuccess = "SUCCESS"
	RecommendationStatusFailed  = "FAILED"
)

// RecommendationResult 收获推荐结果摘要（完整内容走回调队列）
type RecommendationResult struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	Action      model.Action      `json:"action,omitempty"`
	Urgency     model.Urgency     `json:"urgency,omitempty"`
	Confidence  float64           `json:"confidence,omitempty"`
	DataQuality model.DataQuality `json:"data_quality,omitempty"`
	Error       *errorutil.Error  `json:"error,omitempty"`
}

// NewRecommendationResult 创建推荐结果
func NewRecommendationResult() *RecommendationResult {
	return &RecommendationResult{}
}

// Fill 写入推荐摘要
func (r *RecommendationResult) Fill(rec *model.Recommendation) {
	if rec == nil {
		return
	}
	r.Action = rec.Action
	r.Urgency = rec.Urgency
	r.Confidence = rec.Confidence
	r.DataQuality = rec.DataQuality
}

// Set 实现 ResultI 接口
func (r *RecommendationResult) Set(meta *job.Meta, err error) {
	r.ID = meta.ID
	if err != nil {
		r.Status = RecommendationStatusFailed
		r.Error = errorutil.Wrap(err)
		return
	}
	r.Status = RecommendationStatusSuccess
}

// GetStatus 实现 ResultI 接口
func (r *RecommendationResult) GetStatus() string {
	return r.Status
}
