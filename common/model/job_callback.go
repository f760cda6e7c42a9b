package model

// RecommendationCallback 推荐结果回调消息（标准化）
// 用于 advisor worker → 上游 callback consumer 的消息传递
type RecommendationCallback struct {
	RequestID      string                `json:"request_id"`               // 对应请求的 request_id（链路追踪）
	FarmerID       string                `json:"farmer_id"`                // 农户 ID
	Crop           string                `json:"crop"`                     // 作物
	Status         string                `json:"status"`                   // 回调状态: SUCCESS / FAILED
	Recommendation *Recommendation       `json:"recommendation,omitempty"` // 最终推荐（成功时返回）
	Spoilage       *SpoilageAssessment   `json:"spoilage,omitempty"`       // 腐败评估（独立展示）
	Market         *MarketRecommendation `json:"market,omitempty"`         // 市场推荐（独立展示）
	Weather        *WeatherReport        `json:"weather,omitempty"`        // 天气与风暴风险（独立展示）
	Error          string                `json:"error,omitempty"`          // 错误信息（失败时返回）
	ProcessedAt    int64                 `json:"processed_at"`             // 处理时间戳（Unix timestamp）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS" // 推荐成功
	CallbackStatusFailed  = "FAILED"  // 推荐失败
)

// RecommendationNotification 推荐完成通知（Redis Pub/Sub）
type RecommendationNotification struct {
	RequestID  string  `json:"request_id"`
	FarmerID   string  `json:"farmer_id"`
	Crop       string  `json:"crop"`
	Status     string  `json:"status"` // SUCCESS/FAILED
	Action     Action  `json:"action,omitempty"`
	Urgency    Urgency `json:"urgency,omitempty"`
	Confidence float64 `json:"confidence"`
	Timestamp  int64   `json:"timestamp"`
}
