package model

// HarvestRecommendJob 收获推荐任务消息（标准化）
// 用于 上游 API → advisor worker 的消息传递
type HarvestRecommendJob struct {
	Payload HarvestRecommendPayload `json:"payload"`
}

// HarvestRecommendPayload Job 负载
type HarvestRecommendPayload struct {
	Data HarvestRecommendData `json:"data"`
}

// HarvestRecommendData Job 数据层
type HarvestRecommendData struct {
	// 元信息
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	OrgID      string `json:"org_id"`      // 组织 ID
	ActionType string `json:"action_type"` // 动作类型，固定值 "harvest_recommend"
	ID         string `json:"id"`          // 业务 ID（farmer_id）

	// 业务数据
	Data HarvestRecommendBusinessData `json:"data"`
}

// HarvestRecommendBusinessData 收获推荐业务数据
type HarvestRecommendBusinessData struct {
	FarmerID  string  `json:"farmer_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Crop      string  `json:"crop"`       // tomato/onion
	FieldSize float64 `json:"field_size"` // 公顷
	Language  string  `json:"language"`   // en/hi，默认 en
}

// SatelliteRefreshData 卫星数据刷新任务（缓存未命中时投递）
type SatelliteRefreshData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Date      string  `json:"date"` // YYYY-MM-DD
}

// 动作类型常量
const (
	ActionTypeHarvestRecommend = "harvest_recommend"
	ActionTypeSatelliteRefresh = "satellite_refresh"
)

// SatelliteRefreshJob 卫星刷新任务消息，与收获推荐共用 payload.data 信封
type SatelliteRefreshJob struct {
	Payload SatelliteRefreshPayload `json:"payload"`
}

// SatelliteRefreshPayload Job 负载
type SatelliteRefreshPayload struct {
	Data SatelliteRefreshEnvelope `json:"data"`
}

// SatelliteRefreshEnvelope Job 数据层，ID 为缓存键
type SatelliteRefreshEnvelope struct {
	RequestID  string               `json:"request_id"`
	ActionType string               `json:"action_type"`
	ID         string               `json:"id"`
	Data       SatelliteRefreshData `json:"data"`
}
