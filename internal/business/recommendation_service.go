package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/business/geocache"
	"agrichain/advisor/internal/business/market"
	"agrichain/advisor/internal/business/spoilage"
	"agrichain/advisor/internal/business/storm"
	"agrichain/advisor/internal/business/synthesis"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

// Publisher 队列投递（lmstfy.Client 实现）
type Publisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// Notifier 推荐完成通知（redis.PubSub 实现）
type Notifier interface {
	PublishRecommendationComplete(ctx context.Context, channel string, n *model.RecommendationNotification) error
}

// RecommendInput 推荐输入参数（所有数据从 payload 传入）
type RecommendInput struct {
	RequestID string
	FarmerID  string
	Location  model.Location
	Crop      string
	FieldSize float64
	Locale    model.Locale
}

// Bundle 最终推荐与各分支中间结果
type Bundle struct {
	Recommendation *model.Recommendation
	Spoilage       *model.SpoilageAssessment
	Market         *model.MarketRecommendation
	Weather        *model.WeatherReport
}

// ServiceOptions RecommendationService 依赖
// GeoCache / Weather / Rules / Market / Synthesizer 必填，其余可选
type ServiceOptions struct {
	GeoCache    *geocache.Cache
	Weather     *storm.Assessor
	Rules       *spoilage.Matcher
	Market      *market.Selector
	Synthesizer *synthesis.Synthesizer

	Publisher     Publisher
	CallbackQueue string
	RefreshQueue  string // 为空时不投递卫星刷新任务

	Notifier      Notifier
	NotifyChannel string

	BranchTimeout time.Duration // 0 表示只受父 ctx 约束
	Logger        logger.Logger
}

// RecommendationService 收获推荐服务
// 职责：四路数据并发获取 → 合成推荐 → 发送回调与通知
type RecommendationService struct {
	geo     *geocache.Cache
	weather *storm.Assessor
	rules   *spoilage.Matcher
	market  *market.Selector
	synth   *synthesis.Synthesizer

	publisher     Publisher
	callbackQueue string
	refreshQueue  string
	notifier      Notifier
	notifyChannel string

	branchTimeout time.Duration
	log           logger.Logger
	now           func() time.Time
}

// NewRecommendationService 创建推荐服务实例
func NewRecommendationService(opts ServiceOptions) (*RecommendationService, error) {
	switch {
	case opts.GeoCache == nil:
		return nil, errors.New("geo cache is required")
	case opts.Weather == nil:
		return nil, errors.New("weather assessor is required")
	case opts.Rules == nil:
		return nil, errors.New("rule matcher is required")
	case opts.Market == nil:
		return nil, errors.New("market selector is required")
	case opts.Synthesizer == nil:
		return nil, errors.New("synthesizer is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	return &RecommendationService{
		geo:           opts.GeoCache,
		weather:       opts.Weather,
		rules:         opts.Rules,
		market:        opts.Market,
		synth:         opts.Synthesizer,
		publisher:     opts.Publisher,
		callbackQueue: opts.CallbackQueue,
		refreshQueue:  opts.RefreshQueue,
		notifier:      opts.Notifier,
		notifyChannel: opts.NotifyChannel,
		branchTimeout: opts.BranchTimeout,
		log:           log,
		now:           time.Now,
	}, nil
}

// Recommend 并发获取四路信号并合成推荐
// 单个分支失败只会降级该分支；仅在父 ctx 取消时返回错误
func (s *RecommendationService) Recommend(ctx context.Context, input *RecommendInput) (*Bundle, error) {
	if input == nil {
		return nil, errorutil.Invalid("input", "must not be nil")
	}
	ctx = logger.WithFarmer(ctx, input.FarmerID, input.Crop)
	today := s.now()

	var (
		geoSig     synthesis.GeoSignal
		weatherSig synthesis.WeatherSignal
		rulesSig   synthesis.RulesSignal
		marketSig  synthesis.MarketSignal
	)
	weatherDone := make(chan struct{})

	// 每个分支都返回 nil，失败写入各自的 Signal.Err
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		geoSig = s.geoBranch(gctx, input, today)
		return nil
	})

	g.Go(func() error {
		defer close(weatherDone)
		weatherSig = s.weatherBranch(gctx, input)
		return nil
	})

	// 规则分支依赖天气分支的当前温湿度
	g.Go(func() error {
		select {
		case <-weatherDone:
		case <-gctx.Done():
			rulesSig = synthesis.RulesSignal{Err: gctx.Err()}
			return nil
		}
		rulesSig = s.rulesBranch(gctx, input, weatherSig.Report)
		return nil
	})

	g.Go(func() error {
		marketSig = s.marketBranch(gctx, input)
		return nil
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		s.log.Warnf(ctx, "recommendation cancelled: %v", err)
		return nil, err
	}

	rec := s.synth.Synthesize(ctx, synthesis.Inputs{
		Crop:    input.Crop,
		Locale:  input.Locale,
		Geo:     geoSig,
		Weather: weatherSig,
		Rules:   rulesSig,
		Market:  marketSig,
	})

	return &Bundle{
		Recommendation: rec,
		Spoilage:       rulesSig.Assessment,
		Market:         marketSig.Recommendation,
		Weather:        weatherSig.Report,
	}, nil
}

// ExecuteRecommendation 执行推荐并发送回调
// 推荐被取消或超时时不发送回调，直接返回 ctx 错误交由队列重投，
// 保证每个 request_id 只有重投成功后的一次终态回调
func (s *RecommendationService) ExecuteRecommendation(ctx context.Context, input *RecommendInput) (*Bundle, error) {
	bundle, err := s.Recommend(ctx, input)
	if err != nil {
		return nil, err
	}

	callback := model.RecommendationCallback{
		RequestID:      input.RequestID,
		FarmerID:       input.FarmerID,
		Crop:           input.Crop,
		Status:         model.CallbackStatusSuccess,
		Recommendation: bundle.Recommendation,
		Spoilage:       bundle.Spoilage,
		Market:         bundle.Market,
		Weather:        bundle.Weather,
		ProcessedAt:    s.now().Unix(),
	}

	if err := s.publishCallback(ctx, &callback); err != nil {
		return bundle, err
	}
	s.notify(ctx, &callback)

	return bundle, nil
}

func (s *RecommendationService) publishCallback(ctx context.Context, callback *model.RecommendationCallback) error {
	if s.publisher == nil || s.callbackQueue == "" {
		s.log.Debugf(ctx, "callback queue not configured, skip publishing")
		return nil
	}

	callbackJSON, err := json.Marshal(callback)
	if err != nil {
		return fmt.Errorf("failed to marshal callback: %w", err)
	}

	// ttl=0 永不过期, delay=0 立即可用
	if err := s.publisher.Publish(s.callbackQueue, callbackJSON, 0, 0); err != nil {
		return errorutil.Unavailable("callback_queue", err)
	}

	s.log.Infof(ctx, "callback published to %s: status=%s", s.callbackQueue, callback.Status)
	return nil
}

// notify 通知失败只记日志
func (s *RecommendationService) notify(ctx context.Context, callback *model.RecommendationCallback) {
	if s.notifier == nil || s.notifyChannel == "" {
		return
	}

	n := &model.RecommendationNotification{
		RequestID: callback.RequestID,
		FarmerID:  callback.FarmerID,
		Crop:      callback.Crop,
		Status:    callback.Status,
		Timestamp: callback.ProcessedAt,
	}
	if rec := callback.Recommendation; rec != nil {
		n.Action = rec.Action
		n.Urgency = rec.Urgency
		n.Confidence = rec.Confidence
	}

	if err := s.notifier.PublishRecommendationComplete(ctx, s.notifyChannel, n); err != nil {
		s.log.Warnf(ctx, "failed to publish recommendation notification: %v", err)
	}
}

func (s *RecommendationService) branchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.branchTimeout > 0 {
		return context.WithTimeout(ctx, s.branchTimeout)
	}
	return context.WithCancel(ctx)
}

// geoBranch 读取卫星缓存；未命中时投递刷新任务
func (s *RecommendationService) geoBranch(ctx context.Context, input *RecommendInput, today time.Time) synthesis.GeoSignal {
	bctx, cancel := s.branchContext(ctx)
	defer cancel()

	lat, lon := input.Location.Latitude, input.Location.Longitude
	entry, err := s.geo.Get(bctx, lat, lon, today)
	if err != nil {
		s.log.Warnf(ctx, "satellite branch failed: %v", err)
		return synthesis.GeoSignal{Err: err}
	}
	if entry == nil {
		s.requestRefresh(ctx, input, today)
		return synthesis.GeoSignal{Cached: false}
	}

	ndvi, soil, rain := entry.NDVI, entry.SoilMoisture, entry.RainfallMM
	return synthesis.GeoSignal{
		NDVI:         &ndvi,
		SoilMoisture: &soil,
		RainfallMM:   &rain,
		Cached:       true,
		CacheAgeDays: s.geo.AgeDays(entry),
	}
}

// requestRefresh 尽力投递，失败不影响本次推荐
func (s *RecommendationService) requestRefresh(ctx context.Context, input *RecommendInput, today time.Time) {
	if s.publisher == nil || s.refreshQueue == "" {
		return
	}

	lat := geocache.RoundCoord(input.Location.Latitude)
	lon := geocache.RoundCoord(input.Location.Longitude)
	day := geocache.DateOnly(today)

	refreshJob := model.SatelliteRefreshJob{
		Payload: model.SatelliteRefreshPayload{
			Data: model.SatelliteRefreshEnvelope{
				RequestID:  input.RequestID,
				ActionType: model.ActionTypeSatelliteRefresh,
				ID:         geocache.Key(lat, lon, day),
				Data: model.SatelliteRefreshData{
					Latitude:  lat,
					Longitude: lon,
					Date:      day.Format("2006-01-02"),
				},
			},
		},
	}

	data, err := json.Marshal(refreshJob)
	if err != nil {
		s.log.Warnf(ctx, "failed to marshal satellite refresh job: %v", err)
		return
	}
	if err := s.publisher.Publish(s.refreshQueue, data, 0, 0); err != nil {
		s.log.Warnf(ctx, "failed to enqueue satellite refresh %s: %v", refreshJob.Payload.Data.ID, err)
		return
	}
	s.log.Infof(ctx, "satellite refresh enqueued: %s", refreshJob.Payload.Data.ID)
}

func (s *RecommendationService) weatherBranch(ctx context.Context, input *RecommendInput) synthesis.WeatherSignal {
	bctx, cancel := s.branchContext(ctx)
	defer cancel()

	report, err := s.weather.Report(bctx, input.Location.Latitude, input.Location.Longitude)
	if err != nil {
		s.log.Warnf(ctx, "weather branch failed: %v", err)
		return synthesis.WeatherSignal{Err: errorutil.Unavailable("weather", err)}
	}
	return synthesis.WeatherSignal{Report: report}
}

// rulesBranch 天气不可用时使用默认温湿度
func (s *RecommendationService) rulesBranch(ctx context.Context, input *RecommendInput, report *model.WeatherReport) synthesis.RulesSignal {
	bctx, cancel := s.branchContext(ctx)
	defer cancel()

	reading := storm.CurrentConditions(nil)
	if report != nil {
		reading = report.Current
	}

	assessment, err := s.rules.Assess(bctx, input.Crop, reading)
	if err != nil {
		s.log.Warnf(ctx, "spoilage rules branch failed: %v", err)
		return synthesis.RulesSignal{Err: errorutil.Unavailable("spoilage_rules", err)}
	}
	return synthesis.RulesSignal{Assessment: assessment}
}

func (s *RecommendationService) marketBranch(ctx context.Context, input *RecommendInput) synthesis.MarketSignal {
	bctx, cancel := s.branchContext(ctx)
	defer cancel()

	rec, err := s.market.Recommend(bctx, input.Crop, input.Location)
	if err != nil {
		s.log.Warnf(ctx, "market branch failed: %v", err)
	}
	return synthesis.MarketSignal{Recommendation: rec, Err: err}
}
