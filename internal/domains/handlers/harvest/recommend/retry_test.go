package recommend

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/business"
	"agrichain/advisor/internal/business/geocache"
	"agrichain/advisor/internal/business/market"
	"agrichain/advisor/internal/business/spoilage"
	"agrichain/advisor/internal/business/storm"
	"agrichain/advisor/internal/business/synthesis"
	"agrichain/advisor/internal/domains/common"
	"agrichain/advisor/pkg/catalog"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

const callbackQueue = "harvest_recommend_callback"

type emptyGeoStore struct{}

func (emptyGeoStore) Get(ctx context.Context, latitude, longitude float64, date time.Time) (*model.GeoCacheEntry, error) {
	return nil, nil
}

func (emptyGeoStore) Upsert(ctx context.Context, entry *model.GeoCacheEntry) error { return nil }

// stalledWeather 在 stalled 为 true 时阻塞到 ctx 结束
type stalledWeather struct{ stalled bool }

func (w *stalledWeather) Name() string { return "OpenWeatherMap" }

func (w *stalledWeather) Forecast(ctx context.Context, latitude, longitude float64) ([]model.WeatherDay, error) {
	if w.stalled {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, nil
}

type queueRecorder struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func (q *queueRecorder) Publish(queue string, data []byte, ttl, delay uint32) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.messages == nil {
		q.messages = map[string][][]byte{}
	}
	q.messages[queue] = append(q.messages[queue], data)
	return nil
}

func (q *queueRecorder) on(queue string) [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.messages[queue]
}

func newService(t *testing.T, weather storm.WeatherProvider, publisher business.Publisher) *business.RecommendationService {
	t.Helper()
	log := logger.NewNop()
	primary, err := catalog.NewStaticProvider("Agmarknet")
	require.NoError(t, err)

	svc, err := business.NewRecommendationService(business.ServiceOptions{
		GeoCache:      geocache.NewCache(emptyGeoStore{}, geocache.DefaultTTLDays, log),
		Weather:       storm.NewAssessor(weather, log),
		Rules:         spoilage.NewMatcher(nil, spoilage.DefaultRuleLimit, log),
		Market:        market.NewSelector(primary, nil, market.Options{}, log),
		Synthesizer:   synthesis.NewSynthesizer(synthesis.DefaultStaleCacheDays, log),
		Publisher:     publisher,
		CallbackQueue: callbackQueue,
		Logger:        log,
	})
	require.NoError(t, err)
	return svc
}

func TestRecommendHandlerTimeoutReleasesWithoutCallback(t *testing.T) {
	weather := &stalledWeather{stalled: true}
	queue := &queueRecorder{}
	deps := &common.Deps{Recommender: newService(t, weather, queue)}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	h, err := NewRecommendHandler(ctx, meta, payload(t, nil), deps)
	require.NoError(t, err)

	resp := h.GetProcess()
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Retryable())
	assert.False(t, resp.Processed)
	assert.Empty(t, queue.on(callbackQueue))

	// 重投后只产生一次终态回调
	weather.stalled = false
	h, err = NewRecommendHandler(context.Background(), meta, payload(t, nil), deps)
	require.NoError(t, err)

	resp = h.GetProcess()
	require.Nil(t, resp.Error)
	assert.True(t, resp.Processed)

	msgs := queue.on(callbackQueue)
	require.Len(t, msgs, 1)
	var callback model.RecommendationCallback
	require.NoError(t, json.Unmarshal(msgs[0], &callback))
	assert.Equal(t, model.CallbackStatusSuccess, callback.Status)
	assert.Equal(t, "req-7", callback.RequestID)
}

func TestRecommendHandlerCancellationIsRetryable(t *testing.T) {
	h, err := NewRecommendHandler(context.Background(), meta, payload(t, nil), &common.Deps{Recommender: &failingRecommender{err: context.Canceled}})
	require.NoError(t, err)

	resp := h.GetProcess()
	require.NotNil(t, resp.Error)
	assert.True(t, resp.Retryable())
	assert.NotEqual(t, errorutil.KindValidation, resp.Error.Kind)
}

type failingRecommender struct{ err error }

func (r *failingRecommender) ExecuteRecommendation(ctx context.Context, input *business.RecommendInput) (*business.Bundle, error) {
	return nil, r.err
}
