package callback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/framework"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type queue struct {
	mu      sync.Mutex
	pending []*framework.Message
	acked   []string
}

func (q *queue) Consume(name string, timeout, ttr time.Duration) (*framework.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	msg := q.pending[0]
	q.pending = q.pending[1:]
	return msg, nil
}

func (q *queue) Ack(name, jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, jobID)
	return nil
}

func msg(id, data string) *framework.Message {
	return &framework.Message{ID: id, Queue: "harvest_recommend_callback", Data: []byte(data)}
}

func TestRunHandlesAndAcks(t *testing.T) {
	q := &queue{pending: []*framework.Message{
		msg("j1", `{"request_id":"r1","status":"SUCCESS","recommendation":{"action":"harvest_now"}}`),
		msg("j2", `not json`),
		msg("j3", `{"request_id":"r3","status":"FAILED","error":"boom"}`),
	}}

	var got []*model.RecommendationCallback
	c := NewConsumer(q, func(ctx context.Context, cb *model.RecommendationCallback) error {
		got = append(got, cb)
		return nil
	}, Config{QueueName: "harvest_recommend_callback"}, nil)

	require.NoError(t, c.Run(context.Background(), 2))

	require.Len(t, got, 2)
	assert.Equal(t, "r1", got[0].RequestID)
	assert.Equal(t, model.ActionHarvestNow, got[0].Recommendation.Action)
	assert.Equal(t, "boom", got[1].Error)
	// 毒消息也被确认
	assert.Equal(t, []string{"j1", "j2", "j3"}, q.acked)
}

func TestRunLeavesFailedCallbackUnacked(t *testing.T) {
	q := &queue{pending: []*framework.Message{
		msg("j1", `{"request_id":"r1","status":"SUCCESS"}`),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewConsumer(q, func(ctx context.Context, cb *model.RecommendationCallback) error {
		return errors.New("downstream unavailable")
	}, Config{QueueName: "q", PollInterval: 5 * time.Millisecond}, nil)

	err := c.Run(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, q.acked)
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "ok", data: `{"request_id":"r","status":"SUCCESS"}`},
		{name: "missing request id", data: `{"status":"SUCCESS"}`, wantErr: "request_id"},
		{name: "unknown status", data: `{"request_id":"r","status":"DONE"}`, wantErr: "unknown callback status"},
		{name: "garbage", data: `[`, wantErr: "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, err := Parse([]byte(tt.data))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "r", cb.RequestID)
		})
	}
}
