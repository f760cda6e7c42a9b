package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bitleak/lmstfy/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"agrichain/advisor/pkg/lmstfyx"
	"agrichain/advisor/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// memSource 内存消息源
type memSource struct {
	mu         sync.Mutex
	pending    []*Message
	acked      []string
	consumeErr error
	consumed   int
}

func (s *memSource) Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error) {
	s.mu.Lock()
	if s.consumeErr != nil {
		s.consumed++
		s.mu.Unlock()
		return nil, s.consumeErr
	}
	if len(s.pending) == 0 {
		s.mu.Unlock()
		time.Sleep(time.Millisecond)
		return nil, nil
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	s.consumed++
	s.mu.Unlock()
	return msg, nil
}

func (s *memSource) Ack(queue string, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, jobID)
	return nil
}

func (s *memSource) ackedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.acked...)
}

func (s *memSource) consumedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumed
}

func messages(ids ...string) []*Message {
	out := make([]*Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, &Message{ID: id, Queue: "harvest_recommend", Data: []byte(`{}`)})
	}
	return out
}

func TestPreProcessorRunsStepsInOrder(t *testing.T) {
	var calls []string
	step := func(name string) Step {
		return Step{Name: name, Func: func(ctx context.Context) error {
			calls = append(calls, name)
			return nil
		}}
	}

	err := NewPreProcessor(step("pre"), step("process"), step("post")).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pre", "process", "post"}, calls)
}

func TestPreProcessorStopsAtFirstError(t *testing.T) {
	sentinel := errors.New("crop is required")
	var calls []string

	p := NewPreProcessor(
		Step{Name: "validate", Func: func(ctx context.Context) error {
			calls = append(calls, "validate")
			return sentinel
		}},
		Step{Name: "process", Func: func(ctx context.Context) error {
			calls = append(calls, "process")
			return nil
		}},
	)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "validate")
	assert.Equal(t, []string{"validate"}, calls)
}

func TestPreProcessorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewPreProcessor(Step{Name: "process", Func: func(ctx context.Context) error {
		called = true
		return nil
	}}).Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubscriberForwardsMessages(t *testing.T) {
	source := &memSource{pending: messages("a", "b", "c")}
	inputChan := make(chan *Message, 10)

	sub := NewSubscriber(&SubscriberConfig{QueueName: "harvest_recommend", Concurrency: 2}, source, logger.NewNop())
	require.NoError(t, sub.Start(context.Background(), inputChan))

	require.Eventually(t, func() bool { return len(inputChan) == 3 }, time.Second, 5*time.Millisecond)

	sub.Stop()
	sub.Wait()

	got := map[string]bool{}
	for len(inputChan) > 0 {
		got[(<-inputChan).ID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, got)
}

func TestSubscriberBacksOffOnConsumeError(t *testing.T) {
	source := &memSource{consumeErr: errors.New("lmstfy consume failed: 502")}
	inputChan := make(chan *Message, 1)

	sub := NewSubscriber(&SubscriberConfig{
		QueueName:    "harvest_recommend",
		Concurrency:  1,
		ErrorBackoff: time.Hour,
	}, source, logger.NewNop())
	require.NoError(t, sub.Start(context.Background(), inputChan))

	require.Eventually(t, func() bool { return source.consumedCount() == 1 }, time.Second, time.Millisecond)

	// 退避期间停止，协程应立即退出
	sub.Stop()
	sub.Wait()
	assert.Equal(t, 1, source.consumedCount())
}

func TestSubscriberStopsWhenProcessorIsBlocked(t *testing.T) {
	source := &memSource{pending: messages("a", "b")}
	inputChan := make(chan *Message) // 无缓冲且无人读取

	sub := NewSubscriber(&SubscriberConfig{QueueName: "harvest_recommend", Concurrency: 1}, source, logger.NewNop())
	require.NoError(t, sub.Start(context.Background(), inputChan))

	require.Eventually(t, func() bool { return source.consumedCount() == 1 }, time.Second, time.Millisecond)
	sub.Stop()
	sub.Wait()
}

func TestProcessorAcksByResponseAction(t *testing.T) {
	source := &memSource{}
	proc := func(ctx context.Context, job *client.Job) *lmstfyx.JobResp {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		switch job.ID {
		case "ok":
			return lmstfyx.Success(nil)
		case "retry":
			return lmstfyx.Release(nil)
		case "bad":
			return lmstfyx.Bury([]byte(`{"error":"invalid crop"}`))
		}
		return nil
	}

	inputChan := make(chan *Message, 4)
	for _, msg := range messages("ok", "retry", "bad", "nil-resp") {
		inputChan <- msg
	}

	p := NewProcessor(&ProcessorConfig{Concurrency: 2, Timeout: time.Second}, source, proc, logger.NewNop())
	require.NoError(t, p.Start(context.Background(), inputChan))
	p.SignalShutdown()
	p.SignalShutdown()
	p.Wait()

	assert.ElementsMatch(t, []string{"ok", "bad", "nil-resp"}, source.ackedIDs())
	assert.Empty(t, inputChan)
}

func TestProcessorDrainSurvivesCancelledParent(t *testing.T) {
	source := &memSource{}
	var seen []error
	var mu sync.Mutex
	proc := func(ctx context.Context, job *client.Job) *lmstfyx.JobResp {
		mu.Lock()
		seen = append(seen, ctx.Err())
		mu.Unlock()
		return lmstfyx.Success(nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	inputChan := make(chan *Message, 2)
	for _, msg := range messages("a", "b") {
		inputChan <- msg
	}
	cancel()

	p := NewProcessor(&ProcessorConfig{Concurrency: 1}, source, proc, logger.NewNop())
	require.NoError(t, p.Start(ctx, inputChan))
	p.SignalShutdown()
	p.Wait()

	assert.Equal(t, []error{nil, nil}, seen)
	assert.ElementsMatch(t, []string{"a", "b"}, source.ackedIDs())
}
