package callback

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agrichain/advisor/common/model"
	"agrichain/advisor/internal/framework"
	"agrichain/advisor/pkg/logger"
)

// HandleFunc 处理一条推荐回调；返回错误时不 ACK，等 TTR 后重投
type HandleFunc func(ctx context.Context, cb *model.RecommendationCallback) error

// Config 消费者配置
type Config struct {
	QueueName    string
	Timeout      time.Duration // 拉取消息超时
	TTR          time.Duration // Time-To-Run
	PollInterval time.Duration // 出错后的等待
}

// Consumer 回调消费者
// 职责：
// 1. 从回调队列拉取消息
// 2. 解析并交给 HandleFunc
// 3. 确认消息（ACK）
type Consumer struct {
	source framework.MessageSource
	handle HandleFunc
	cfg    Config
	log    logger.Logger
}

// NewConsumer 创建回调消费者
func NewConsumer(source framework.MessageSource, handle HandleFunc, cfg Config, log logger.Logger) *Consumer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.TTR <= 0 {
		cfg.TTR = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Consumer{source: source, handle: handle, cfg: cfg, log: log}
}

// Run 消费直到 ctx 取消或处理完 limit 条（limit<=0 不限）
func (c *Consumer) Run(ctx context.Context, limit int) error {
	c.log.Infof(ctx, "callback consumer started, queue: %s", c.cfg.QueueName)

	handled := 0
	for limit <= 0 || handled < limit {
		select {
		case <-ctx.Done():
			c.log.Infof(ctx, "callback consumer stopped")
			return ctx.Err()
		default:
		}

		ok, err := c.consumeOne(ctx)
		if err != nil {
			c.log.Errorf(ctx, "failed to consume callback: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.PollInterval):
			}
			continue
		}
		if ok {
			handled++
		}
	}
	return nil
}

// consumeOne 返回是否成功处理了一条回调
func (c *Consumer) consumeOne(ctx context.Context) (bool, error) {
	msg, err := c.source.Consume(c.cfg.QueueName, c.cfg.Timeout, c.cfg.TTR)
	if err != nil {
		return false, fmt.Errorf("consume message failed: %w", err)
	}
	if msg == nil {
		return false, nil
	}

	cb, err := Parse(msg.Data)
	if err != nil {
		// 解析失败直接 ACK，避免毒消息反复投递
		c.log.Errorf(ctx, "drop malformed callback %s: %v", msg.ID, err)
		_ = c.source.Ack(c.cfg.QueueName, msg.ID)
		return false, nil
	}

	ctx = logger.WithTraceID(ctx, cb.RequestID)
	if err := c.handle(ctx, cb); err != nil {
		return false, fmt.Errorf("handle callback %s: %w", cb.RequestID, err)
	}

	if err := c.source.Ack(c.cfg.QueueName, msg.ID); err != nil {
		return false, fmt.Errorf("ack callback %s: %w", msg.ID, err)
	}
	c.log.Infof(ctx, "callback processed, job_id: %s, status: %s", msg.ID, cb.Status)
	return true, nil
}

// Parse 解析并校验回调消息
func Parse(data []byte) (*model.RecommendationCallback, error) {
	var cb model.RecommendationCallback
	if err := json.Unmarshal(data, &cb); err != nil {
		return nil, fmt.Errorf("unmarshal callback failed: %w", err)
	}
	if cb.RequestID == "" {
		return nil, fmt.Errorf("request_id is required")
	}
	switch cb.Status {
	case model.CallbackStatusSuccess, model.CallbackStatusFailed:
	default:
		return nil, fmt.Errorf("unknown callback status %q", cb.Status)
	}
	return &cb, nil
}
