package framework

import (
	"context"
	"time"
)

// MessageSource 消息源接口（lmstfy 适配器实现）
type MessageSource interface {
	// Consume 阻塞拉取，超时未拉到返回 (nil, nil)
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 确认消息（删除消息）
	Ack(queue string, jobID string) error
}

// Logger 日志接口（pkg/logger.Logger 满足该接口）
type Logger interface {
	Debugf(ctx context.Context, format string, args ...interface{})
	Infof(ctx context.Context, format string, args ...interface{})
	Warnf(ctx context.Context, format string, args ...interface{})
	Errorf(ctx context.Context, format string, args ...interface{})
}

// ProcessorFunc 函数链中的一步
type ProcessorFunc func(ctx context.Context) error
