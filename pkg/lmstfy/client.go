package lmstfy

import (
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"

	"agrichain/advisor/internal/framework"
	"agrichain/advisor/pkg/config"
)

// publishTries 回调与刷新任务的最大投递次数，超过后进入死信
const publishTries = 3

// Client Lmstfy 客户端封装
// 同时实现 framework.MessageSource（消费）与 business.Publisher（回调、卫星刷新投递）
type Client struct {
	cli       *client.LmstfyClient
	namespace string
}

// NewClient 创建 Lmstfy 客户端
func NewClient(cfg config.LmstfyConfig) (*Client, error) {
	if cfg.Host == "" || cfg.Namespace == "" {
		return nil, fmt.Errorf("lmstfy host and namespace are required")
	}
	return &Client{
		cli:       client.NewLmstfyClient(cfg.Host, cfg.Port, cfg.Namespace, cfg.Token),
		namespace: cfg.Namespace,
	}, nil
}

// Namespace 当前命名空间
func (c *Client) Namespace() string {
	return c.namespace
}

// Consume 消费消息；超时未拉到消息时返回 (nil, nil)
func (c *Client) Consume(queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	job, err := c.cli.Consume(queue, uint32(ttr.Seconds()), uint32(timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	return &framework.Message{
		ID:    job.ID,
		Queue: job.Queue,
		Data:  job.Data,
	}, nil
}

// Ack 确认消息（删除消息）
func (c *Client) Ack(queue string, jobID string) error {
	if err := c.cli.Ack(queue, jobID); err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}

// Publish 发布消息，ttl=0 永不过期
func (c *Client) Publish(queue string, data []byte, ttl, delay uint32) error {
	if _, err := c.cli.Publish(queue, data, ttl, publishTries, delay); err != nil {
		return fmt.Errorf("lmstfy publish to %s failed: %w", queue, err)
	}
	return nil
}
