// 文件: pkg/nats/publisher.go
// NATS 事件发布者
// Kafka 的轻量替代，本地开发和单机部署用

package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Publisher NATS 发布者
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher 连接 NATS
func NewPublisher(url string, opts ...nats.Option) (*Publisher, error) {
	conn, err := nats.Connect(url, append(defaultOptions("strategy-analytics-pub"), opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// Publish 序列化为 JSON 后发布
func (p *Publisher) Publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}
	return p.PublishRaw(subject, data)
}

// PublishRaw 发布原始字节
func (p *Publisher) PublishRaw(subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Flush 等待服务端确认已收到缓冲区内的消息
func (p *Publisher) Flush(ctx context.Context) error {
	return p.conn.FlushWithContext(ctx)
}

// Close 刷出缓冲区后关闭连接
func (p *Publisher) Close() error {
	return p.conn.Drain()
}

func defaultOptions(name string) []nats.Option {
	return []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
	}
}
