// 文件: pkg/nats/subscriber.go
// NATS 订阅者 (结算数据就绪通知)

package nats

import (
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// MessageHandler 消息处理函数
type MessageHandler func(subject string, data []byte) error

// Subscriber NATS 订阅者
type Subscriber struct {
	conn    *nats.Conn
	subs    []*nats.Subscription
	handler MessageHandler
	log     zerolog.Logger

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// drainTimeout 关闭时等待进行中回调的上限
var drainTimeout = 5 * time.Minute

// NewSubscriber 连接 NATS
func NewSubscriber(url string, handler MessageHandler, log zerolog.Logger, opts ...nats.Option) (*Subscriber, error) {
	closed := make(chan struct{})
	opts = append(defaultOptions("strategy-analytics-sub"), opts...)
	opts = append(opts,
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Subscriber{
		conn:    conn,
		handler: handler,
		log:     log.With().Str("component", "nats-subscriber").Logger(),
		closed:  closed,
	}, nil
}

// Subscribe 普通订阅，每个实例都收到全部消息
func (s *Subscriber) Subscribe(subjects ...string) error {
	for _, subject := range subjects {
		sub, err := s.conn.Subscribe(subject, s.dispatch)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		s.subs = append(s.subs, sub)
	}
	return nil
}

// SubscribeQueue 队列订阅，同组实例之间负载均衡
func (s *Subscriber) SubscribeQueue(subject, queue string) error {
	sub, err := s.conn.QueueSubscribe(subject, queue, s.dispatch)
	if err != nil {
		return fmt.Errorf("queue subscribe %s: %w", subject, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) dispatch(msg *nats.Msg) {
	if err := s.handler(msg.Subject, msg.Data); err != nil {
		s.log.Error().Err(err).Str("subject", msg.Subject).Msg("handle message failed")
	}
}

// Close 退订并等待进行中的回调执行完再关闭连接
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() {
		if err := s.conn.Drain(); err != nil {
			s.closeErr = fmt.Errorf("drain nats: %w", err)
			s.conn.Close()
		}
		<-s.closed
	})
	return s.closeErr
}
