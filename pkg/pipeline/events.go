// 文件: pkg/pipeline/events.go
// 分析结果事件
//
// ScoresComputed 和 BehaviorAlert 实现 kafka.Message 接口，
// 走 NATS 时 Topic() 即 subject

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"strategyscope.com/pkg/behavior"
	"strategyscope.com/pkg/kafka"
	"strategyscope.com/pkg/metrics"
	"strategyscope.com/pkg/nats"
)

// Topics 事件 topic / subject
type Topics struct {
	Scores string
	Alerts string
}

// =============================================================================
// 事件
// =============================================================================

// ScoresComputed 一次运行的全部评分
type ScoresComputed struct {
	topic string

	RunID       int64                         `json:"run_id"`
	LatestDate  string                        `json:"latest_date"`
	GeneratedAt string                        `json:"generated_at"`
	Scores      []*metrics.PerformanceMetrics `json:"scores"`
}

func (e *ScoresComputed) Topic() string { return e.topic }

// Key 按运行分区
func (e *ScoresComputed) Key() string { return strconv.FormatInt(e.RunID, 10) }

func (e *ScoresComputed) Value() ([]byte, error) { return json.Marshal(e) }

// BehaviorAlert 一条行为预警
type BehaviorAlert struct {
	topic string

	EventID int64          `json:"event_id"`
	RunID   int64          `json:"run_id"`
	Alert   behavior.Alert `json:"alert"`
}

func (e *BehaviorAlert) Topic() string { return e.topic }

// Key 按策略分区，同一策略的预警保持顺序
func (e *BehaviorAlert) Key() string { return e.Alert.StrategyCode }

func (e *BehaviorAlert) Value() ([]byte, error) { return json.Marshal(e) }

// =============================================================================
// 发布
// =============================================================================

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
}

// KafkaPublisher 通过 Kafka 发布
func KafkaPublisher(p *kafka.Producer) Publisher {
	return &kafkaPublisher{producer: p}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	return p.producer.Send(ctx, msg)
}

type natsPublisher struct {
	publisher *nats.Publisher
}

// NATSPublisher 通过 NATS 发布
func NATSPublisher(p *nats.Publisher) Publisher {
	return &natsPublisher{publisher: p}
}

func (p *natsPublisher) Publish(_ context.Context, msg kafka.Message) error {
	data, err := msg.Value()
	if err != nil {
		return fmt.Errorf("serialize message: %w", err)
	}
	return p.publisher.PublishRaw(msg.Topic(), data)
}

// =============================================================================
// EventSink
// =============================================================================

// EventSink 发送一条 ScoresComputed，每条预警一条 BehaviorAlert
type EventSink struct {
	pub    Publisher
	topics Topics
}

func NewEventSink(pub Publisher, topics Topics) *EventSink {
	return &EventSink{pub: pub, topics: topics}
}

func (s *EventSink) Name() string { return "events" }

func (s *EventSink) Write(ctx context.Context, r *Result) error {
	scores := &ScoresComputed{
		topic:       s.topics.Scores,
		RunID:       r.RunID,
		LatestDate:  r.Batch.LatestDate(),
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		Scores:      r.Scores,
	}
	if err := s.pub.Publish(ctx, scores); err != nil {
		return fmt.Errorf("publish scores: %w", err)
	}

	for _, rec := range r.Records {
		ev := &BehaviorAlert{
			topic:   s.topics.Alerts,
			EventID: rec.EventID,
			RunID:   rec.RunID,
			Alert:   rec.Alert,
		}
		if err := s.pub.Publish(ctx, ev); err != nil {
			return fmt.Errorf("publish alert %d: %w", rec.EventID, err)
		}
	}
	return nil
}
