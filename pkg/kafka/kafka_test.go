package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	topic, key, body string
}

func (e testEvent) Topic() string          { return e.topic }
func (e testEvent) Key() string            { return e.key }
func (e testEvent) Value() ([]byte, error) { return []byte(e.body), nil }

type badEvent struct{ testEvent }

func (badEvent) Value() ([]byte, error) { return nil, errors.New("boom") }

func TestProducer_SendAndStats(t *testing.T) {
	ap := mocks.NewAsyncProducer(t, sarama.NewConfig())
	ap.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		if string(val) != `{"a":1}` {
			return errors.New("unexpected payload " + string(val))
		}
		return nil
	})
	ap.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	p := newProducer(ap, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, p.Send(ctx, testEvent{"analytics.scores", "S1", `{"a":1}`}))
	require.NoError(t, p.SendRaw(ctx, "analytics.alerts", "S1", []byte("x")))
	require.Error(t, p.Send(ctx, badEvent{}))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	stats := p.Stats()
	require.Equal(t, int64(2), stats.SentCount)
	require.Equal(t, int64(1), stats.ErrorCount)

	require.ErrorIs(t, p.Send(ctx, testEvent{"t", "k", "v"}), ErrProducerClosed)
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"k1:9092"})
	sc := cfg.saramaConfig()
	require.Equal(t, sarama.WaitForLocal, sc.Producer.RequiredAcks)
	require.Equal(t, sarama.CompressionSnappy, sc.Producer.Compression)
	require.Equal(t, "strategy-analytics", sc.ClientID)
	require.True(t, sc.Producer.Return.Errors)

	cfg.RequiredAcks = -1
	cfg.Compression = "zstd"
	sc = cfg.saramaConfig()
	require.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	require.Equal(t, sarama.CompressionZSTD, sc.Producer.Compression)
}

// =============================================================================
// groupHandler
// =============================================================================

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32                        { return nil }
func (s *fakeSession) MemberID() string                                  { return "m1" }
func (s *fakeSession) GenerationID() int32                               { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)           {}
func (s *fakeSession) Commit()                                           {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)          {}
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) { s.marked = append(s.marked, msg.Offset) }
func (s *fakeSession) Context() context.Context                          { return s.ctx }

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "analytics.batch.ready" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

func TestGroupHandler_MarksEvenOnFailure(t *testing.T) {
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 3)}
	for i := int64(0); i < 3; i++ {
		claim.ch <- &sarama.ConsumerMessage{Topic: "analytics.batch.ready", Offset: i, Value: []byte{byte('a' + i)}}
	}
	close(claim.ch)

	var seen []string
	h := &groupHandler{
		handler: func(_ context.Context, msg *sarama.ConsumerMessage) error {
			seen = append(seen, string(msg.Value))
			if msg.Offset == 1 {
				return errors.New("bad batch")
			}
			return nil
		},
		log: zerolog.Nop(),
	}

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, h.ConsumeClaim(session, claim))
	require.Equal(t, []string{"a", "b", "c"}, seen)
	require.Equal(t, []int64{0, 1, 2}, session.marked)
}

func TestGroupHandler_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage)}
	h := &groupHandler{handler: func(context.Context, *sarama.ConsumerMessage) error { return nil }, log: zerolog.Nop()}
	require.NoError(t, h.ConsumeClaim(&fakeSession{ctx: ctx}, claim))
}

func TestGroupHandler_MarksAfterHandlerReturns(t *testing.T) {
	claim := &fakeClaim{ch: make(chan *sarama.ConsumerMessage, 2)}
	claim.ch <- &sarama.ConsumerMessage{Offset: 7}
	claim.ch <- &sarama.ConsumerMessage{Offset: 8}
	close(claim.ch)

	session := &fakeSession{ctx: context.Background()}
	var markedBefore []int
	h := &groupHandler{
		handler: func(context.Context, *sarama.ConsumerMessage) error {
			markedBefore = append(markedBefore, len(session.marked))
			return nil
		},
		log: zerolog.Nop(),
	}

	require.NoError(t, h.ConsumeClaim(session, claim))
	require.Equal(t, []int{0, 1}, markedBefore)
	require.Equal(t, []int64{7, 8}, session.marked)
}
