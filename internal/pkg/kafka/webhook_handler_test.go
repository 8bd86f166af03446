package kafka

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/pkg/logger"
	"WhatsInbox/internal/pkg/webhook"
	"WhatsInbox/internal/service"
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIngester struct {
	calls atomic.Int32
	fn    func(n int32) (*dto.IngestResult, error)
}

func (s *stubIngester) Ingest(_ context.Context, _ []byte) (*dto.IngestResult, error) {
	return s.fn(s.calls.Add(1))
}

func TestLogicAcknowledgesMalformedPayload(t *testing.T) {
	stub := &stubIngester{fn: func(int32) (*dto.IngestResult, error) {
		return nil, errors.Join(webhook.ErrMalformedPayload, errors.New("eof"))
	}}
	h := NewWebhookHandler(stub)

	err := h.logic(context.Background(), &sarama.ConsumerMessage{Topic: "whatsapp.webhook", Value: []byte("{")})
	assert.NoError(t, err)
}

func TestLogicPropagatesStorageError(t *testing.T) {
	stub := &stubIngester{fn: func(int32) (*dto.IngestResult, error) {
		return &dto.IngestResult{Failed: 1}, fmt.Errorf("%w: 1 webhook item(s) not applied", service.ErrStorage)
	}}
	h := NewWebhookHandler(stub)

	err := h.logic(context.Background(), &sarama.ConsumerMessage{Value: []byte("{}")})
	assert.ErrorIs(t, err, service.ErrStorage)
}

func TestRetryWithBackoffUntilSuccess(t *testing.T) {
	var seenTrace string
	attempts := 0
	logic := func(ctx context.Context, _ *sarama.ConsumerMessage) error {
		attempts++
		seenTrace = logger.TraceID(ctx)
		if attempts < 3 {
			return errors.New("temporary")
		}
		return nil
	}

	start := time.Now()
	retryWithBackoff(context.Background(), &sarama.ConsumerMessage{Topic: "t", Partition: 1, Offset: 7}, logic)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "kafka-t-1-7", seenTrace)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestRetryWithBackoffStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		retryWithBackoff(ctx, &sarama.ConsumerMessage{}, func(context.Context, *sarama.ConsumerMessage) error {
			calls++
			return errors.New("down")
		})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "retry loop did not stop")
	}
	assert.Equal(t, 1, calls)
}

func TestNextRetryIntervalIsCapped(t *testing.T) {
	assert.Equal(t, 200*time.Millisecond, nextRetryInterval(100*time.Millisecond))
	assert.Equal(t, maxRetryInterval, nextRetryInterval(4*time.Second))
}

func TestNewSaramaConfig(t *testing.T) {
	c := newSaramaConfig(config.KafkaConfig{
		Consumer: config.ConsumerConfig{SessionTimeout: 10, HeartbeatInterval: 0},
	})
	assert.Equal(t, 10*time.Second, c.Consumer.Group.Session.Timeout)
	assert.Equal(t, 3*time.Second, c.Consumer.Group.Heartbeat.Interval)
	assert.Equal(t, sarama.OffsetOldest, c.Consumer.Offsets.Initial)
	assert.False(t, c.Consumer.Offsets.AutoCommit.Enable)
	assert.NoError(t, c.Validate())
}
