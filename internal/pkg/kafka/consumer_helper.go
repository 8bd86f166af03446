package kafka

import (
	"WhatsInbox/internal/pkg/logger"
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

const (
	batchSize        = 32
	batchTimeout     = 1 * time.Second
	minRetryInterval = 100 * time.Millisecond
	maxRetryInterval = 5 * time.Second
)

type LogicFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

// pullMessageBatch 攒批拉取消息，满批或超时后处理
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic LogicFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 并发处理一批消息，全部成功后提交最后一条的位点
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic LogicFunc) {
	var wg sync.WaitGroup

	for _, msg := range messages {
		wg.Add(1)

		go func(m *sarama.ConsumerMessage) {
			defer wg.Done()
			retryWithBackoff(session.Context(), m, logic)
		}(msg)
	}

	wg.Wait()

	if session.Context().Err() != nil {
		return
	}
	lastMsg := messages[len(messages)-1]
	session.MarkMessage(lastMsg, "")
	session.Commit()
}

// retryWithBackoff 失败后指数退避重试，直到成功或 ctx 结束
func retryWithBackoff(ctx context.Context, m *sarama.ConsumerMessage, logic LogicFunc) {
	msgCtx := logger.WithTraceID(ctx, messageTraceID(m))
	retryInterval := minRetryInterval

	for {
		err := logic(msgCtx, m)
		if err == nil {
			return
		}

		log.ErrorContext(msgCtx, "process message error", "topic", m.Topic, "offset", m.Offset, "err", err, "retry_in", retryInterval)
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryInterval):
		}

		retryInterval = nextRetryInterval(retryInterval)
	}
}

func nextRetryInterval(cur time.Duration) time.Duration {
	cur *= 2
	if cur > maxRetryInterval {
		return maxRetryInterval
	}
	return cur
}

func messageTraceID(m *sarama.ConsumerMessage) string {
	return fmt.Sprintf("kafka-%s-%d-%d", m.Topic, m.Partition, m.Offset)
}
