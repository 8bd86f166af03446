package kafka

import (
	"WhatsInbox/internal/pkg/webhook"
	"WhatsInbox/internal/service"
	"context"
	"errors"
	log "log/slog"

	"github.com/IBM/sarama"
)

// WebhookHandler 消费网关缓冲的原始 webhook 报文
type WebhookHandler struct {
	webhookSvc service.WebhookService
}

func NewWebhookHandler(webhookSvc service.WebhookService) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
	}
}

func (s *WebhookHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("webhook consumer setup")
	return nil
}

func (s *WebhookHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("webhook consumer cleanup")
	return nil
}

func (s *WebhookHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("webhook consume claim", "topic", claim.Topic(), "partition", claim.Partition())
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("process batch error", "err", err)
		return err
	}
	log.Info("webhook consume claim end", "topic", claim.Topic(), "partition", claim.Partition())
	return nil
}

// logic 报文结构错误无法通过重试恢复，记录后直接确认
func (s *WebhookHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	res, err := s.webhookSvc.Ingest(ctx, msg.Value)
	if errors.Is(err, webhook.ErrMalformedPayload) {
		log.WarnContext(ctx, "malformed webhook dropped", "topic", msg.Topic, "offset", msg.Offset, "err", err)
		return nil
	}
	if err != nil {
		return err
	}
	log.DebugContext(ctx, "webhook consumed", "created", res.Created, "status_updates", res.StatusUpdates, "skipped", res.Skipped)
	return nil
}
