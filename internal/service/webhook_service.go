package service

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/pkg/webhook"
	"WhatsInbox/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

type WebhookService interface {
	Ingest(ctx context.Context, raw []byte) (*dto.IngestResult, error)
}

type webhookServiceImpl struct {
	messageRepo   repository.MessageRepo
	publisher     EventPublisher
	businessPhone string
	now           func() time.Time
}

func NewWebhookService(messageRepo repository.MessageRepo, publisher EventPublisher, businessPhone string) WebhookService {
	return &webhookServiceImpl{
		messageRepo:   messageRepo,
		publisher:     publisher,
		businessPhone: businessPhone,
		now:           time.Now,
	}
}

// Ingest 先落库全部新消息，再按顺序应用状态变更
// 同一批次内状态可以引用本批次新建的消息
func (s *webhookServiceImpl) Ingest(ctx context.Context, raw []byte) (*dto.IngestResult, error) {
	batch, err := webhook.Normalize(raw)
	if err != nil {
		log.WarnContext(ctx, "webhook payload rejected", "err", err)
		return nil, err
	}

	// 顶层已确认为对象，原样保留用于审计
	var payload map[string]any
	_ = json.Unmarshal(raw, &payload)

	res := &dto.IngestResult{Skipped: batch.Dropped}
	receivedAt := s.now().UTC()

	statuses := make([]webhook.UpdateStatus, 0)
	for _, intent := range batch.Intents {
		switch v := intent.(type) {
		case webhook.UpsertMessage:
			s.applyMessage(ctx, v, payload, receivedAt, res)
		case webhook.UpdateStatus:
			statuses = append(statuses, v)
		}
	}
	for _, st := range statuses {
		s.applyStatus(ctx, st, receivedAt, res)
	}

	log.InfoContext(ctx, "webhook processed",
		"created", res.Created,
		"status_updates", res.StatusUpdates,
		"skipped", res.Skipped,
		"failed", res.Failed,
	)

	if res.Failed > 0 {
		return res, fmt.Errorf("%w: %d webhook item(s) not applied", ErrStorage, res.Failed)
	}
	return res, nil
}

func (s *webhookServiceImpl) applyMessage(ctx context.Context, in webhook.UpsertMessage, payload map[string]any, receivedAt time.Time, res *dto.IngestResult) {
	direction := model.DirectionIncoming
	waID := in.From
	if in.From == s.businessPhone {
		direction = model.DirectionOutgoing
		waID = in.To
	}
	if waID == "" {
		log.WarnContext(ctx, "webhook message skipped: no counterpart", "message_id", in.ProviderID, "direction", direction)
		res.Skipped++
		return
	}

	contactName := in.ContactNameHint
	if contactName == "" {
		contactName = waID
	}

	msg := &model.Message{
		MessageID:     in.ProviderID,
		MetaMessageID: in.MetaID,
		WaID:          waID,
		ContactName:   contactName,
		Content:       in.Body,
		Type:          in.MediaType,
		Direction:     direction,
		Status:        model.StatusSent,
		OccurredAt:    epochOr(in.OccurredAtEpochSeconds, receivedAt),
		BusinessPhone: s.businessPhone,
		RawPayload:    payload,
	}

	stored, inserted, err := s.messageRepo.UpsertIfAbsent(ctx, msg)
	if err != nil {
		log.ErrorContext(ctx, "webhook message store failed", "message_id", in.ProviderID, "err", err)
		res.Failed++
		return
	}
	if !inserted {
		log.DebugContext(ctx, "webhook message duplicate", "message_id", in.ProviderID)
		res.Skipped++
		return
	}

	res.Created++
	publishCreated(s.publisher, stored)
}

func (s *webhookServiceImpl) applyStatus(ctx context.Context, in webhook.UpdateStatus, receivedAt time.Time, res *dto.IngestResult) {
	msg, err := s.messageRepo.FindByEitherID(ctx, in.ProviderID, in.MetaID)
	if errors.Is(err, repository.ErrMessageNotFound) {
		log.InfoContext(ctx, "status for unknown message skipped", "id", in.ProviderID, "meta_msg_id", in.MetaID, "status", in.NewStatus)
		res.Skipped++
		return
	}
	if err != nil {
		log.ErrorContext(ctx, "status lookup failed", "id", in.ProviderID, "err", err)
		res.Failed++
		return
	}

	if err = s.messageRepo.UpdateStatus(ctx, msg, in.NewStatus); err != nil {
		log.ErrorContext(ctx, "status update failed", "message_id", msg.MessageID, "err", err)
		res.Failed++
		return
	}

	res.StatusUpdates++
	publishStatus(s.publisher, msg, epochOr(in.OccurredAtEpochSeconds, receivedAt))
}

// epochOr 秒级时间戳无效时使用 fallback
func epochOr(sec int64, fallback time.Time) time.Time {
	if sec <= 0 {
		return fallback
	}
	return time.Unix(sec, 0).UTC()
}
