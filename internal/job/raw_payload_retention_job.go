package job

import (
	"WhatsInbox/internal/pkg/logger"
	"WhatsInbox/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const retentionJobTimeout = 5 * time.Minute

// RawPayloadRetentionJob 定期清理过期的原始 webhook 报文
type RawPayloadRetentionJob struct {
	messageRepo repository.MessageRepo
	days        int
	now         func() time.Time
}

func NewRawPayloadRetentionJob(messageRepo repository.MessageRepo, days int) *RawPayloadRetentionJob {
	return &RawPayloadRetentionJob{
		messageRepo: messageRepo,
		days:        days,
		now:         time.Now,
	}
}

func (s *RawPayloadRetentionJob) Run() {
	if s.days <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(logger.WithTraceID(context.Background(), "job-retention-"+uuid.NewString()), retentionJobTimeout)
	defer cancel()

	before := s.now().UTC().AddDate(0, 0, -s.days)
	log.InfoContext(ctx, "start raw payload retention job", "before", before)

	n, err := s.messageRepo.PruneRawPayloads(ctx, before)
	if err != nil {
		log.ErrorContext(ctx, "prune raw payloads error", "err", err)
		return
	}
	log.InfoContext(ctx, "raw payload retention job finished", "pruned", n)
}
