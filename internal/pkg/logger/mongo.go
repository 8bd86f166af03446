package logger

import (
	"context"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

const mongoSlowThreshold = 200 * time.Millisecond

// 写命令携带完整 webhook 报文，不输出明细
var mongoPayloadCommands = map[string]struct{}{
	"insert":        {},
	"update":        {},
	"findAndModify": {},
}

// NewMongoMonitor 命令明细只在 debug 级别输出，慢命令与失败始终记录
func NewMongoMonitor() *event.CommandMonitor {
	return &event.CommandMonitor{
		Started: func(ctx context.Context, evt *event.CommandStartedEvent) {
			if !log.Default().Enabled(ctx, log.LevelDebug) {
				return
			}
			detail := "[payload omitted]"
			if _, ok := mongoPayloadCommands[evt.CommandName]; !ok {
				detail = truncate([]byte(evt.Command.String()))
			}
			log.DebugContext(ctx, "MongoDB Started",
				log.String("command", evt.CommandName),
				log.String("database", evt.DatabaseName),
				log.Int64("request_id", evt.RequestID),
				log.String("cmd_detail", detail),
			)
		},
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			if evt.Duration <= mongoSlowThreshold {
				return
			}
			log.WarnContext(ctx, "MongoDB Slow",
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.Int64("request_id", evt.RequestID),
			)
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			log.ErrorContext(ctx, "MongoDB Error",
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.Int64("request_id", evt.RequestID),
				log.Any("err", evt.Failure),
			)
		},
	}
}
