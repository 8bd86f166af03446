package logger

import (
	"context"
	log "log/slog"
)

type traceKey string

// TraceIDKey gin.Context 与日志字段共用的键名
const TraceIDKey = "trace_id"

const traceCtxKey traceKey = TraceIDKey

// WithTraceID 将 trace_id 写入 ctx，后续日志自动携带
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceCtxKey, traceID)
}

// TraceID 读取 ctx 中的 trace_id
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceCtxKey).(string)
	return id
}

// ContextHandler 从 ctx 中提取 trace_id
type ContextHandler struct {
	log.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r log.Record) error {
	if traceID := TraceID(ctx); traceID != "" {
		r.AddAttrs(log.String(TraceIDKey, traceID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &ContextHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) log.Handler {
	return &ContextHandler{h.Handler.WithGroup(name)}
}
