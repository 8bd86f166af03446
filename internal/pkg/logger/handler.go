package logger

import (
	"context"
	log "log/slog"
)

// RemoteFilterHandler 只上报带 trace_id 的日志；无 trace 的后台日志达到 Error 级别时也上报
type RemoteFilterHandler struct {
	next          log.Handler
	untracedLevel log.Level
}

func NewRemoteFilterHandler(next log.Handler) *RemoteFilterHandler {
	return &RemoteFilterHandler{next: next, untracedLevel: log.LevelError}
}

func (s *RemoteFilterHandler) Enabled(ctx context.Context, level log.Level) bool {
	return s.next.Enabled(ctx, level)
}

func (s *RemoteFilterHandler) Handle(ctx context.Context, r log.Record) error {
	if r.Level >= s.untracedLevel || hasTraceID(r) {
		return s.next.Handle(ctx, r)
	}
	return nil
}

func (s *RemoteFilterHandler) WithAttrs(attrs []log.Attr) log.Handler {
	return &RemoteFilterHandler{next: s.next.WithAttrs(attrs), untracedLevel: s.untracedLevel}
}

func (s *RemoteFilterHandler) WithGroup(name string) log.Handler {
	return &RemoteFilterHandler{next: s.next.WithGroup(name), untracedLevel: s.untracedLevel}
}

func hasTraceID(r log.Record) bool {
	found := false
	r.Attrs(func(a log.Attr) bool {
		if a.Key == TraceIDKey && a.Value.String() != "" {
			found = true
			return false
		}
		return true
	})
	return found
}
