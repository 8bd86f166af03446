package logger

import (
	"WhatsInbox/internal/api/config"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupGin 访问日志与 Logstash 同格式，便于按 trace_id 关联
func SetupGin(r *gin.Engine, cfg config.LogstashConfig) {
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output: LogWriter,
		SkipPaths: []string{
			"/api/health",
		},
		Formatter: func(p gin.LogFormatterParams) string {
			var traceID string
			if p.Keys != nil {
				if id, ok := p.Keys[TraceIDKey].(string); ok {
					traceID = id
				}
			}

			if traceID == "" && p.Request != nil {
				traceID = TraceID(p.Request.Context())
			}

			return fmt.Sprintf(
				`{"time":"%s","level":"INFO","msg":"GIN_ACCESS","trace_id":"%s","log_token":"%s","target_index":"%s","method":"%s","path":"%s","status":%d,"latency":"%v"}`+"\n",
				p.TimeStamp.Format(time.RFC3339),
				traceID,
				cfg.Token,
				cfg.Index,
				p.Method,
				p.Path,
				p.StatusCode,
				p.Latency,
			)
		},
	}))

	r.Use(gin.Recovery())
}
