package logger

import (
	"context"
	"errors"
	log "log/slog"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const gormSlowThreshold = 200 * time.Millisecond

// SlogGormLogger 写入语句内嵌完整 webhook 报文，SQL 统一截断后输出
type SlogGormLogger struct {
	LogLevel      logger.LogLevel
	SlowThreshold time.Duration
}

func NewGormLogger() *SlogGormLogger {
	return &SlogGormLogger{
		LogLevel:      logger.Warn,
		SlowThreshold: gormSlowThreshold,
	}
}

func (l *SlogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.LogLevel = level
	return &cp
}

func (l *SlogGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		log.InfoContext(ctx, msg, "data", data)
	}
}

func (l *SlogGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		log.WarnContext(ctx, msg, "data", data)
	}
}

func (l *SlogGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		log.ErrorContext(ctx, msg, "data", data)
	}
}

func (l *SlogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	msg := "SQL " + sqlOperation(sql)

	fields := []any{
		log.String("sql", truncate([]byte(sql))),
		log.Duration("latency", elapsed),
		log.Int64("rows", rows),
	}

	switch {
	// 重复键是幂等写入的正常信号
	case errors.Is(err, gorm.ErrDuplicatedKey):
		log.DebugContext(ctx, msg+" Duplicate", fields...)
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound):
		log.ErrorContext(ctx, msg+" Error", append(fields, log.Any("err", err))...)
	case l.SlowThreshold > 0 && elapsed > l.SlowThreshold:
		log.WarnContext(ctx, msg+" Slow", fields...)
	case l.LogLevel >= logger.Info:
		log.InfoContext(ctx, msg, fields...)
	}
}

// sqlOperation 语句首个关键字，如 INSERT、SELECT
func sqlOperation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "Query"
	}
	return strings.ToUpper(fields[0])
}
