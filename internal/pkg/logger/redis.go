package logger

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSlowThreshold = 100 * time.Millisecond

// RedisLoggerHook 只记录失败与慢命令，限流计数的正常路径不输出
type RedisLoggerHook struct {
	SlowThreshold time.Duration
}

func NewRedisLogger() *RedisLoggerHook {
	return &RedisLoggerHook{SlowThreshold: redisSlowThreshold}
}

func (s *RedisLoggerHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		if err != nil {
			log.ErrorContext(ctx, "Redis Dial Error",
				log.String("addr", addr),
				log.Duration("latency", time.Since(start)),
				log.Any("err", err),
			)
		}
		return conn, err
	}
}

func (s *RedisLoggerHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		s.report(ctx, "Redis", cmd.Name(), cmdArgs(cmd), time.Since(start), err)
		return err
	}
}

// ProcessPipelineHook 限流计数走 MULTI/INCR/EXPIRE 事务管道
func (s *RedisLoggerHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)

		names := make([]string, 0, len(cmds))
		for _, c := range cmds {
			names = append(names, c.Name())
		}
		s.report(ctx, "Redis Pipeline", strings.Join(names, ","), fmt.Sprintf("%d cmds", len(cmds)), time.Since(start), err)
		return err
	}
}

func (s *RedisLoggerHook) report(ctx context.Context, prefix, command, args string, elapsed time.Duration, err error) {
	fields := []any{
		log.String("command", command),
		log.String("args", args),
		log.Duration("latency", elapsed),
	}

	switch {
	case err != nil && !ignorableRedisErr(command, err):
		log.ErrorContext(ctx, prefix+" Error", append(fields, log.Any("err", err))...)
	case err == nil && s.SlowThreshold > 0 && elapsed > s.SlowThreshold:
		log.WarnContext(ctx, prefix+" Slow", fields...)
	}
}

func cmdArgs(cmd redis.Cmder) string {
	switch cmd.Name() {
	case "auth", "hello":
		return "[PROTECTED]"
	}
	return fmt.Sprint(cmd.Args())
}

// ignorableRedisErr 未命中与旧版本 server 不支持 CLIENT SETINFO 属于正常情况
func ignorableRedisErr(command string, err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	return command == "client" && strings.Contains(err.Error(), "setinfo")
}
