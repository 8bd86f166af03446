package redis

import (
	"WhatsInbox/internal/pkg/consts"
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter 固定窗口计数器
type WindowCounter struct {
	rdb redis.Cmdable
}

func NewWindowCounter(rdb redis.Cmdable) *WindowCounter {
	return &WindowCounter{rdb: rdb}
}

// Incr 计数并返回当前窗口内的累计值，窗口起点按 window 对齐
func (s *WindowCounter) Incr(ctx context.Context, subject string, window time.Duration) (int64, error) {
	slot := time.Now().UnixNano() / int64(window)
	key := consts.RateLimitKey + subject + ":" + strconv.FormatInt(slot, 10)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
