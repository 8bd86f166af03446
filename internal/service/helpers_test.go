package service

import (
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/pkg/broadcast"
	"WhatsInbox/internal/repository"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const businessPhone = "918329446654"

func newTestRepo(t *testing.T) repository.MessageRepo {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Message{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return repository.NewMessageRepo(db)
}

// recordingPublisher 记录发布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Key   string
	Event broadcast.Event
}

func (p *recordingPublisher) Publish(key string, ev broadcast.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Key: key, Event: ev})
	return 1
}

func (p *recordingPublisher) snapshot() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

func (p *recordingPublisher) ofType(typ string) []publishedEvent {
	res := make([]publishedEvent, 0)
	for _, e := range p.snapshot() {
		if e.Event.Type == typ {
			res = append(res, e)
		}
	}
	return res
}

// flakyRepo 对指定 message_id 的写入返回存储错误
type flakyRepo struct {
	repository.MessageRepo
	failInsert map[string]bool
	failLookup bool
}

func (r *flakyRepo) UpsertIfAbsent(ctx context.Context, msg *model.Message) (*model.Message, bool, error) {
	if r.failInsert[msg.MessageID] {
		return nil, false, repository.WrapStorage("insert message", fmt.Errorf("connection reset"))
	}
	return r.MessageRepo.UpsertIfAbsent(ctx, msg)
}

func (r *flakyRepo) FindByEitherID(ctx context.Context, messageID, metaMessageID string) (*model.Message, error) {
	if r.failLookup {
		return nil, repository.WrapStorage("find message", fmt.Errorf("connection reset"))
	}
	return r.MessageRepo.FindByEitherID(ctx, messageID, metaMessageID)
}

// collidingRepo 前 collisions 次写入报告 id 已存在
type collidingRepo struct {
	repository.MessageRepo
	collisions int
	calls      int
}

func (r *collidingRepo) UpsertIfAbsent(ctx context.Context, msg *model.Message) (*model.Message, bool, error) {
	r.calls++
	if r.calls <= r.collisions {
		existing := *msg
		existing.Content = "earlier message"
		return &existing, false, nil
	}
	return r.MessageRepo.UpsertIfAbsent(ctx, msg)
}

// messagePayload 构造单条消息的 webhook 报文
func messagePayload(id, from, to, body string, ts int64) []byte {
	toField := ""
	if to != "" {
		toField = fmt.Sprintf(`"to":%q,`, to)
	}
	return []byte(fmt.Sprintf(`{"metaData":{"entry":[{"changes":[{"field":"messages","value":{
		"contacts":[{"profile":{"name":"Ravi Kumar"},"wa_id":"919937320320"}],
		"messages":[{"id":%q,"from":%q,%s"timestamp":"%d","type":"text","text":{"body":%q}}]
	}}]}]}}`, id, from, toField, ts, body))
}

// statusPayload 构造单条状态变更的 webhook 报文
func statusPayload(id, metaID, status string, ts int64) []byte {
	return []byte(fmt.Sprintf(`{"metaData":{"entry":[{"changes":[{"field":"messages","value":{
		"statuses":[{"id":%q,"meta_msg_id":%q,"status":%q,"timestamp":"%d"}]
	}}]}]}}`, id, metaID, status, ts))
}
