package repository

import (
	"WhatsInbox/internal/model"
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
)

// MessageRepo 消息存储，会话视图由其聚合得出
type MessageRepo interface {
	UpsertIfAbsent(ctx context.Context, msg *model.Message) (*model.Message, bool, error)
	FindByEitherID(ctx context.Context, messageID, metaMessageID string) (*model.Message, error)
	UpdateStatus(ctx context.Context, msg *model.Message, status model.Status) error
	QueryByConversation(ctx context.Context, waID string, page, pageSize int) ([]*model.Message, error)
	MarkIncomingAsRead(ctx context.Context, waID string) (int64, error)
	AggregateConversations(ctx context.Context) ([]*model.Conversation, error)
	PruneRawPayloads(ctx context.Context, before time.Time) (int64, error)
}

type messageRepoImpl struct {
	db *gorm.DB
}

// NewMessageRepo 基于 GORM 的实现，db 需开启 TranslateError 以识别重复键
func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepoImpl{db: db}
}

// UpsertIfAbsent 依赖 message_id 唯一索引保证幂等，重复键视为已存在
func (s *messageRepoImpl) UpsertIfAbsent(ctx context.Context, msg *model.Message) (*model.Message, bool, error) {
	err := s.db.WithContext(ctx).Create(msg).Error
	if err == nil {
		return msg, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, WrapStorage("insert message", err)
	}

	var existing model.Message
	if err = s.db.WithContext(ctx).Where("message_id = ?", msg.MessageID).First(&existing).Error; err != nil {
		return nil, false, WrapStorage("load existing message", err)
	}
	return &existing, false, nil
}

// FindByEitherID 按 message_id 或 meta_message_id 查找，空 id 不参与匹配
func (s *messageRepoImpl) FindByEitherID(ctx context.Context, messageID, metaMessageID string) (*model.Message, error) {
	if messageID == "" && metaMessageID == "" {
		return nil, ErrMessageNotFound
	}

	query := s.db.WithContext(ctx).Model(&model.Message{})
	switch {
	case messageID != "" && metaMessageID != "":
		query = query.Where("message_id = ? OR meta_message_id = ?", messageID, metaMessageID)
	case messageID != "":
		query = query.Where("message_id = ?", messageID)
	default:
		query = query.Where("meta_message_id = ?", metaMessageID)
	}

	var msg model.Message
	err := query.Order("id ASC").First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, WrapStorage("find message", err)
	}
	return &msg, nil
}

// UpdateStatus 覆盖写状态，不做时间先后校验
func (s *messageRepoImpl) UpdateStatus(ctx context.Context, msg *model.Message, status model.Status) error {
	now := time.Now()
	err := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("message_id = ?", msg.MessageID).
		Updates(map[string]any{"status": status, "updated_at": now}).Error
	if err != nil {
		return WrapStorage("update status", err)
	}
	msg.Status = status
	msg.UpdatedAt = now
	return nil
}

// QueryByConversation 按发生时间升序分页，pageSize <= 0 时返回全部
func (s *messageRepoImpl) QueryByConversation(ctx context.Context, waID string, page, pageSize int) ([]*model.Message, error) {
	query := s.db.WithContext(ctx).
		Omit("raw_payload").
		Where("wa_id = ?", waID).
		Order("occurred_at ASC").Order("id ASC")
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	messages := make([]*model.Message, 0)
	if err := query.Find(&messages).Error; err != nil {
		return nil, WrapStorage("query conversation", err)
	}
	return messages, nil
}

// MarkIncomingAsRead 批量将会话内未读的入站消息置为已读
func (s *messageRepoImpl) MarkIncomingAsRead(ctx context.Context, waID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("wa_id = ? AND direction = ? AND status <> ?", waID, model.DirectionIncoming, model.StatusRead).
		Updates(map[string]any{"status": model.StatusRead, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, WrapStorage("mark read", res.Error)
	}
	return res.RowsAffected, nil
}

// conversationStat 窗口函数聚合结果，最后一条消息的明细另行加载
type conversationStat struct {
	WaID          string
	LastID        uint64
	ContactName   string
	UnreadCount   int64
	TotalMessages int64
}

const conversationStatSQL = `
SELECT wa_id, last_id, contact_name, unread_count, total_messages FROM (
	SELECT
		wa_id,
		FIRST_VALUE(id) OVER (PARTITION BY wa_id ORDER BY occurred_at DESC, id DESC) AS last_id,
		FIRST_VALUE(contact_name) OVER (PARTITION BY wa_id ORDER BY occurred_at ASC, id ASC) AS contact_name,
		SUM(CASE WHEN direction = 'incoming' AND status <> 'read' THEN 1 ELSE 0 END) OVER (PARTITION BY wa_id) AS unread_count,
		COUNT(*) OVER (PARTITION BY wa_id) AS total_messages,
		ROW_NUMBER() OVER (PARTITION BY wa_id ORDER BY id ASC) AS rn
	FROM messages
) t WHERE t.rn = 1`

// AggregateConversations 按 wa_id 聚合会话摘要，最后消息时间倒序
func (s *messageRepoImpl) AggregateConversations(ctx context.Context) ([]*model.Conversation, error) {
	var stats []conversationStat
	if err := s.db.WithContext(ctx).Raw(conversationStatSQL).Scan(&stats).Error; err != nil {
		return nil, WrapStorage("aggregate conversations", err)
	}
	if len(stats) == 0 {
		return []*model.Conversation{}, nil
	}

	lastIDs := make([]uint64, 0, len(stats))
	for _, st := range stats {
		lastIDs = append(lastIDs, st.LastID)
	}
	var lasts []*model.Message
	if err := s.db.WithContext(ctx).Omit("raw_payload").Where("id IN ?", lastIDs).Find(&lasts).Error; err != nil {
		return nil, WrapStorage("load last messages", err)
	}
	lastByID := make(map[uint64]*model.Message, len(lasts))
	for _, m := range lasts {
		lastByID[m.ID] = m
	}

	res := make([]*model.Conversation, 0, len(stats))
	for _, st := range stats {
		last, ok := lastByID[st.LastID]
		if !ok {
			continue
		}
		res = append(res, &model.Conversation{
			WaID:              st.WaID,
			ContactName:       st.ContactName,
			LastMessage:       last.Content,
			LastMessageTime:   last.OccurredAt,
			LastMessageStatus: last.Status,
			UnreadCount:       st.UnreadCount,
			TotalMessages:     st.TotalMessages,
		})
	}
	SortConversations(res)
	return res, nil
}

// PruneRawPayloads 清空早于 before 的原始报文，消息本身保留
func (s *messageRepoImpl) PruneRawPayloads(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("created_at < ? AND raw_payload IS NOT NULL", before).
		Update("raw_payload", gorm.Expr("NULL"))
	if res.Error != nil {
		return 0, WrapStorage("prune raw payloads", res.Error)
	}
	return res.RowsAffected, nil
}

// SortConversations 最后消息时间倒序，同一时间按 wa_id 升序
func SortConversations(list []*model.Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].LastMessageTime.Equal(list[j].LastMessageTime) {
			return list[i].LastMessageTime.After(list[j].LastMessageTime)
		}
		return list[i].WaID < list[j].WaID
	})
}
