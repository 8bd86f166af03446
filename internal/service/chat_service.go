package service

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/pkg/consts"
	"WhatsInbox/internal/pkg/util"
	"WhatsInbox/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
)

type ChatService interface {
	ListConversations(ctx context.Context) ([]*dto.ConversationDTO, error)
	ListMessages(ctx context.Context, waID string, page, limit int) ([]*dto.MessageDTO, error)
	GetConversationMessages(ctx context.Context, waID string) ([]*dto.MessageDTO, error)
	SendMessage(ctx context.Context, req *dto.SendMessageReq) (*dto.MessageDTO, error)
}

const outboundIDAttempts = 3

type chatServiceImpl struct {
	messageRepo   repository.MessageRepo
	publisher     EventPublisher
	businessPhone string
	deliveryDelay time.Duration
}

func NewChatService(messageRepo repository.MessageRepo, publisher EventPublisher, cfg config.BusinessConfig) ChatService {
	return &chatServiceImpl{
		messageRepo:   messageRepo,
		publisher:     publisher,
		businessPhone: cfg.Phone,
		deliveryDelay: cfg.DeliveryDelay(),
	}
}

// ListConversations 每次请求都从消息表重新聚合
func (s *chatServiceImpl) ListConversations(ctx context.Context) ([]*dto.ConversationDTO, error) {
	list, err := s.messageRepo.AggregateConversations(ctx)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ConversationDTO, 0, len(list))
	for _, c := range list {
		d := &dto.ConversationDTO{}
		_ = copier.Copy(d, c)
		res = append(res, d)
	}
	return res, nil
}

// ListMessages 返回分页消息后将会话内的入站消息标记为已读
// 返回结果保留标记前的状态
func (s *chatServiceImpl) ListMessages(ctx context.Context, waID string, page, limit int) ([]*dto.MessageDTO, error) {
	if waID == "" || page < 0 || limit < 0 || limit > consts.MaxPageSize {
		return nil, ErrParamInvalid
	}
	if page == 0 {
		page = consts.DefaultPage
	}
	if limit == 0 {
		limit = consts.DefaultPageSize
	}

	list, err := s.messageRepo.QueryByConversation(ctx, waID, page, limit)
	if err != nil {
		return nil, err
	}

	marked, err := s.messageRepo.MarkIncomingAsRead(ctx, waID)
	if err != nil {
		return nil, err
	}
	if marked > 0 {
		log.InfoContext(ctx, "conversation marked as read", "wa_id", waID, "count", marked)
	}

	return toMessageDTOs(list), nil
}

// GetConversationMessages 会话全部消息，无已读副作用
func (s *chatServiceImpl) GetConversationMessages(ctx context.Context, waID string) ([]*dto.MessageDTO, error) {
	if waID == "" {
		return nil, ErrParamInvalid
	}
	list, err := s.messageRepo.QueryByConversation(ctx, waID, 1, 0)
	if err != nil {
		return nil, err
	}
	return toMessageDTOs(list), nil
}

// SendMessage 本地创建出站消息，延迟后模拟送达
func (s *chatServiceImpl) SendMessage(ctx context.Context, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	req.WaID = strings.TrimSpace(req.WaID)
	req.Content = strings.TrimSpace(req.Content)
	if err := util.ValidateDTO(req); err != nil {
		log.WarnContext(ctx, "send message rejected", "err", err)
		return nil, ErrParamInvalid
	}

	contactName := req.ContactName
	if contactName == "" {
		contactName = req.WaID
	}

	now := time.Now().UTC()
	var (
		stored   *model.Message
		inserted bool
		err      error
	)
	// id 冲突时重新生成，已存在的消息不重复推送
	for attempt := 0; attempt < outboundIDAttempts && !inserted; attempt++ {
		messageID := newOutboundID(now)
		stored, inserted, err = s.messageRepo.UpsertIfAbsent(ctx, &model.Message{
			MessageID:     messageID,
			MetaMessageID: messageID,
			WaID:          req.WaID,
			ContactName:   contactName,
			Content:       req.Content,
			Type:          model.MediaText,
			Direction:     model.DirectionOutgoing,
			Status:        model.StatusSent,
			OccurredAt:    now,
			BusinessPhone: s.businessPhone,
		})
		if err != nil {
			return nil, err
		}
	}
	if !inserted {
		log.ErrorContext(ctx, "outbound message id collision", "wa_id", req.WaID)
		return nil, fmt.Errorf("%w: outbound message id collision", ErrStorage)
	}
	messageID := stored.MessageID

	publishCreated(s.publisher, stored)
	log.InfoContext(ctx, "outbound message stored", "message_id", messageID, "wa_id", req.WaID)

	time.AfterFunc(s.deliveryDelay, func() {
		s.markDelivered(messageID)
	})

	return toMessageDTO(stored), nil
}

// markDelivered 进程退出时未触发的回调直接丢弃
func (s *chatServiceImpl) markDelivered(messageID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg, err := s.messageRepo.FindByEitherID(ctx, messageID, "")
	if err != nil {
		log.ErrorContext(ctx, "delivered update lookup failed", "message_id", messageID, "err", err)
		return
	}
	if err = s.messageRepo.UpdateStatus(ctx, msg, model.StatusDelivered); err != nil {
		log.ErrorContext(ctx, "delivered update failed", "message_id", messageID, "err", err)
		return
	}
	publishStatus(s.publisher, msg, time.Now().UTC())
}

// newOutboundID wamid.<毫秒时间戳>.<随机串>
func newOutboundID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	return fmt.Sprintf("%s%d.%s", consts.OutboundIDPrefix, now.UnixMilli(), random)
}
