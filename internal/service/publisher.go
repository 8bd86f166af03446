package service

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/model"
	"WhatsInbox/internal/pkg/broadcast"
	"time"

	"github.com/jinzhu/copier"
)

// EventPublisher 领域事件出口，按会话键投递
type EventPublisher interface {
	Publish(key string, ev broadcast.Event) int
}

func toMessageDTO(m *model.Message) *dto.MessageDTO {
	d := &dto.MessageDTO{}
	_ = copier.Copy(d, m)
	return d
}

func toMessageDTOs(list []*model.Message) []*dto.MessageDTO {
	res := make([]*dto.MessageDTO, 0, len(list))
	for _, m := range list {
		res = append(res, toMessageDTO(m))
	}
	return res
}

func publishCreated(p EventPublisher, m *model.Message) {
	p.Publish(m.WaID, broadcast.Event{
		Type: broadcast.EventNewMessage,
		Data: toMessageDTO(m),
	})
}

func publishStatus(p EventPublisher, m *model.Message, at time.Time) {
	p.Publish(m.WaID, broadcast.Event{
		Type: broadcast.EventStatusUpdate,
		Data: &dto.StatusUpdateDTO{
			MessageID: m.MessageID,
			Status:    m.Status,
			Timestamp: at,
		},
	})
}
