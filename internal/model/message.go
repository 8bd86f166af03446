package model

import "time"

type MediaType string

const (
	MediaText     MediaType = "text"
	MediaImage    MediaType = "image"
	MediaDocument MediaType = "document"
	MediaAudio    MediaType = "audio"
	MediaVideo    MediaType = "video"
)

// ParseMediaType 非支持类型统一降级为 text
func ParseMediaType(s string) MediaType {
	switch t := MediaType(s); t {
	case MediaText, MediaImage, MediaDocument, MediaAudio, MediaVideo:
		return t
	default:
		return MediaText
	}
}

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// ParseStatus 解析 provider 上报的状态值
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return st, true
	default:
		return "", false
	}
}

// Message 消息明细，唯一持久化实体
type Message struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement" bson:"-" json:"-"`
	MessageID     string         `gorm:"type:varchar(191);uniqueIndex;not null" bson:"message_id" json:"messageId"`
	MetaMessageID string         `gorm:"type:varchar(191);index" bson:"meta_message_id,omitempty" json:"metaMessageId"`
	WaID          string         `gorm:"column:wa_id;type:varchar(64);not null;index:idx_wa_time,priority:1" bson:"wa_id" json:"wa_id"` // 会话键，对端号码
	ContactName   string         `gorm:"type:varchar(255);not null" bson:"contact_name" json:"contactName"`                           // 创建时快照，不随改名回写
	Content       string         `gorm:"type:text;not null" bson:"content" json:"content"`
	Type          MediaType      `gorm:"type:varchar(16);not null;default:text" bson:"type" json:"type"`
	Direction     Direction      `gorm:"type:varchar(16);not null" bson:"direction" json:"direction"`
	Status        Status         `gorm:"type:varchar(16);not null;default:sent" bson:"status" json:"status"`
	OccurredAt    time.Time      `gorm:"not null;index:idx_wa_time,priority:2" bson:"occurred_at" json:"timestamp"`
	BusinessPhone string         `gorm:"type:varchar(64)" bson:"business_phone" json:"businessPhone"`
	RawPayload    map[string]any `gorm:"serializer:json" bson:"raw_payload,omitempty" json:"-"` // 原始 webhook 报文，仅供审计
	CreatedAt     time.Time      `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `bson:"updated_at" json:"updatedAt"`
}

func (Message) TableName() string { return "messages" }
