package dto

import (
	"WhatsInbox/internal/model"
	"time"
)

// MessageDTO 消息明细响应，不包含原始报文
type MessageDTO struct {
	MessageID     string          `json:"messageId"`
	MetaMessageID string          `json:"metaMessageId"`
	WaID          string          `json:"wa_id"`
	ContactName   string          `json:"contactName"`
	Content       string          `json:"content"`
	Type          model.MediaType `json:"type"`
	Direction     model.Direction `json:"direction"`
	Status        model.Status    `json:"status"`
	OccurredAt    time.Time       `json:"timestamp"`
	BusinessPhone string          `json:"businessPhone"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ConversationDTO 会话列表项
type ConversationDTO struct {
	WaID              string       `json:"wa_id"`
	ContactName       string       `json:"contactName"`
	LastMessage       string       `json:"lastMessage"`
	LastMessageTime   time.Time    `json:"lastMessageTime"`
	LastMessageStatus model.Status `json:"lastMessageStatus"`
	UnreadCount       int64        `json:"unreadCount"`
	TotalMessages     int64        `json:"totalMessages"`
}

// MessagePageReq 会话消息分页参数
type MessagePageReq struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	WaID        string `json:"wa_id" binding:"required" validate:"required"`
	Content     string `json:"content" binding:"required" validate:"required"`
	ContactName string `json:"contactName"`
}

// StatusUpdateDTO 状态变更推送
type StatusUpdateDTO struct {
	MessageID string       `json:"messageId"`
	Status    model.Status `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
}
