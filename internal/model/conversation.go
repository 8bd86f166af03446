package model

import "time"

// Conversation 会话摘要，由消息按 wa_id 聚合得到，不落库
type Conversation struct {
	WaID              string    `bson:"_id" json:"wa_id"`
	ContactName       string    `bson:"contact_name" json:"contactName"`
	LastMessage       string    `bson:"last_message" json:"lastMessage"`
	LastMessageTime   time.Time `bson:"last_message_time" json:"lastMessageTime"`
	LastMessageStatus Status    `bson:"last_message_status" json:"lastMessageStatus"`
	UnreadCount       int64     `bson:"unread_count" json:"unreadCount"`
	TotalMessages     int64     `bson:"total_messages" json:"totalMessages"`
}
