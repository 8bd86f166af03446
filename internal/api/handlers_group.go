package api

import "WhatsInbox/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	WebhookHandler *handler.WebhookHandler
	ChatHandler    *handler.ChatHandler
	MessageHandler *handler.MessageHandler
	WsHandler      *handler.WsHandler
}
