package handler

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/pkg/response"
	"WhatsInbox/internal/service"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	chatSvc service.ChatService
}

func NewMessageHandler(chatSvc service.ChatService) *MessageHandler {
	return &MessageHandler{chatSvc: chatSvc}
}

// GetConversationMessages 会话全部消息
func (s *MessageHandler) GetConversationMessages(c *gin.Context) {
	list, err := s.chatSvc.GetConversationMessages(c.Request.Context(), c.Param("wa_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// SendMessage 本地发送消息
func (s *MessageHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	msg, err := s.chatSvc.SendMessage(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}
