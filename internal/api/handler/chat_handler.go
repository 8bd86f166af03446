package handler

import (
	"WhatsInbox/internal/api/dto"
	"WhatsInbox/internal/pkg/response"
	"WhatsInbox/internal/service"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatSvc service.ChatService
}

func NewChatHandler(chatSvc service.ChatService) *ChatHandler {
	return &ChatHandler{chatSvc: chatSvc}
}

// ListConversations 会话列表
func (s *ChatHandler) ListConversations(c *gin.Context) {
	list, err := s.chatSvc.ListConversations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

// ListMessages 分页获取会话消息，同时标记已读
func (s *ChatHandler) ListMessages(c *gin.Context) {
	var req dto.MessagePageReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	list, err := s.chatSvc.ListMessages(c.Request.Context(), c.Param("wa_id"), req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
