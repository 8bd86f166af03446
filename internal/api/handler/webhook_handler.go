package handler

import (
	"WhatsInbox/internal/pkg/response"
	"WhatsInbox/internal/service"
	"io"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody 单次 webhook 报文上限
const maxWebhookBody = 10 << 20

type WebhookHandler struct {
	webhookSvc service.WebhookService
}

func NewWebhookHandler(webhookSvc service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// Process 接收 provider 推送的原始报文
func (s *WebhookHandler) Process(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.WarnContext(c.Request.Context(), "read webhook body failed", "err", err)
		response.Error(c, service.ErrParamInvalid)
		return
	}

	res, err := s.webhookSvc.Ingest(c.Request.Context(), raw)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
