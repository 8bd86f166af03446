package api

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/api/handler"
	"WhatsInbox/internal/api/middleware"
	"WhatsInbox/internal/pkg/logger"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRouter limiter 为 nil 时不限流
func SetupRouter(cfg *config.Config, group *HandlersGroup, limiter middleware.WindowCounter) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.Server.FrontendURL))
	logger.SetupGin(r, cfg.Logstash)

	rateLimit := middleware.RateLimitMiddleware(
		limiter,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		cfg.RateLimit.MaxRequests,
	)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", handler.Health)
		apiGroup.GET("/ws", group.WsHandler.Connect)

		// provider 推送不限流
		apiGroup.POST("/webhook/process", group.WebhookHandler.Process)

		chatGroup := apiGroup.Group("/chats")
		chatGroup.Use(rateLimit)
		{
			chatGroup.GET("/conversations", group.ChatHandler.ListConversations)
			chatGroup.GET("/conversations/:wa_id/messages", group.ChatHandler.ListMessages)
		}

		messageGroup := apiGroup.Group("/messages")
		messageGroup.Use(rateLimit)
		{
			messageGroup.POST("/send", group.MessageHandler.SendMessage)
			messageGroup.GET("/:wa_id", group.MessageHandler.GetConversationMessages)
		}
	}

	return r
}
