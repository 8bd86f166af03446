package wire

import (
	"WhatsInbox/internal/api"
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/api/handler"
	"WhatsInbox/internal/api/middleware"
	"WhatsInbox/internal/job"
	"WhatsInbox/internal/pkg/broadcast"
	"WhatsInbox/internal/pkg/cron"
	"WhatsInbox/internal/pkg/database"
	"WhatsInbox/internal/pkg/kafka"
	"WhatsInbox/internal/pkg/mongo"
	"WhatsInbox/internal/pkg/redis"
	"WhatsInbox/internal/repository"
	"WhatsInbox/internal/service"
	log "log/slog"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	Hub          *broadcast.Hub
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager
}

// BuildMessageRepo 按 store.driver 选择存储后端
func BuildMessageRepo(cfg *config.Config) (repository.MessageRepo, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMySQL:
		db, err := database.NewGormDB(&cfg.DB)
		if err != nil {
			return nil, err
		}
		return repository.NewMessageRepo(db), nil
	default:
		db, err := mongo.InitMongo(cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return mongo.NewMessageRepo(db), nil
	}
}

// BuildApplication rdb 为 nil 时关闭限流
func BuildApplication(cfg *config.Config, messageRepo repository.MessageRepo, rdb *goredis.Client) (*ApplicationContainer, error) {
	hub := broadcast.NewHub()

	webhookService := service.NewWebhookService(messageRepo, hub, cfg.Business.Phone)
	chatService := service.NewChatService(messageRepo, hub, cfg.Business)

	handlers := &api.HandlersGroup{
		WebhookHandler: handler.NewWebhookHandler(webhookService),
		ChatHandler:    handler.NewChatHandler(chatService),
		MessageHandler: handler.NewMessageHandler(chatService),
		WsHandler:      handler.NewWsHandler(hub, cfg.Server.FrontendURL),
	}

	var limiter middleware.WindowCounter
	if rdb != nil {
		limiter = redis.NewWindowCounter(rdb)
	} else {
		log.Warn("Redis not configured, rate limiting disabled")
	}

	router := api.SetupRouter(cfg, handlers, limiter)

	retentionJob := job.NewRawPayloadRetentionJob(messageRepo, cfg.Retention.RawPayloadDays)
	cronMgr := cron.NewCronManager(cfg.Retention.Schedule, retentionJob)

	app := &ApplicationContainer{
		Router:  router,
		Hub:     hub,
		CronMgr: cronMgr,
	}

	if cfg.Kafka.Enable {
		kafkaMgr, err := kafka.NewConsumerManager(cfg, webhookService)
		if err != nil {
			return nil, err
		}
		app.KafkaManager = kafkaMgr
	}

	return app, nil
}
