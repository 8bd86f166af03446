package kafka

import (
	"WhatsInbox/internal/api/config"
	"WhatsInbox/internal/service"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理 Kafka 消费者
type ConsumerManager struct {
	webhookConsumer sarama.ConsumerGroup
	webhookHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, webhookSvc service.WebhookService) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	webhookConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaWebhookConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		webhookConsumer: webhookConsumer,
		webhookHandler:  NewWebhookHandler(webhookSvc),
	}, nil
}

// Start 阻塞直到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		for err := range m.webhookConsumer.Errors() {
			log.Error("Kafka consumer error", "err", err)
		}
	}()

	go func() {
		topic := cfg.KafkaWebhookConsumer.Topic
		log.Info("Webhook consumer started", "topic", topic)
		for {
			if err := m.webhookConsumer.Consume(ctx, []string{topic}, m.webhookHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.webhookConsumer.Close(); err != nil {
		log.Error("Failed to close webhook consumer", "err", err)
	}

	return nil
}
