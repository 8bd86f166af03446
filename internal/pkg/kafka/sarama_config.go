package kafka

import (
	"WhatsInbox/internal/api/config"
	"time"

	"github.com/IBM/sarama"
)

const clientID = "whatsapp-inbox"

// newSaramaConfig 手动提交位点；新消费组从最早位点开始，重放由幂等写入吸收
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()
	c.ClientID = clientID

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	c.Consumer.Offsets.AutoCommit.Enable = false
	c.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}

	consumer := kafkaCfg.Consumer
	c.Consumer.Group.Session.Timeout = seconds(consumer.SessionTimeout, c.Consumer.Group.Session.Timeout)
	c.Consumer.Group.Heartbeat.Interval = seconds(consumer.HeartbeatInterval, c.Consumer.Group.Heartbeat.Interval)
	c.Consumer.Group.Rebalance.Timeout = seconds(consumer.RebalanceTimeout, c.Consumer.Group.Rebalance.Timeout)
	c.Consumer.MaxProcessingTime = seconds(consumer.MaxProcessingTime, c.Consumer.MaxProcessingTime)

	return c
}

// seconds 未配置时沿用 sarama 默认值
func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
