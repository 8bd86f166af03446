package config

import "time"

const (
	StoreDriverMongo = "mongo"
	StoreDriverMySQL = "mysql"
)

// Config 配置主体
type Config struct {
	Server               ServerConfig         `mapstructure:"server"`
	Business             BusinessConfig       `mapstructure:"business"`
	Store                StoreConfig          `mapstructure:"store"`
	Mongo                MongoConfig          `mapstructure:"mongo"`
	DB                   DBConfig             `mapstructure:"database"`
	Redis                RedisConfig          `mapstructure:"redis"`
	RateLimit            RateLimitConfig      `mapstructure:"rate_limit"`
	Retention            RetentionConfig      `mapstructure:"retention"`
	Kafka                KafkaConfig          `mapstructure:"kafka"`
	KafkaWebhookConsumer KafkaWebhookConsumer `mapstructure:"kafka_webhook_consumer"`
	Logstash             LogstashConfig       `mapstructure:"logstash"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	FrontendURL string `mapstructure:"frontend_url"`
}

// BusinessConfig 业务号码配置，用于推断消息方向
type BusinessConfig struct {
	Phone           string `mapstructure:"phone"`
	DeliveryDelayMs int    `mapstructure:"delivery_delay_ms"`
}

// DeliveryDelay 本地发送消息模拟送达的延迟
func (c BusinessConfig) DeliveryDelay() time.Duration {
	return time.Duration(c.DeliveryDelayMs) * time.Millisecond
}

// StoreConfig 消息存储后端
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Enabled 未配置地址时不启用 Redis
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// RetentionConfig 原始报文保留策略，RawPayloadDays 为 0 时不清理
type RetentionConfig struct {
	RawPayloadDays int    `mapstructure:"raw_payload_days"`
	Schedule       string `mapstructure:"schedule"`
}

type KafkaConfig struct {
	Enable   bool           `mapstructure:"enable"`
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaWebhookConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}
