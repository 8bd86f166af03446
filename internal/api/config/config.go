package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg，环境变量优先于文件
func LoadConfig() error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	cfg, err := load(v)
	if err != nil {
		return err
	}
	Cfg = cfg

	return nil
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Business.Phone == "" {
		return nil, errors.New("business.phone must not be empty")
	}
	switch cfg.Store.Driver {
	case StoreDriverMongo, StoreDriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 6002)
	v.SetDefault("server.frontend_url", "http://localhost:5173")

	v.SetDefault("business.phone", "918329446654")
	v.SetDefault("business.delivery_delay_ms", 1000)

	v.SetDefault("store.driver", StoreDriverMongo)

	v.SetDefault("mongo.url", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "whatsapp")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_idle", 10)
	v.SetDefault("database.max_open", 50)
	v.SetDefault("database.max_lifetime", 30)

	// 未设置默认值的键不会被 AutomaticEnv 识别
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("rate_limit.window_seconds", 15*60)
	v.SetDefault("rate_limit.max_requests", 100)

	v.SetDefault("retention.raw_payload_days", 0)
	v.SetDefault("retention.schedule", "0 30 3 * * *")

	v.SetDefault("kafka.enable", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.sasl.enable", false)
	v.SetDefault("kafka.sasl.username", "")
	v.SetDefault("kafka.sasl.password", "")
	v.SetDefault("kafka.consumer.session_timeout", 10)
	v.SetDefault("kafka.consumer.heartbeat_interval", 3)
	v.SetDefault("kafka.consumer.rebalance_timeout", 60)
	v.SetDefault("kafka.consumer.max_processing_time", 30)
	v.SetDefault("kafka_webhook_consumer.topic", "whatsapp.webhook")
	v.SetDefault("kafka_webhook_consumer.group_id", "whatsapp-inbox")

	v.SetDefault("logstash.address", "")
	v.SetDefault("logstash.index", "logstash-whatsapp-inbox")
	v.SetDefault("logstash.token", "")
}
