package ioc

import (
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"
)

// InitKafkaWriter 未配置 brokers 时返回 nil
func InitKafkaWriter() *kafka.Writer {
	type Config struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	}

	cfg := Config{Topic: "trading.decisions"}
	if err := viper.UnmarshalKey("kafka", &cfg); err != nil {
		panic(err)
	}
	if len(cfg.Brokers) == 0 {
		return nil
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}
