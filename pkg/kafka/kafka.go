package kafka

import (
	"time"

	"rideshare/pkg/config"

	"github.com/segmentio/kafka-go"
)

// NewWriter returns a writer for the configured notification topic. Messages
// with the same key land on the same partition.
func NewWriter(cfg *config.Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}
