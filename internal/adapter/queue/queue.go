package queue

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/internal/ports"
	"github.com/seu-repo/handover-engine/pkg/config"
)

// New connects the broker selected by cfg.Driver.
func New(cfg config.QueueConfig, log *zap.Logger) (ports.MessageQueue, error) {
	switch cfg.Driver {
	case "nats":
		return NewNATSQueue(cfg.NATS, log)
	case "rabbitmq":
		return NewRabbitMQQueue(cfg.RabbitMQ, log)
	case "kafka":
		return NewKafkaQueue(cfg.Kafka, log)
	case "memory", "none", "":
		return NewMemoryQueue(log), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
