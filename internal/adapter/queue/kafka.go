package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/seu-repo/handover-engine/pkg/config"
)

const kafkaWriteTimeout = 5 * time.Second

// KafkaQueue maps subjects to topics. Subscribers join cfg.GroupID, so
// replicas of the service share a topic's partitions.
type KafkaQueue struct {
	writer  *kafka.Writer
	brokers []string
	groupID string

	mu      sync.Mutex
	readers []*kafka.Reader
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	log     *zap.Logger
}

func NewKafkaQueue(cfg config.KafkaConfig, log *zap.Logger) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &KafkaQueue{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
		brokers: cfg.Brokers,
		groupID: cfg.GroupID,
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}

	log.Info("Kafka producer configured", zap.Strings("brokers", cfg.Brokers))
	return q, nil
}

func (q *KafkaQueue) Publish(subject string, data []byte) error {
	ctx, cancel := context.WithTimeout(q.ctx, kafkaWriteTimeout)
	defer cancel()
	if err := q.writer.WriteMessages(ctx, kafka.Message{Topic: subject, Value: data}); err != nil {
		return fmt.Errorf("kafka: publish: %w", err)
	}
	return nil
}

func (q *KafkaQueue) Subscribe(subject string, handler func(data []byte) error) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  q.brokers,
		Topic:    subject,
		GroupID:  q.groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	q.mu.Lock()
	q.readers = append(q.readers, r)
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			msg, err := r.ReadMessage(q.ctx)
			if err != nil {
				if q.ctx.Err() != nil {
					return
				}
				q.log.Error("Kafka read failed", zap.String("topic", subject), zap.Error(err))
				continue
			}
			if err := handler(msg.Value); err != nil {
				q.log.Error("Error processing Kafka message",
					zap.String("topic", subject),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}()

	q.log.Info("Subscribed to Kafka topic", zap.String("topic", subject), zap.String("group", q.groupID))
	return nil
}

// Ping dials the first reachable broker.
func (q *KafkaQueue) Ping() error {
	ctx, cancel := context.WithTimeout(q.ctx, 2*time.Second)
	defer cancel()

	var lastErr error
	for _, broker := range q.brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		conn.Close()
		return nil
	}
	return fmt.Errorf("kafka: no broker reachable: %w", lastErr)
}

func (q *KafkaQueue) Close() error {
	q.cancel()

	q.mu.Lock()
	readers := q.readers
	q.readers = nil
	q.mu.Unlock()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	q.wg.Wait()
	if err := q.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
