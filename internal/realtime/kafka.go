package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig configures the order event mirror.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MessageWriter is the subset of *kafka.Writer used by the forwarder.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter builds a writer that hashes message keys so every event of
// one order lands on the same partition.
func NewKafkaWriter(cfg KafkaConfig, logger *zap.Logger) *kafka.Writer {
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Sugar().Errorf(msg, args...)
		}),
	}
}

// Forwarder mirrors the operator topic to Kafka.
type Forwarder struct {
	b      *Broadcaster
	writer MessageWriter
	logger *zap.Logger
}

func NewForwarder(b *Broadcaster, w MessageWriter, logger *zap.Logger) *Forwarder {
	return &Forwarder{b: b, writer: w, logger: logger.Named("kafka_forwarder")}
}

// Run consumes events until ctx is done or the broadcaster closes. Write failures are logged and the
// event is skipped. If the forwarder falls behind and is evicted it
// resubscribes, losing the dropped events.
func (f *Forwarder) Run(ctx context.Context) error {
	defer func() {
		if err := f.writer.Close(); err != nil {
			f.logger.Warn("Failed to close kafka writer", zap.Error(err))
		}
	}()

	for {
		sub := f.b.Subscribe(TopicOrders)
		err := f.consume(ctx, sub)
		sub.Close()
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrClosed):
			f.logger.Info("Broadcaster closed, forwarder stopping")
			return nil
		case errors.Is(err, ErrSlowConsumer):
			f.logger.Warn("Forwarder fell behind, resubscribing")
		default:
			return err
		}
	}
}

func (f *Forwarder) consume(ctx context.Context, sub *Subscription) error {
	for {
		ev, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		value, err := json.Marshal(ev)
		if err != nil {
			f.logger.Error("Failed to encode event", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}
		msg := kafka.Message{
			Key:   []byte(ev.OrderKey()),
			Value: value,
			Time:  ev.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(ev.Type)},
			},
		}
		if err := f.writer.WriteMessages(ctx, msg); err != nil {
			f.logger.Error("Failed to publish event",
				zap.String("event_id", ev.ID),
				zap.String("order_id", ev.OrderKey()),
				zap.Error(err))
		}
	}
}
