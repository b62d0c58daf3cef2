package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/deposit/pkg/config"
	"github.com/amirasaad/deposit/pkg/workflow"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDispatcher publishes envelopes to a Kafka topic, keyed by payment ID
// so that events of one payment keep their order within a partition.
type KafkaDispatcher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewWithKafka creates a Kafka-backed dispatcher.
func NewWithKafka(cfg *config.Kafka, logger *slog.Logger) (*KafkaDispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("kafka dispatcher: config is required")
	}
	brokers := parseBrokers(cfg.Brokers)
	if len(brokers) == 0 || strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("kafka dispatcher: brokers and topic are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  cfg.Topic,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
	}
	return newKafkaDispatcher(writer, cfg.Topic, logger), nil
}

func newKafkaDispatcher(w messageWriter, topic string, logger *slog.Logger) *KafkaDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaDispatcher{
		writer: w,
		topic:  topic,
		logger: logger.With("dispatcher", "kafka", "topic", topic),
	}
}

// Push implements workflow.Dispatcher. It returns once the brokers
// acknowledged the write.
func (d *KafkaDispatcher) Push(ctx context.Context, payload string, paymentID int64) error {
	env := workflow.NewEnvelope(payload, paymentID, time.Now())
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka dispatcher: envelope marshal failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(paymentID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(env.Type)},
		},
	}
	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		d.logger.Error("failed to push workflow event", "payment_id", paymentID, "error", err)
		return fmt.Errorf("kafka dispatcher: push failed: %w", err)
	}
	d.logger.Debug("workflow event pushed", "payment_id", paymentID, "id", env.ID)
	return nil
}

// Close flushes and closes the writer.
func (d *KafkaDispatcher) Close() error {
	return d.writer.Close()
}

func parseBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
