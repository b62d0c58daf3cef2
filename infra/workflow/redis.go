package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/amirasaad/deposit/pkg/config"
	"github.com/amirasaad/deposit/pkg/workflow"
	"github.com/redis/go-redis/v9"
)

// envelopeField is the stream entry field holding the JSON envelope.
const envelopeField = "envelope"

// RedisDispatcher appends envelopes to a Redis stream.
type RedisDispatcher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewWithRedis connects to Redis and verifies the connection.
func NewWithRedis(cfg *config.Redis, logger *slog.Logger) (*RedisDispatcher, error) {
	if cfg == nil || cfg.URL == "" || cfg.Stream == "" {
		return nil, fmt.Errorf("redis dispatcher: url and stream are required")
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis dispatcher: invalid URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, fmt.Errorf("redis dispatcher: connection failed: %w", err)
	}
	return newRedisDispatcher(client, cfg.Stream, logger), nil
}

func newRedisDispatcher(client *redis.Client, stream string, logger *slog.Logger) *RedisDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisDispatcher{
		client: client,
		stream: stream,
		logger: logger.With("dispatcher", "redis", "stream", stream),
	}
}

// Push implements workflow.Dispatcher with XADD. Success means the entry is
// in the stream.
func (d *RedisDispatcher) Push(ctx context.Context, payload string, paymentID int64) error {
	env := workflow.NewEnvelope(payload, paymentID, time.Now())
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redis dispatcher: envelope marshal failed: %w", err)
	}

	id, err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.stream,
		Values: map[string]any{envelopeField: string(data)},
	}).Result()
	if err != nil {
		d.logger.Error("failed to push workflow event", "payment_id", paymentID, "error", err)
		return fmt.Errorf("redis dispatcher: push failed: %w", err)
	}
	d.logger.Debug("workflow event pushed", "payment_id", paymentID, "entry", id)
	return nil
}

// Read returns up to count envelopes from the start of the stream. It is a
// diagnostic helper; consumers use their own groups.
func (d *RedisDispatcher) Read(ctx context.Context, count int64) ([]workflow.Envelope, error) {
	msgs, err := d.client.XRangeN(ctx, d.stream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("redis dispatcher: read failed: %w", err)
	}
	out := make([]workflow.Envelope, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values[envelopeField].(string)
		if !ok {
			continue
		}
		var env workflow.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			d.logger.Warn("skipping malformed stream entry", "entry", msg.ID, "error", err)
			continue
		}
		out = append(out, env)
	}
	return out, nil
}

// Close releases the Redis connection pool.
func (d *RedisDispatcher) Close() error {
	return d.client.Close()
}
