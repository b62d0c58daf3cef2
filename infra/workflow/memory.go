package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amirasaad/deposit/pkg/workflow"
)

// HandlerFunc consumes an envelope pushed to the in-memory dispatcher.
type HandlerFunc func(ctx context.Context, env workflow.Envelope) error

// MemoryDispatcher keeps pushed envelopes in process. It serves development
// setups and tests.
type MemoryDispatcher struct {
	mu       sync.RWMutex
	handlers []HandlerFunc
	pushed   []workflow.Envelope
	logger   *slog.Logger
}

// NewWithMemory creates an in-memory dispatcher.
func NewWithMemory(logger *slog.Logger) *MemoryDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryDispatcher{
		logger: logger.With("dispatcher", "memory"),
	}
}

// Register adds a handler invoked synchronously on every push.
func (d *MemoryDispatcher) Register(handler HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler)
}

// Push implements workflow.Dispatcher. A failing handler fails the push.
func (d *MemoryDispatcher) Push(ctx context.Context, payload string, paymentID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := workflow.NewEnvelope(payload, paymentID, time.Now())

	d.mu.Lock()
	d.pushed = append(d.pushed, env)
	handlers := append([]HandlerFunc(nil), d.handlers...)
	d.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, env); err != nil {
			d.logger.Error("workflow handler failed", "payment_id", paymentID, "error", err)
			return err
		}
	}
	d.logger.Debug("workflow event pushed", "payment_id", paymentID, "id", env.ID)
	return nil
}

// Pushed returns a copy of everything pushed so far.
func (d *MemoryDispatcher) Pushed() []workflow.Envelope {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]workflow.Envelope(nil), d.pushed...)
}

// ClearPushed forgets recorded envelopes.
func (d *MemoryDispatcher) ClearPushed() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pushed = nil
}

// Close implements io.Closer.
func (d *MemoryDispatcher) Close() error { return nil }
