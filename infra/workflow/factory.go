// Package workflow holds the workflow dispatcher drivers: in-memory, Redis
// Streams and Kafka.
package workflow

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/deposit/pkg/config"
	"github.com/amirasaad/deposit/pkg/workflow"
)

// Dispatcher is a workflow.Dispatcher that owns resources.
type Dispatcher interface {
	workflow.Dispatcher
	io.Closer
}

// New builds the dispatcher selected by cfg.Driver.
func New(cfg *config.Workflow, logger *slog.Logger) (Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("workflow config is required")
	}
	switch cfg.Driver {
	case "", "memory":
		return NewWithMemory(logger), nil
	case "redis":
		d, err := NewWithRedis(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	case "kafka":
		d, err := NewWithKafka(cfg.Kafka, logger)
		if err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported workflow driver %q", cfg.Driver)
	}
}
