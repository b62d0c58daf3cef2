// Package initializer builds the application dependencies from configuration.
package initializer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/deposit/infra"
	"github.com/amirasaad/deposit/infra/migrations"
	infra_repository "github.com/amirasaad/deposit/infra/repository"
	"github.com/amirasaad/deposit/infra/repository/boltstore"
	infra_workflow "github.com/amirasaad/deposit/infra/workflow"
	"github.com/amirasaad/deposit/pkg/app"
	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/config"
	repo "github.com/amirasaad/deposit/pkg/repository/payment"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// InitializeDependencies initializes all the application dependencies. The
// caller releases them with Deps.Close.
func InitializeDependencies(cfg *config.App) (deps *app.Deps, err error) {
	logger := SetupLogger(cfg.Log)
	deps = &app.Deps{Logger: logger}
	defer func() {
		if err != nil {
			deps.Close() //nolint:errcheck
			deps = nil
		}
	}()

	if cfg.Bambora == nil {
		return deps, fmt.Errorf("bambora configuration is required")
	}
	deps.Keys, err = bambora.ParseKeyRing(cfg.Bambora.Keys)
	if err != nil {
		return deps, fmt.Errorf("failed to parse callback keys: %w", err)
	}
	if len(deps.Keys) == 0 {
		logger.Warn("⚠️ No callback keys configured; every callback will be rejected")
	}

	var closer io.Closer
	deps.Repo, closer, err = initStore(cfg, logger)
	if err != nil {
		return deps, err
	}
	deps.Closers = append(deps.Closers, closer)

	dispatcher, err := infra_workflow.New(cfg.Workflow, logger)
	if err != nil {
		return deps, fmt.Errorf("failed to create workflow dispatcher: %w", err)
	}
	deps.Dispatcher = dispatcher
	deps.Closers = append(deps.Closers, dispatcher)

	deps.Sessions = bambora.NewClient(*cfg.Bambora, logger)

	logger.Info("✅ Dependencies initialized",
		"store", storeDriver(cfg),
		"workflow", cfg.Workflow.Driver,
		"groups", len(deps.Keys),
	)
	return deps, nil
}

func storeDriver(cfg *config.App) string {
	if cfg.Store == nil || cfg.Store.Driver == "" {
		return "postgres"
	}
	return cfg.Store.Driver
}

// initStore opens the payment store selected by cfg.Store.Driver.
func initStore(cfg *config.App, logger *slog.Logger) (repo.Repository, io.Closer, error) {
	switch storeDriver(cfg) {
	case "bolt":
		s, err := boltstore.New(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		return s, s, nil
	case "postgres":
		db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
		if err != nil {
			logger.Error("Failed to initialize database", "error", err)
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store == nil || cfg.Store.AutoMigrate {
			if err := migrations.Up(sqlDB); err != nil {
				sqlDB.Close() //nolint:errcheck
				return nil, nil, err
			}
			logger.Info("✅ Database schema is up to date")
		}
		return infra_repository.NewPaymentRepository(db), closerFunc(sqlDB.Close), nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}
