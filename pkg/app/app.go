// Package app assembles the deposit services from their dependencies.
package app

import (
	"errors"
	"io"
	"log/slog"

	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/config"
	repo "github.com/amirasaad/deposit/pkg/repository/payment"
	"github.com/amirasaad/deposit/pkg/service/deposit"
	"github.com/amirasaad/deposit/pkg/workflow"
)

// Deps contains the infrastructure the services are built from.
type Deps struct {
	Repo       repo.Repository
	Dispatcher workflow.Dispatcher
	Sessions   deposit.SessionInitiator
	Keys       bambora.KeyRing
	Logger     *slog.Logger
	// Closers are released in reverse order by Close.
	Closers []io.Closer
}

// Close releases every resource the dependencies hold.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.Closers) - 1; i >= 0; i-- {
		if err := d.Closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.Closers = nil
	return errors.Join(errs...)
}

type App struct {
	Deps           *Deps
	Config         *config.App
	DepositService *deposit.Service
	Reconciler     *deposit.Reconciler
}

func New(deps *Deps, cfg *config.App) *App {
	var limits deposit.Limits
	if cfg.Deposit != nil {
		limits = deposit.StaticLimits{Min: cfg.Deposit.MinAmount, Max: cfg.Deposit.MaxAmount}
	}
	var opts deposit.SessionOptions
	if cfg.Bambora != nil {
		opts = deposit.SessionOptions{
			AcceptURL:  cfg.Bambora.AcceptURL,
			CancelURL:  cfg.Bambora.CancelURL,
			Language:   cfg.Bambora.Language,
			SourceType: cfg.Bambora.SourceType,
		}
	}
	return &App{
		Deps:           deps,
		Config:         cfg,
		DepositService: deposit.New(deps.Repo, deps.Sessions, deps.Keys, limits, opts, deps.Logger),
		Reconciler:     deposit.NewReconciler(deps.Repo, deps.Dispatcher, deps.Keys, deps.Logger),
	}
}
