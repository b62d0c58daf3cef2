package infra

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/amirasaad/deposit/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var errNoDatabaseURL = errors.New("DATABASE_URL is not set")

// NewDBConnection opens the postgres handle behind the payment store.
// SQL statements are logged only in development.
func NewDBConnection(cfg *config.DB, appEnv string) (*gorm.DB, error) {
	if cfg == nil || cfg.Url == "" {
		return nil, errNoDatabaseURL
	}

	level := logger.Silent
	if appEnv == "development" {
		level = logger.Info
	}
	db, err := gorm.Open(postgres.Open(cfg.Url), &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("open payment store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("payment store handle: %w", err)
	}
	configurePool(sqlDB, cfg)
	return db, nil
}

// configurePool applies the pool limits of cfg; zero values keep the
// database/sql defaults.
func configurePool(sqlDB *sql.DB, cfg *config.DB) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}
