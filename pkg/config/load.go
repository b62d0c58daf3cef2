package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Load applies the first environment file found among envFilePath, then
// builds the configuration from the process environment. With no paths it
// tries ./.env. Variables already set in the process always win.
func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	if len(envFilePath) == 0 {
		envFilePath = []string{".env"}
	}
	if path, err := LoadEnvFile(envFilePath...); err != nil {
		logger.Info("No valid environment files found, using process environment", "error", err)
	} else {
		logger.Info("Loaded environment from file", "path", path)
	}
	return loadFromEnv(logger)
}

// LoadEnvFile loads the first of paths that exists into the process
// environment and returns where it was found. Relative paths are searched
// from the working directory upwards, so commands run from a package
// directory still see the repository's file.
func LoadEnvFile(paths ...string) (string, error) {
	var errs []error
	for _, path := range paths {
		found, err := locateEnvFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if err := godotenv.Load(found); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", found, err))
			continue
		}
		return found, nil
	}
	if len(errs) == 0 {
		return "", os.ErrNotExist
	}
	return "", errors.Join(errs...)
}

func locateEnvFile(name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", err
		}
		return name, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

func loadFromEnv(logger *slog.Logger) (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Info("App config loaded",
		"env", cfg.Env,
		"store_driver", cfg.Store.Driver,
		"db", maskValue(cfg.DB.Url),
		"workflow_driver", cfg.Workflow.Driver,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"bambora_api_url", cfg.Bambora.ApiUrl,
		"bambora_merchant", cfg.Bambora.MerchantNumber,
		"bambora_access_token", maskValue(cfg.Bambora.AccessToken),
		"bambora_secret_token", maskValue(cfg.Bambora.SecretToken),
	)
	return &cfg, nil
}

// Validate rejects option values the rest of the application cannot act on.
func (a *App) Validate() error {
	switch a.Store.Driver {
	case "postgres", "bolt":
	default:
		return fmt.Errorf("unsupported store driver %q", a.Store.Driver)
	}
	switch a.Workflow.Driver {
	case "memory", "redis", "kafka":
	default:
		return fmt.Errorf("unsupported workflow driver %q", a.Workflow.Driver)
	}
	if a.Deposit.MinAmount <= 0 || a.Deposit.MaxAmount < a.Deposit.MinAmount {
		return fmt.Errorf("invalid deposit limits [%d, %d]", a.Deposit.MinAmount, a.Deposit.MaxAmount)
	}
	return nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
