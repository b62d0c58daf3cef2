package initializer

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/amirasaad/deposit/infra/repository/boltstore"
	infra_workflow "github.com/amirasaad/deposit/infra/workflow"
	"github.com/amirasaad/deposit/pkg/bambora"
	"github.com/amirasaad/deposit/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boltConfig(t *testing.T) *config.App {
	t.Helper()
	return &config.App{
		Env:      "test",
		Log:      &config.Log{Format: "text", Level: 8},
		Store:    &config.Store{Driver: "bolt", BoltPath: filepath.Join(t.TempDir(), "deposit.db")},
		Bambora:  &config.Bambora{ApiUrl: "http://localhost", Keys: "PENSION:s3cr3t:DEP-"},
		Workflow: &config.Workflow{Driver: "memory"},
	}
}

func TestInitializeDependencies_Bolt(t *testing.T) {
	deps, err := InitializeDependencies(boltConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, deps.Close()) })

	assert.IsType(t, &boltstore.Store{}, deps.Repo)
	assert.IsType(t, &infra_workflow.MemoryDispatcher{}, deps.Dispatcher)
	assert.IsType(t, &bambora.Client{}, deps.Sessions)
	assert.Equal(t, bambora.GroupKey{MD5Key: "s3cr3t", ReferencePrefix: "DEP-"}, deps.Keys["PENSION"])
	assert.Len(t, deps.Closers, 2)
}

func TestInitializeDependencies_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.App)
	}{
		{name: "bad keys", mutate: func(cfg *config.App) { cfg.Bambora.Keys = "PENSION" }},
		{name: "no bambora", mutate: func(cfg *config.App) { cfg.Bambora = nil }},
		{name: "unknown store", mutate: func(cfg *config.App) { cfg.Store.Driver = "mongo" }},
		{name: "unknown workflow", mutate: func(cfg *config.App) { cfg.Workflow.Driver = "sqs" }},
		{name: "postgres without url", mutate: func(cfg *config.App) {
			cfg.Store.Driver = "postgres"
			cfg.DB = &config.DB{}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := boltConfig(t)
			tt.mutate(cfg)
			deps, err := InitializeDependencies(cfg)
			assert.Error(t, err)
			assert.Nil(t, deps)
		})
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &config.Log{Format: "json", Prefix: "[deposit]"})
	logger.Info("payment captured", "payment_id", 555)

	out := buf.String()
	assert.Contains(t, out, `"msg":"payment captured"`)
	assert.Contains(t, out, `"payment_id"`)
}

func TestNewLogger_NilConfig(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, nil).Warn("no config")
	assert.Contains(t, buf.String(), "no config")
}
