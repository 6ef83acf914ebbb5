package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velkoldin-dev/tratyallday/internal/config"
	"github.com/velkoldin-dev/tratyallday/internal/core"
	"github.com/velkoldin-dev/tratyallday/internal/storage/memory"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{Storage: config.StorageConfig{Backend: "sheets"}})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		Storage: config.StorageConfig{Backend: "postgres", DatabaseURL: "postgres://x"},
		AMQP:    config.AMQPConfig{URL: "amqp://localhost"},
	})
	require.NoError(t, err)
	assert.Equal(t, PostgresBackend, cfg.Type)
	assert.Equal(t, "amqp://localhost", cfg.AMQP.URL)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite with path", Config{Type: SQLiteBackend, Storage: config.StorageConfig{SQLiteDBPath: "x.db"}}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, res.Repository)
	assert.Nil(t, res.Publisher)
	assert.NoError(t, res.Cleanup())
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "expenses.db")
	cfg := Config{Type: SQLiteBackend, Storage: config.StorageConfig{SQLiteDBPath: path}}

	require.NoError(t, Migrate(cfg))

	res, err := NewFactory(nil).CreateBackend(context.Background(), cfg)
	require.NoError(t, err)
	defer res.Cleanup()

	ctx := context.Background()
	id, err := res.Repository.InsertExpense(ctx, core.Expense{UserID: 1, Amount: core.Money{Cents: 100}, Category: "Другое", Date: core.NewDate(2025, 1, 1)})
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.NoError(t, res.Repository.Ping(ctx))
}

func TestCreateBackend_Invalid(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: PostgresBackend})
	assert.Error(t, err)
}
