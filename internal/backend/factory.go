package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/velkoldin-dev/tratyallday/internal/amqp"
	"github.com/velkoldin-dev/tratyallday/internal/log"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
	"github.com/velkoldin-dev/tratyallday/internal/storage/memory"
	"github.com/velkoldin-dev/tratyallday/internal/storage/postgres"
	"github.com/velkoldin-dev/tratyallday/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend. The AMQP publisher is
// optional: a broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo storage.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = f.createSQLite(config)
	case PostgresBackend:
		repo, err = f.createPostgres(ctx, config)
	case MemoryBackend:
		repo = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	result := &BackendResult{Repository: repo, Cleanup: repo.Close}

	if config.AMQP.URL != "" {
		client, err := amqp.NewClient(config.AMQP.URL, config.AMQP.Exchange, config.AMQP.Queue, f.logger)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQP.Exchange,
				"queue", config.AMQP.Queue)
			result.Publisher = client
			result.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
		}
	}

	return result, nil
}

func (f *DefaultFactory) createSQLite(config Config) (storage.Repository, error) {
	repo, err := sqlite.NewRepository(config.Storage.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.Storage.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createPostgres(ctx context.Context, config Config) (storage.Repository, error) {
	if err := postgres.RunMigrations(config.Storage.DatabaseURL); err != nil {
		return nil, fmt.Errorf("failed to migrate PostgreSQL: %w", err)
	}
	pool, err := postgres.NewPool(ctx, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL pool: %w", err)
	}
	f.logger.Info("Initialized PostgreSQL backend", "max_conns", config.Storage.MaxConns)
	return postgres.NewRepository(pool), nil
}

// Migrate applies the schema of the configured backend and returns.
func Migrate(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	switch config.Type {
	case SQLiteBackend:
		repo, err := sqlite.NewRepository(config.Storage.SQLiteDBPath)
		if err != nil {
			return err
		}
		return repo.Close()
	case PostgresBackend:
		return postgres.RunMigrations(config.Storage.DatabaseURL)
	default:
		return nil
	}
}
