//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/velkoldin-dev/tratyallday/internal/config"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
	"github.com/velkoldin-dev/tratyallday/internal/storage/storagetest"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// startContainer starts one PostgreSQL container for the whole test run
// and applies the migrations.
func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("container port: %w", err)
	}

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/testdb?sslmode=disable", host, port.Port())
	if err := RunMigrations(dsn); err != nil {
		return "", err
	}
	return dsn, nil
}

func TestPostgresRepository(t *testing.T) {
	once.Do(func() { sharedDSN, initErr = startContainer() })
	if initErr != nil {
		t.Fatalf("setup test DB: %v", initErr)
	}

	suite.Run(t, &storagetest.RepositorySuite{
		NewRepo: func(t *testing.T) storage.Repository {
			ctx := context.Background()
			pool, err := NewPool(ctx, config.StorageConfig{DatabaseURL: sharedDSN, MaxConns: 4})
			require.NoError(t, err)
			_, err = pool.Exec(ctx, "TRUNCATE expenses, users RESTART IDENTITY CASCADE")
			require.NoError(t, err)
			return NewRepository(pool)
		},
	})
}
