// Package backend builds the storage repository and event publisher selected
// by configuration.
package backend

import (
	"context"

	"github.com/velkoldin-dev/tratyallday/internal/services"
	"github.com/velkoldin-dev/tratyallday/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the repository, the optional publisher and a cleanup function
type BackendResult struct {
	Repository storage.Repository
	// Publisher is nil when no broker is configured.
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

// IsValid checks if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, PostgresBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

func (bt BackendType) String() string {
	return string(bt)
}
