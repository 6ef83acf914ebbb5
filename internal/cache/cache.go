// Package cache holds the in-process TTL cache backing conversation sessions.
package cache

import (
	"context"
	"time"

	"github.com/velkoldin-dev/tratyallday/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Sizer is implemented by caches that can report how many entries they hold.
type Sizer interface {
	Size() int
}

// Manager periodically evicts expired entries from registered caches.
type Manager struct {
	caches []Cleaner
	logger *log.Logger
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// Sweep runs one cleanup pass and returns the number of evicted entries.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Entries sums the sizes of the registered caches that implement Sizer.
func (m *Manager) Entries() int {
	total := 0
	for _, c := range m.caches {
		if s, ok := c.(Sizer); ok {
			total += s.Size()
		}
	}
	return total
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.DebugContext(ctx, "Evicted expired cache entries", "count", n, "remaining", m.Entries())
			}
		case <-ctx.Done():
			return nil
		}
	}
}
