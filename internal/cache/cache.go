// Package cache holds small in-process caches and the janitor that expires
// them.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Size() int
}

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically cleans registered caches until its context ends.
type Manager struct {
	mu     sync.Mutex
	caches map[string]Cleaner
	logger *slog.Logger
	done   chan struct{}
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{caches: make(map[string]Cleaner), logger: logger}
}

func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Start runs the cleanup loop in the background. Wait returns once ctx is
// cancelled and the loop has exited.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.CleanAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CleanAll cleans every registered cache once and returns the total dropped.
func (m *Manager) CleanAll(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			m.logger.DebugContext(ctx, "Expired cache entries removed", "cache", name, "count", n)
			total += n
		}
	}
	return total
}

func (m *Manager) Wait() {
	if m.done != nil {
		<-m.done
	}
}
