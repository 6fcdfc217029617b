package homekit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/homekit-room-sync/internal/registry"
)

// Manager owns the per-bridge coordinators.
//
// Each bridge gets an independent Coordinator with its own debounce
// timer and state file store; coordinators share nothing but the
// read-only registry mirror. The manager fans registry events out to
// all of them and runs their loops under one lifecycle.
type Manager struct {
	mu           sync.RWMutex
	coordinators map[string]*Coordinator
	logger       Logger
}

// NewManager creates an empty coordinator manager.
func NewManager() *Manager {
	return &Manager{
		coordinators: make(map[string]*Coordinator),
		logger:       noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Register adds a coordinator. Registering the same bridge twice is an
// error; each bridge must have exactly one coordinator.
func (m *Manager) Register(c *Coordinator) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.coordinators[c.BridgeID()]; exists {
		return fmt.Errorf("coordinator for bridge %q already registered", c.BridgeID())
	}
	m.coordinators[c.BridgeID()] = c
	return nil
}

// Get returns the coordinator for a bridge, if registered.
func (m *Manager) Get(bridgeID string) (*Coordinator, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coordinators[bridgeID]
	return c, ok
}

// Bridges returns the registered bridge ids in sorted order.
func (m *Manager) Bridges() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.coordinators))
	for id := range m.coordinators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NotifyAll fans a registry event out to every coordinator.
// Never blocks; each coordinator coalesces its own triggers.
func (m *Manager) NotifyAll(ev registry.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.coordinators {
		c.Notify(ev)
	}
}

// Run starts every coordinator's loop and blocks until ctx is canceled
// and all loops have returned. Register all coordinators before
// calling Run.
func (m *Manager) Run(ctx context.Context) {
	m.mu.RLock()
	coordinators := make([]*Coordinator, 0, len(m.coordinators))
	for _, c := range m.coordinators {
		coordinators = append(coordinators, c)
	}
	m.mu.RUnlock()

	m.logger.Info("starting coordinators", "count", len(coordinators))

	var wg sync.WaitGroup
	for _, c := range coordinators {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}
	wg.Wait()
}

// SyncAll forces an immediate sync cycle on every coordinator, used
// once at startup. Per-bridge failures are logged and do not stop the
// remaining bridges.
func (m *Manager) SyncAll(ctx context.Context) {
	for _, id := range m.Bridges() {
		c, ok := m.Get(id)
		if !ok {
			continue
		}
		if err := c.SyncNow(ctx); err != nil {
			m.logger.Warn("startup sync failed", "bridge", id, "error", err)
		}
	}
}
