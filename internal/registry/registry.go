package registry

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the local mirror of Home Assistant's entity, device, and
// area registries. It wraps a Repository and adds an in-memory cache so
// room resolution never touches the database on the hot path.
//
// The cache is populated on startup via Load() and kept in sync by
// Apply(), which writes through to the repository before mutating the
// cache. Subscribers are notified after every successfully applied
// event.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	mu       sync.RWMutex
	entities map[string]Entity
	devices  map[string]Device
	areas    map[string]Area

	subMu  sync.Mutex
	subs   map[int]func(Event)
	nextID int

	logger Logger
}

// NewRegistry creates a new registry mirror.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:     repo,
		entities: make(map[string]Entity),
		devices:  make(map[string]Device),
		areas:    make(map[string]Area),
		subs:     make(map[int]func(Event)),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the cache with the repository's contents.
// This should be called on application startup, before the event
// subscription is established.
func (r *Registry) Load(ctx context.Context) error {
	entities, err := r.repo.ListEntities(ctx)
	if err != nil {
		return fmt.Errorf("loading entities: %w", err)
	}
	devices, err := r.repo.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	areas, err := r.repo.ListAreas(ctx)
	if err != nil {
		return fmt.Errorf("loading areas: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entities = make(map[string]Entity, len(entities))
	for _, e := range entities {
		r.entities[e.ID] = e
	}
	r.devices = make(map[string]Device, len(devices))
	for _, d := range devices {
		r.devices[d.ID] = d
	}
	r.areas = make(map[string]Area, len(areas))
	for _, a := range areas {
		r.areas[a.ID] = a
	}

	r.logger.Info("registry mirror loaded",
		"entities", len(entities),
		"devices", len(devices),
		"areas", len(areas))
	return nil
}

// Apply persists a registry event and updates the cache, then notifies
// subscribers. The repository write happens first; if it fails the
// cache is left untouched and no notification is sent.
func (r *Registry) Apply(ctx context.Context, ev Event) error {
	if err := r.persist(ctx, ev); err != nil {
		return err
	}

	r.mu.Lock()
	switch ev.Type {
	case EventEntityRegistryUpdated:
		if ev.Action == ActionRemove {
			delete(r.entities, ev.ID)
		} else {
			r.entities[ev.ID] = *ev.Entity
		}
	case EventDeviceRegistryUpdated:
		if ev.Action == ActionRemove {
			delete(r.devices, ev.ID)
		} else {
			r.devices[ev.ID] = *ev.Device
		}
	case EventAreaRegistryUpdated:
		if ev.Action == ActionRemove {
			delete(r.areas, ev.ID)
		} else {
			r.areas[ev.ID] = *ev.Area
		}
	}
	r.mu.Unlock()

	r.logger.Debug("registry event applied",
		"type", string(ev.Type),
		"action", string(ev.Action),
		"id", ev.ID)

	r.notify(ev)
	return nil
}

// persist writes the event through to the repository.
func (r *Registry) persist(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventEntityRegistryUpdated:
		if ev.Action == ActionRemove {
			return r.repo.DeleteEntity(ctx, ev.ID)
		}
		return r.repo.UpsertEntity(ctx, *ev.Entity)
	case EventDeviceRegistryUpdated:
		if ev.Action == ActionRemove {
			return r.repo.DeleteDevice(ctx, ev.ID)
		}
		return r.repo.UpsertDevice(ctx, *ev.Device)
	case EventAreaRegistryUpdated:
		if ev.Action == ActionRemove {
			return r.repo.DeleteArea(ctx, ev.ID)
		}
		return r.repo.UpsertArea(ctx, *ev.Area)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEventType, ev.Type)
	}
}

// Snapshot returns a deep copy of the current mirror contents.
// Callers can hold the snapshot across a sync cycle without blocking
// concurrent event application.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		Entities: make(map[string]Entity, len(r.entities)),
		Devices:  make(map[string]Device, len(r.devices)),
		Areas:    make(map[string]Area, len(r.areas)),
	}
	for id, e := range r.entities {
		snap.Entities[id] = e
	}
	for id, d := range r.devices {
		snap.Devices[id] = d
	}
	for id, a := range r.areas {
		snap.Areas[id] = a
	}
	return snap
}

// Subscribe registers a callback invoked after every applied event.
// The callback runs on the caller's goroutine that invoked Apply, so
// it must not block. The returned function removes the subscription.
func (r *Registry) Subscribe(fn func(Event)) func() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextID
	r.nextID++
	r.subs[id] = fn

	return func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		delete(r.subs, id)
	}
}

// notify invokes all subscribers with the applied event.
func (r *Registry) notify(ev Event) {
	r.subMu.Lock()
	fns := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
