package homekit

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/homekit-room-sync/internal/registry"
)

// Logger defines the logging interface used by the Coordinator.
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

// SnapshotProvider supplies point-in-time registry snapshots.
// Satisfied by *registry.Registry.
type SnapshotProvider interface {
	Snapshot() registry.Snapshot
}

// MetricsRecorder records sync cycle outcomes. Satisfied by the
// InfluxDB client; a nil recorder disables telemetry.
type MetricsRecorder interface {
	WriteSyncCycle(bridgeID, result string, mutations int, duration time.Duration)
}

// Sync cycle results reported to logging and telemetry.
const (
	ResultSynced             = "synced"
	ResultNoop               = "noop"
	ResultStorageUnavailable = "storage_unavailable"
	ResultStorageCorrupt     = "storage_corrupt"
	ResultWriteFailed        = "write_failed"
	ResultReloadFailed       = "reload_failed"
)

// syncRequest is one SyncNow invocation waiting for its cycle result.
type syncRequest struct {
	done chan error
}

// Coordinator drives the sync pipeline for one bridge.
//
// It owns a three-state machine (idle, pending debounce, syncing) run
// by a single goroutine: registry change triggers start or reset a
// debounce timer, and when the timer fires a full cycle runs - snapshot,
// resolve, load, diff, apply, reload. Triggers arriving while a cycle
// is in flight are retained and restart the debounce window afterwards,
// so no change is ever missed and at most one file mutation plus reload
// is in flight per bridge at any time.
//
// Cycle failures are reported and isolated: the run loop never exits on
// a storage or reload error, and other bridges are unaffected.
type Coordinator struct {
	bridgeID    string
	defaultRoom string
	debounce    time.Duration

	snapshots SnapshotProvider
	store     *Store
	reloader  Reloader

	trigger chan struct{}
	syncNow chan syncRequest

	metrics MetricsRecorder
	logger  Logger
}

// NewCoordinator creates a coordinator for one bridge.
//
// Parameters:
//   - bridgeID: The bridge instance name
//   - defaultRoom: Fallback room for entities with no area ("" disables)
//   - debounce: Quiescence window after the last registry change
//   - snapshots: Registry snapshot source (shared, read-only)
//   - store: This bridge's state file store (exclusively owned)
//   - reloader: Reload request dispatcher
func NewCoordinator(bridgeID, defaultRoom string, debounce time.Duration,
	snapshots SnapshotProvider, store *Store, reloader Reloader) *Coordinator {
	return &Coordinator{
		bridgeID:    bridgeID,
		defaultRoom: defaultRoom,
		debounce:    debounce,
		snapshots:   snapshots,
		store:       store,
		reloader:    reloader,
		trigger:     make(chan struct{}, 1),
		syncNow:     make(chan syncRequest),
		logger:      noopLogger{},
	}
}

// SetLogger sets the logger for the coordinator.
func (c *Coordinator) SetLogger(logger Logger) {
	c.logger = logger
}

// SetMetrics sets the telemetry recorder for the coordinator.
func (c *Coordinator) SetMetrics(metrics MetricsRecorder) {
	c.metrics = metrics
}

// BridgeID returns the bridge this coordinator serves.
func (c *Coordinator) BridgeID() string {
	return c.bridgeID
}

// Notify signals that a registry change relevant to this bridge
// occurred. Triggers coalesce: the channel holds at most one pending
// trigger, so a burst of events collapses into a single sync cycle.
// Never blocks; safe to call from any goroutine.
func (c *Coordinator) Notify(_ registry.Event) {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// SyncNow forces an immediate sync cycle through the run loop,
// bypassing the debounce wait, and returns that cycle's error.
// Used once at startup so the bridge starts consistent with the
// registry. Run(ctx) must already be executing.
func (c *Coordinator) SyncNow(ctx context.Context) error {
	req := syncRequest{done: make(chan error, 1)}
	select {
	case c.syncNow <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes the coordinator's state machine until ctx is canceled.
// It must be called exactly once, on its own goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	timer := time.NewTimer(c.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	c.logger.Info("coordinator started",
		"bridge", c.bridgeID,
		"debounce", c.debounce.String(),
		"state_file", c.store.Path())

	for {
		select {
		case <-ctx.Done():
			if pending && !timer.Stop() {
				<-timer.C
			}
			c.logger.Info("coordinator stopped", "bridge", c.bridgeID)
			return

		case <-c.trigger:
			// Start the window, or restart it if already pending. The
			// window measures quiet time since the last change.
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(c.debounce)
			pending = true
			c.logger.Debug("debounce window started", "bridge", c.bridgeID)

		case <-timer.C:
			pending = false
			c.runCycle(ctx)
			pending = c.retainTrigger(timer)

		case req := <-c.syncNow:
			if pending {
				if !timer.Stop() {
					<-timer.C
				}
				pending = false
			}
			req.done <- c.runCycle(ctx)
			pending = c.retainTrigger(timer)
		}
	}
}

// retainTrigger picks up a trigger that arrived during a sync cycle and
// restarts the debounce window for it. Returns whether a window is now
// pending.
func (c *Coordinator) retainTrigger(timer *time.Timer) bool {
	select {
	case <-c.trigger:
		timer.Reset(c.debounce)
		c.logger.Debug("change arrived mid-cycle, debounce restarted", "bridge", c.bridgeID)
		return true
	default:
		return false
	}
}

// runCycle executes one full sync cycle: snapshot, resolve, load, diff,
// apply, reload. Failures abort the cycle and are reported; they never
// propagate out of the run loop.
func (c *Coordinator) runCycle(ctx context.Context) error {
	start := time.Now()

	snap := c.snapshots.Snapshot()
	desired := DesiredAssignments(snap, c.defaultRoom)

	state, err := c.store.Load()
	if err != nil {
		c.reportFailure("loading state file", err, 0, start)
		return err
	}

	mutations := Diff(desired, state)
	if len(mutations) == 0 {
		c.logger.Debug("sync cycle complete, nothing to change",
			"bridge", c.bridgeID,
			"entities", len(desired))
		c.record(ResultNoop, 0, start)
		return nil
	}

	if err := c.store.Apply(state, mutations); err != nil {
		c.reportFailure("writing state file", err, len(mutations), start)
		return err
	}

	if err := c.reloader.Reload(ctx, c.bridgeID); err != nil {
		// The write already succeeded; the on-disk state is correct.
		c.reportFailure("requesting bridge reload", err, len(mutations), start)
		return err
	}

	c.logger.Info("sync cycle complete",
		"bridge", c.bridgeID,
		"mutations", len(mutations),
		"duration", time.Since(start).String())
	c.record(ResultSynced, len(mutations), start)
	return nil
}

// reportFailure logs a cycle failure with its kind and records it.
func (c *Coordinator) reportFailure(op string, err error, mutations int, start time.Time) {
	result := classifyError(err)
	c.logger.Error("sync cycle failed",
		"bridge", c.bridgeID,
		"op", op,
		"kind", result,
		"error", err)
	c.record(result, mutations, start)
}

// record forwards a cycle outcome to telemetry when configured.
func (c *Coordinator) record(result string, mutations int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.WriteSyncCycle(c.bridgeID, result, mutations, time.Since(start))
}

// classifyError maps a cycle error to its result label.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrStorageUnavailable):
		return ResultStorageUnavailable
	case errors.Is(err, ErrStorageCorrupt):
		return ResultStorageCorrupt
	case errors.Is(err, ErrStorageWriteFailed):
		return ResultWriteFailed
	case errors.Is(err, ErrReloadFailed):
		return ResultReloadFailed
	default:
		return "error"
	}
}
