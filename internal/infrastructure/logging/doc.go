// Package logging provides structured logging for HomeKit Room Sync.
//
// It wraps the standard library's log/slog with configuration-driven
// setup (level, format, destination) and default service attributes.
// Sync failures are reported through this channel with enough context
// (bridge id, failure kind, underlying cause) for an operator to act on.
package logging
