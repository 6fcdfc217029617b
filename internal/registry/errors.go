package registry

import "errors"

// Domain errors for the registry package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, registry.ErrUnknownEventType) {
//	    // ignore non-registry event
//	}
var (
	// ErrUnknownEventType is returned when an event topic does not carry
	// one of the tracked registry event types.
	ErrUnknownEventType = errors.New("registry: unknown event type")

	// ErrInvalidEvent is returned when an event payload cannot be decoded
	// or is missing the affected identifier.
	ErrInvalidEvent = errors.New("registry: invalid event payload")
)
