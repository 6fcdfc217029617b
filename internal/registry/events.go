package registry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EventType identifies which registry an event belongs to. The values
// match Home Assistant's event bus names and the MQTT topic suffixes
// they arrive on.
type EventType string

// Tracked registry event types.
const (
	EventEntityRegistryUpdated EventType = "entity_registry_updated"
	EventDeviceRegistryUpdated EventType = "device_registry_updated"
	EventAreaRegistryUpdated   EventType = "area_registry_updated"
)

// Action is the kind of change an event describes.
type Action string

// Registry change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionRemove Action = "remove"
)

// Event is one typed registry change notification.
//
// For create/update events, the record for the affected registry kind
// (Entity, Device, or Area) carries the post-change state. For remove
// events only ID is guaranteed.
type Event struct {
	Type   EventType
	Action Action

	// ID is the affected identifier (entity id, device id, or area id).
	ID string

	Entity *Entity
	Device *Device
	Area   *Area
}

// eventPayload is the wire format published by the Home Assistant
// eventstream automation to homeassistant/event/<event_type>.
type eventPayload struct {
	Action   string  `json:"action"`
	EntityID string  `json:"entity_id,omitempty"`
	DeviceID string  `json:"device_id,omitempty"`
	AreaID   string  `json:"area_id,omitempty"`
	Entity   *Entity `json:"entity,omitempty"`
	Device   *Device `json:"device,omitempty"`
	Area     *Area   `json:"area,omitempty"`
}

// ParseEvent decodes a registry change event from its MQTT topic and
// JSON payload.
//
// The event type is taken from the topic's last segment; payloads for
// other Home Assistant event types yield ErrUnknownEventType so callers
// can subscribe with a wildcard and skip unrelated traffic.
//
// Parameters:
//   - topic: The topic the message arrived on (e.g. "homeassistant/event/area_registry_updated")
//   - payload: JSON payload with action, identifier, and optional record
//
// Returns:
//   - Event: Decoded event
//   - error: ErrUnknownEventType or ErrInvalidEvent
func ParseEvent(topic string, payload []byte) (Event, error) {
	segments := strings.Split(topic, "/")
	eventType := EventType(segments[len(segments)-1])

	switch eventType {
	case EventEntityRegistryUpdated, EventDeviceRegistryUpdated, EventAreaRegistryUpdated:
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	var p eventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	ev := Event{Type: eventType}

	switch Action(p.Action) {
	case ActionCreate, ActionUpdate, ActionRemove:
		ev.Action = Action(p.Action)
	default:
		return Event{}, fmt.Errorf("%w: action %q", ErrInvalidEvent, p.Action)
	}

	switch eventType {
	case EventEntityRegistryUpdated:
		ev.Entity = p.Entity
		ev.ID = p.EntityID
		if ev.ID == "" && p.Entity != nil {
			ev.ID = p.Entity.ID
		}
	case EventDeviceRegistryUpdated:
		ev.Device = p.Device
		ev.ID = p.DeviceID
		if ev.ID == "" && p.Device != nil {
			ev.ID = p.Device.ID
		}
	case EventAreaRegistryUpdated:
		ev.Area = p.Area
		ev.ID = p.AreaID
		if ev.ID == "" && p.Area != nil {
			ev.ID = p.Area.ID
		}
	}

	if ev.ID == "" {
		return Event{}, fmt.Errorf("%w: missing identifier", ErrInvalidEvent)
	}

	// Create/update must carry the post-change record so the mirror can
	// apply it without a query channel back to Home Assistant.
	if ev.Action != ActionRemove {
		missing := (eventType == EventEntityRegistryUpdated && ev.Entity == nil) ||
			(eventType == EventDeviceRegistryUpdated && ev.Device == nil) ||
			(eventType == EventAreaRegistryUpdated && ev.Area == nil)
		if missing {
			return Event{}, fmt.Errorf("%w: %s %s without record", ErrInvalidEvent, ev.Action, eventType)
		}
	}

	return ev, nil
}
