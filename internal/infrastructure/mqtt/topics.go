package mqtt

import "fmt"

// Topic prefixes for HomeKit Room Sync.
//
// Registry change events arrive from Home Assistant on the event bridge
// topics (one topic per event type, published by an eventstream
// automation on the HA side). Outbound requests and status use the
// roomsync prefix.
const (
	// TopicPrefixEvents is the base for Home Assistant event bridge topics.
	TopicPrefixEvents = "homeassistant/event"

	// TopicPrefixRoomSync is the base for all roomsync-owned topics.
	TopicPrefixRoomSync = "roomsync"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "roomsync/system"
)

// Topics provides builders for HomeKit Room Sync MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	reloadTopic := topics.HomeKitReload("main")
//	// Returns: "roomsync/homekit/main/reload"
type Topics struct{}

// RegistryEvent returns the topic carrying one Home Assistant event type.
//
// Example: homeassistant/event/entity_registry_updated
func (Topics) RegistryEvent(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvents, eventType)
}

// AllRegistryEvents returns a pattern matching every event bridge topic.
//
// Pattern: homeassistant/event/+
func (Topics) AllRegistryEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvents)
}

// HomeKitReload returns the topic for requesting a HomeKit bridge reload.
//
// An automation on the Home Assistant side subscribes to this topic and
// calls the homekit.reload service for the named bridge.
//
// Example: roomsync/homekit/main/reload
func (Topics) HomeKitReload(bridgeID string) string {
	return fmt.Sprintf("%s/homekit/%s/reload", TopicPrefixRoomSync, bridgeID)
}

// SyncResult returns the topic for publishing per-bridge sync outcomes.
//
// Example: roomsync/homekit/main/result
func (Topics) SyncResult(bridgeID string) string {
	return fmt.Sprintf("%s/homekit/%s/result", TopicPrefixRoomSync, bridgeID)
}

// SystemStatus returns the daemon status topic (also used for LWT).
//
// Example: roomsync/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
