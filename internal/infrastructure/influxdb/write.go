package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSyncCycle records the outcome of one sync cycle for a bridge.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - bridgeID: The bridge the cycle ran for
//   - result: Cycle outcome ("synced", "noop", "storage_corrupt", "reload_failed", ...)
//   - mutations: Number of room mutations applied
//   - duration: Wall-clock time of the cycle
//
// Example:
//
//	client.WriteSyncCycle("main", "synced", 3, 120*time.Millisecond)
func (c *Client) WriteSyncCycle(bridgeID string, result string, mutations int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sync_cycle",
		map[string]string{
			"bridge_id": bridgeID,
			"result":    result,
		},
		map[string]interface{}{
			"mutations":   mutations,
			"duration_ms": float64(duration.Milliseconds()),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRegistryEvent counts one registry change event received from
// Home Assistant, tagged by event type and action.
//
// Parameters:
//   - eventType: Registry event type (e.g., "area_registry_updated")
//   - action: The change action ("create", "update", "remove")
func (c *Client) WriteRegistryEvent(eventType string, action string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"registry_event",
		map[string]string{
			"event_type": eventType,
			"action":     action,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
