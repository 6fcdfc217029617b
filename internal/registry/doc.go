// Package registry maintains a local mirror of Home Assistant's entity,
// device, and area registries.
//
// Change events arrive over MQTT (homeassistant/event/<event_type>) and
// are applied write-through: the SQLite repository is updated first,
// then the in-memory cache, then subscribers are notified. On startup
// Load() rebuilds the cache from SQLite so room resolution works before
// the first live event arrives.
//
// Snapshot() hands out detached copies of all three registries so a
// sync cycle can resolve rooms without holding any lock.
package registry
