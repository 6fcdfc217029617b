// Package config handles loading and validation of HomeKit Room Sync
// configuration.
//
// Configuration is loaded from a YAML file with three layers of
// precedence: hardcoded defaults, file values, and ROOMSYNC_* environment
// variable overrides (useful for secrets like MQTT credentials and the
// InfluxDB token).
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	window := cfg.DebounceWindow()
//
// The bridges section lists the HomeKit bridge instances to keep in
// sync. Leaving it empty enables discovery: every homekit.*.state file
// in the storage directory is synced with no default room.
package config
