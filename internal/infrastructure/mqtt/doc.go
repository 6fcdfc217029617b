// Package mqtt provides MQTT client connectivity for HomeKit Room Sync.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// MQTT is the transport between Home Assistant and the roomsync daemon.
// Registry change events (entity/device/area) are published to the event
// bridge topics by an eventstream automation on the HA side; roomsync
// publishes reload requests and sync results back on its own topics.
//
//	Home Assistant ↔ MQTT Broker ↔ roomsync daemon
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.RegistryEvent("entity_registry_updated"), 1, handler)
package mqtt
