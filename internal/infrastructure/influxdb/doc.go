// Package influxdb provides optional sync telemetry for HomeKit Room Sync.
//
// When enabled, each sync cycle and each received registry event is
// recorded as a measurement. Writes are batched and non-blocking so
// telemetry can never stall a sync cycle; async write errors surface
// through the SetOnError callback.
//
// The daemon is fully functional with InfluxDB disabled - telemetry is
// observability only, never a dependency of the sync pipeline.
package influxdb
