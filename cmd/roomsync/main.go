// HomeKit Room Sync - keeps HomeKit bridge room assignments aligned
// with Home Assistant's entity, device, and area registries.
//
// Registry change events arrive over MQTT, are mirrored into SQLite,
// and drive per-bridge debounced sync cycles that rewrite the bridge
// state files and request a bridge reload.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/homekit-room-sync/migrations"

	"github.com/nerrad567/homekit-room-sync/internal/homekit"
	"github.com/nerrad567/homekit-room-sync/internal/infrastructure/config"
	"github.com/nerrad567/homekit-room-sync/internal/infrastructure/database"
	"github.com/nerrad567/homekit-room-sync/internal/infrastructure/influxdb"
	"github.com/nerrad567/homekit-room-sync/internal/infrastructure/logging"
	"github.com/nerrad567/homekit-room-sync/internal/infrastructure/mqtt"
	"github.com/nerrad567/homekit-room-sync/internal/registry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HomeKit Room Sync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database for the registry mirror
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise the registry mirror from its persisted state
	mirrorRepo := registry.NewSQLiteRepository(db.DB)
	mirror := registry.NewRegistry(mirrorRepo)
	mirror.SetLogger(log)
	if loadErr := mirror.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading registry mirror: %w", loadErr)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Set up per-bridge coordinators
	manager, err := buildManager(cfg, mirror, mqttClient, influxClient, log)
	if err != nil {
		return err
	}

	// Fan registry changes out to every coordinator
	unsubscribe := mirror.Subscribe(manager.NotifyAll)
	defer unsubscribe()

	// Receive registry change events from Home Assistant
	if err := subscribeRegistryEvents(ctx, cfg, mqttClient, mirror, influxClient, log); err != nil {
		return fmt.Errorf("subscribing to registry events: %w", err)
	}
	log.Info("registry event subscription established")

	// Start the coordinator loops
	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		manager.Run(ctx)
	}()

	// Bring every bridge in line with the registry before waiting for
	// live changes
	manager.SyncAll(ctx)
	log.Info("startup sync complete", "bridges", len(manager.Bridges()))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	<-managerDone

	// Deferred Close() calls will run in reverse order:
	// 1. InfluxDB (if enabled)
	// 2. MQTT
	// 3. Database

	log.Info("HomeKit Room Sync stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ROOMSYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ROOMSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildManager creates one coordinator per bridge. Bridges come from
// configuration, or are discovered from the storage directory when the
// bridges list is empty.
func buildManager(cfg *config.Config, mirror *registry.Registry,
	mqttClient *mqtt.Client, influxClient *influxdb.Client, log *logging.Logger) (*homekit.Manager, error) {
	bridges := cfg.Bridges
	if len(bridges) == 0 {
		discovered, err := homekit.DiscoverBridges(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("discovering bridges: %w", err)
		}
		if len(discovered) == 0 {
			return nil, fmt.Errorf("no bridges configured and none found in %s", cfg.Storage.Dir)
		}
		for _, id := range discovered {
			bridges = append(bridges, config.BridgeConfig{ID: id})
		}
		log.Info("bridges discovered from storage directory", "bridges", discovered)
	}

	reloader := homekit.NewMQTTReloader(mqttClient, mqtt.Topics{}.HomeKitReload)
	manager := homekit.NewManager()
	manager.SetLogger(log)

	for _, bridge := range bridges {
		store := homekit.NewStore(cfg.Storage.Dir, bridge.ID, cfg.Sync.BackupRetain)
		coordinator := homekit.NewCoordinator(bridge.ID, bridge.DefaultRoom,
			cfg.DebounceWindow(), mirror, store, reloader)
		coordinator.SetLogger(log)
		if influxClient != nil {
			coordinator.SetMetrics(influxClient)
		}
		if err := manager.Register(coordinator); err != nil {
			return nil, fmt.Errorf("registering bridge %q: %w", bridge.ID, err)
		}
	}

	return manager, nil
}

// subscribeRegistryEvents wires the MQTT event bridge topics into the
// registry mirror. Non-registry events on the wildcard are ignored;
// malformed payloads are logged and skipped so one bad message never
// breaks the subscription.
func subscribeRegistryEvents(ctx context.Context, cfg *config.Config,
	mqttClient *mqtt.Client, mirror *registry.Registry, influxClient *influxdb.Client, log *logging.Logger) error {
	topic := mqtt.Topics{}.AllRegistryEvents()
	// #nosec G115 -- QoS validated to 0..2 by config.Validate
	qos := byte(cfg.MQTT.QoS)

	return mqttClient.Subscribe(topic, qos, func(topic string, payload []byte) error {
		ev, err := registry.ParseEvent(topic, payload)
		if err != nil {
			if errors.Is(err, registry.ErrUnknownEventType) {
				return nil
			}
			log.Warn("dropping malformed registry event", "topic", topic, "error", err)
			return nil
		}

		if influxClient != nil {
			influxClient.WriteRegistryEvent(string(ev.Type), string(ev.Action))
		}

		if err := mirror.Apply(ctx, ev); err != nil {
			log.Error("applying registry event",
				"type", string(ev.Type),
				"id", ev.ID,
				"error", err)
			return err
		}
		return nil
	})
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
