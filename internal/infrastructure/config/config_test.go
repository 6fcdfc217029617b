package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
storage:
  dir: "/ha/.storage"
sync:
  debounce_seconds: 3
  backup_retain: 2
bridges:
  - id: "main"
    default_room: "Hallway"
  - id: "cameras"
mqtt:
  broker:
    host: "broker.local"
    port: 1883
    client_id: "roomsync-test"
  qos: 1
database:
  path: "/tmp/roomsync.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Dir != "/ha/.storage" {
		t.Errorf("Storage.Dir = %q, want %q", cfg.Storage.Dir, "/ha/.storage")
	}
	if cfg.Sync.DebounceSeconds != 3 {
		t.Errorf("Sync.DebounceSeconds = %d, want 3", cfg.Sync.DebounceSeconds)
	}
	if len(cfg.Bridges) != 2 {
		t.Fatalf("len(Bridges) = %d, want 2", len(cfg.Bridges))
	}
	if cfg.Bridges[0].DefaultRoom != "Hallway" {
		t.Errorf("Bridges[0].DefaultRoom = %q, want %q", cfg.Bridges[0].DefaultRoom, "Hallway")
	}
	if cfg.Bridges[1].DefaultRoom != "" {
		t.Errorf("Bridges[1].DefaultRoom = %q, want empty", cfg.Bridges[1].DefaultRoom)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "broker.local")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sync.DebounceSeconds != 2 {
		t.Errorf("Sync.DebounceSeconds = %d, want default 2", cfg.Sync.DebounceSeconds)
	}
	if cfg.Sync.BackupRetain != 5 {
		t.Errorf("Sync.BackupRetain = %d, want default 5", cfg.Sync.BackupRetain)
	}
	if cfg.MQTT.Broker.ClientID != "roomsync" {
		t.Errorf("MQTT.Broker.ClientID = %q, want default %q", cfg.MQTT.Broker.ClientID, "roomsync")
	}
	if got := cfg.DebounceWindow(); got != 2*time.Second {
		t.Errorf("DebounceWindow() = %v, want 2s", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_DuplicateBridgeIDs(t *testing.T) {
	content := `
bridges:
  - id: "main"
  - id: "main"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected error for duplicate bridge ids, got nil")
	}
}

func TestLoad_EmptyBridgeID(t *testing.T) {
	content := `
bridges:
  - default_room: "Hallway"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected error for empty bridge id, got nil")
	}
}

func TestLoad_InvalidDebounce(t *testing.T) {
	content := `
sync:
  debounce_seconds: 0
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected error for zero debounce, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ROOMSYNC_STORAGE_DIR", "/override/.storage")
	t.Setenv("ROOMSYNC_MQTT_HOST", "env-broker")

	cfg, err := Load(writeConfig(t, "storage:\n  dir: \"/file/.storage\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Dir != "/override/.storage" {
		t.Errorf("Storage.Dir = %q, want env override %q", cfg.Storage.Dir, "/override/.storage")
	}
	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-broker")
	}
}
