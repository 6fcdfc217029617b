package homekit

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeStateFixture writes a bridge state file and returns its store.
func writeStateFixture(t *testing.T, dir, bridgeID, content string) *Store {
	t.Helper()
	path := filepath.Join(dir, StateFilePrefix+bridgeID+StateFileSuffix)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return NewStore(dir, bridgeID, 3)
}

const fixtureState = `{
  "version": 1,
  "minor_version": 2,
  "key": "homekit.main.state",
  "data": {
    "config": {"port": 21063, "pincode": "123-45-678"},
    "accessories": {
      "light.kitchen": {"aid": 2, "room_name": "Office", "category": 5},
      "switch.unassigned": {"aid": 3, "room_name": "Hallway"}
    }
  }
}`

func TestStoreLoad(t *testing.T) {
	store := writeStateFixture(t, t.TempDir(), "main", fixtureState)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !state.Has("light.kitchen") {
		t.Error("Has(light.kitchen) = false, want true")
	}
	if room, ok := state.RoomName("light.kitchen"); !ok || room != "Office" {
		t.Errorf("RoomName(light.kitchen) = %q, %v, want Office, true", room, ok)
	}
	want := []string{"light.kitchen", "switch.unassigned"}
	if got := state.EntityIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("EntityIDs() = %v, want %v", got, want)
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(t.TempDir(), "main", 3)
	if _, err := store.Load(); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("Load() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestStoreLoadCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{not json at all`},
		{"top level array", `["a", "b"]`},
		{"missing data", `{"version": 1}`},
		{"data not object", `{"data": 42}`},
		{"missing accessories", `{"data": {"config": {}}}`},
		{"accessories not mapping", `{"data": {"accessories": [1, 2]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := writeStateFixture(t, t.TempDir(), "main", tt.content)
			if _, err := store.Load(); !errors.Is(err, ErrStorageCorrupt) {
				t.Errorf("Load() error = %v, want ErrStorageCorrupt", err)
			}
		})
	}
}

func TestStoreApplyMutatesOnlyRoomName(t *testing.T) {
	dir := t.TempDir()
	store := writeStateFixture(t, dir, "main", fixtureState)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	mutations := []Mutation{{EntityID: "light.kitchen", RoomName: "Kitchen"}}
	if err := store.Apply(state, mutations); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	reloaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() after Apply error = %v", err)
	}
	if room, _ := reloaded.RoomName("light.kitchen"); room != "Kitchen" {
		t.Errorf("room_name = %q, want Kitchen", room)
	}
	if room, _ := reloaded.RoomName("switch.unassigned"); room != "Hallway" {
		t.Errorf("untouched accessory room_name = %q, want Hallway", room)
	}

	// Bridge-owned fields must round-trip.
	var doc struct {
		Version int `json:"version"`
		Data    struct {
			Config      map[string]any `json:"config"`
			Accessories map[string]struct {
				AID      int    `json:"aid"`
				Category int    `json:"category"`
				RoomName string `json:"room_name"`
			} `json:"accessories"`
		} `json:"data"`
	}
	raw, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("parsing state file: %v", err)
	}
	if doc.Version != 1 {
		t.Errorf("version = %d, want 1", doc.Version)
	}
	if doc.Data.Config["pincode"] != "123-45-678" {
		t.Errorf("config.pincode = %v, want preserved", doc.Data.Config["pincode"])
	}
	acc := doc.Data.Accessories["light.kitchen"]
	if acc.AID != 2 || acc.Category != 5 {
		t.Errorf("accessory fields = aid %d category %d, want 2 and 5", acc.AID, acc.Category)
	}
}

func TestStoreApplyEmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	store := writeStateFixture(t, dir, "main", fixtureState)

	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Apply(state, nil); err != nil {
		t.Fatalf("Apply(nil) error = %v", err)
	}

	after, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reading state file: %v", err)
	}
	if string(before) != string(after) {
		t.Error("file changed on empty mutation list")
	}
	if backups := listBackups(t, store); len(backups) != 0 {
		t.Errorf("backups = %d, want 0 for empty mutation list", len(backups))
	}
}

func TestStoreApplyCreatesBackup(t *testing.T) {
	dir := t.TempDir()
	store := writeStateFixture(t, dir, "main", fixtureState)

	before, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	mutations := []Mutation{{EntityID: "light.kitchen", RoomName: "Kitchen"}}
	if err := store.Apply(state, mutations); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	backups := listBackups(t, store)
	if len(backups) != 1 {
		t.Fatalf("backups = %d, want 1", len(backups))
	}
	backup, err := os.ReadFile(backups[0])
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(backup) != string(before) {
		t.Error("backup content differs from pre-mutation state")
	}
}

func TestStoreBackupRetention(t *testing.T) {
	dir := t.TempDir()
	store := writeStateFixture(t, dir, "main", fixtureState)
	const retain = 3

	rooms := []string{"A", "B", "C", "D", "E"}
	for _, room := range rooms {
		state, err := store.Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		mutations := []Mutation{{EntityID: "light.kitchen", RoomName: room}}
		if err := store.Apply(state, mutations); err != nil {
			t.Fatalf("Apply(%s) error = %v", room, err)
		}
	}

	if backups := listBackups(t, store); len(backups) != retain {
		t.Errorf("backups = %d, want %d after pruning", len(backups), retain)
	}
}

func TestStoreApplyIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := writeStateFixture(t, dir, "main", fixtureState)

	mutations := []Mutation{{EntityID: "light.kitchen", RoomName: "Kitchen"}}
	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := store.Apply(state, mutations); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}

	// A second diff over the rewritten file must find nothing.
	reloaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	desired := []DesiredAssignment{
		{EntityID: "light.kitchen", Decision: assignRoom("Kitchen")},
	}
	if again := Diff(desired, reloaded); len(again) != 0 {
		t.Errorf("Diff after apply = %v, want empty", again)
	}
}

func listBackups(t *testing.T, store *Store) []string {
	t.Helper()
	matches, err := filepath.Glob(store.Path() + backupInfix + "*")
	if err != nil {
		t.Fatalf("globbing backups: %v", err)
	}
	return matches
}

func TestDiscoverBridges(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"homekit.main.state",
		"homekit.garage.state",
		"homekit.main.state.backup.1724800000000000000",
		"core.entity_registry",
		"homekit.",
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	bridges, err := DiscoverBridges(dir)
	if err != nil {
		t.Fatalf("DiscoverBridges() error = %v", err)
	}
	want := []string{"garage", "main"}
	if !reflect.DeepEqual(bridges, want) {
		t.Errorf("DiscoverBridges() = %v, want %v", bridges, want)
	}
}

func TestDiscoverBridgesMissingDir(t *testing.T) {
	_, err := DiscoverBridges(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("DiscoverBridges() error = %v, want ErrStorageUnavailable", err)
	}
}
