package homekit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// State file naming convention used by the HomeKit bridge integration.
const (
	// StateFilePrefix is prepended to the bridge id in the file name.
	StateFilePrefix = "homekit."

	// StateFileSuffix terminates every bridge state file name.
	StateFileSuffix = ".state"

	// backupInfix separates the state file name from the backup timestamp.
	backupInfix = ".backup."
)

// roomNameKey is the accessory field this daemon owns. Everything else
// in an accessory record belongs to the bridge and must round-trip
// unmodified.
const roomNameKey = "room_name"

// StateFile is one parsed bridge state document.
//
// The document is held as raw JSON at every level the daemon does not
// own: unknown top-level fields, unknown data fields, and every
// accessory field other than room_name pass through byte-identical.
// Object key order is canonicalized (sorted) when the file is rewritten.
type StateFile struct {
	top         map[string]json.RawMessage
	data        map[string]json.RawMessage
	accessories map[string]json.RawMessage
}

// Has reports whether the bridge knows the given entity.
func (s *StateFile) Has(entityID string) bool {
	_, ok := s.accessories[entityID]
	return ok
}

// RoomName returns the persisted room_name for an entity. The second
// return is false when the entity is unknown to the bridge or its
// record carries no string room_name.
func (s *StateFile) RoomName(entityID string) (string, bool) {
	raw, ok := s.accessories[entityID]
	if !ok {
		return "", false
	}
	record, err := decodeAccessory(raw)
	if err != nil {
		return "", false
	}
	var name string
	if err := json.Unmarshal(record[roomNameKey], &name); err != nil {
		return "", false
	}
	return name, true
}

// EntityIDs returns the bridge's known entity ids in sorted order.
func (s *StateFile) EntityIDs() []string {
	ids := make([]string, 0, len(s.accessories))
	for id := range s.accessories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func decodeAccessory(raw json.RawMessage) (map[string]json.RawMessage, error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// Store reads and writes one bridge's state file.
//
// A Store never creates or reinitializes the state file; the file is
// owned by the bridge and must exist before the first Load. All writes
// go through a backup, a temp file in the same directory, and an atomic
// rename, so a reader never observes a partially written file.
//
// Store is not safe for concurrent use; the Coordinator serializes all
// access for its bridge.
type Store struct {
	path         string
	backupRetain int
}

// NewStore creates a store for one bridge's state file.
//
// Parameters:
//   - storageDir: The bridge integration's storage directory
//   - bridgeID: The bridge instance name (file is homekit.<bridgeID>.state)
//   - backupRetain: Number of backups kept before pruning oldest first
func NewStore(storageDir, bridgeID string, backupRetain int) *Store {
	return &Store{
		path:         filepath.Join(storageDir, StateFilePrefix+bridgeID+StateFileSuffix),
		backupRetain: backupRetain,
	}
}

// Path returns the state file path this store is bound to.
func (s *Store) Path() string {
	return s.path
}

// Load reads and validates the bridge state file.
//
// Returns:
//   - *StateFile: Parsed document with all bridge-owned fields preserved
//   - error: ErrStorageUnavailable if missing/unreadable, ErrStorageCorrupt
//     if the document shape is wrong
func (s *Store) Load() (*StateFile, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, s.path, err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageCorrupt, s.path, err)
	}

	dataRaw, ok := top["data"]
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing data object", ErrStorageCorrupt, s.path)
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(dataRaw, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: data is not an object: %w", ErrStorageCorrupt, s.path, err)
	}

	accRaw, ok := data["accessories"]
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing accessories mapping", ErrStorageCorrupt, s.path)
	}
	var accessories map[string]json.RawMessage
	if err := json.Unmarshal(accRaw, &accessories); err != nil {
		return nil, fmt.Errorf("%w: %s: accessories is not a mapping: %w", ErrStorageCorrupt, s.path, err)
	}

	return &StateFile{top: top, data: data, accessories: accessories}, nil
}

// Apply persists a set of room_name mutations.
//
// An empty mutation list is a no-op: no backup, no write. Otherwise the
// current file is copied to a timestamped backup (older backups pruned
// to the retention count), the mutations are applied in memory, and the
// document is written to a temp file and atomically renamed over the
// original.
//
// Returns ErrStorageWriteFailed if any step after the backup fails; the
// backup remains and the original file is untouched.
func (s *Store) Apply(state *StateFile, mutations []Mutation) error {
	if len(mutations) == 0 {
		return nil
	}

	if err := s.backup(); err != nil {
		return err
	}

	for _, m := range mutations {
		raw, ok := state.accessories[m.EntityID]
		if !ok {
			continue
		}
		record, err := decodeAccessory(raw)
		if err != nil {
			return fmt.Errorf("%w: accessory %s: %w", ErrStorageWriteFailed, m.EntityID, err)
		}
		name, err := json.Marshal(m.RoomName)
		if err != nil {
			return fmt.Errorf("%w: accessory %s: %w", ErrStorageWriteFailed, m.EntityID, err)
		}
		record[roomNameKey] = name
		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("%w: accessory %s: %w", ErrStorageWriteFailed, m.EntityID, err)
		}
		state.accessories[m.EntityID] = updated
	}

	accRaw, err := json.Marshal(state.accessories)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
	}
	state.data["accessories"] = accRaw

	dataRaw, err := json.Marshal(state.data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
	}
	state.top["data"] = dataRaw

	doc, err := json.MarshalIndent(state.top, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWriteFailed, err)
	}
	doc = append(doc, '\n')

	return s.writeAtomic(doc)
}

// backup copies the current state file to a timestamped sibling and
// prunes backups beyond the retention count, oldest first.
func (s *Store) backup() error {
	src, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: opening for backup: %w", ErrStorageWriteFailed, err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s%s%d", s.path, backupInfix, time.Now().UnixNano())
	dst, err := os.Create(backupPath)
	if err != nil {
		return fmt.Errorf("%w: creating backup: %w", ErrStorageWriteFailed, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return fmt.Errorf("%w: writing backup: %w", ErrStorageWriteFailed, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return fmt.Errorf("%w: closing backup: %w", ErrStorageWriteFailed, err)
	}

	s.pruneBackups()
	return nil
}

// pruneBackups removes the oldest backups beyond the retention count.
// Pruning is best-effort; a failure never aborts the write.
func (s *Store) pruneBackups() {
	matches, err := filepath.Glob(s.path + backupInfix + "*")
	if err != nil || len(matches) <= s.backupRetain {
		return
	}
	// Nanosecond suffixes are zero-padded by magnitude in practice, but
	// sort numerically to be exact.
	sort.Slice(matches, func(i, j int) bool {
		return backupStamp(matches[i]) < backupStamp(matches[j])
	})
	for _, old := range matches[:len(matches)-s.backupRetain] {
		os.Remove(old)
	}
}

func backupStamp(path string) int64 {
	idx := strings.LastIndex(path, backupInfix)
	if idx < 0 {
		return 0
	}
	var stamp int64
	fmt.Sscanf(path[idx+len(backupInfix):], "%d", &stamp)
	return stamp
}

// writeAtomic writes the document to a temp file in the state file's
// directory and renames it over the original.
func (s *Store) writeAtomic(doc []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrStorageWriteFailed, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: writing temp file: %w", ErrStorageWriteFailed, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: syncing temp file: %w", ErrStorageWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %w", ErrStorageWriteFailed, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: setting permissions: %w", ErrStorageWriteFailed, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: replacing state file: %w", ErrStorageWriteFailed, err)
	}
	return nil
}

// DiscoverBridges scans a storage directory for HomeKit bridge state
// files and returns the bridge names in sorted order.
//
// Used at startup when no bridges are configured explicitly.
func DiscoverBridges(storageDir string) ([]string, error) {
	entries, err := os.ReadDir(storageDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, storageDir, err)
	}

	var bridges []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, StateFilePrefix) || !strings.HasSuffix(name, StateFileSuffix) {
			continue
		}
		if strings.Contains(name, backupInfix) {
			continue
		}
		bridge := strings.TrimSuffix(strings.TrimPrefix(name, StateFilePrefix), StateFileSuffix)
		if bridge != "" {
			bridges = append(bridges, bridge)
		}
	}
	sort.Strings(bridges)
	return bridges, nil
}
