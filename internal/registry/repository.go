package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository defines the interface for registry mirror persistence.
//
// The mirror is write-through: every applied event is persisted so the
// daemon can resolve rooms immediately after a restart, before the
// event stream has replayed anything.
type Repository interface {
	UpsertEntity(ctx context.Context, e Entity) error
	DeleteEntity(ctx context.Context, id string) error
	ListEntities(ctx context.Context) ([]Entity, error)

	UpsertDevice(ctx context.Context, d Device) error
	DeleteDevice(ctx context.Context, id string) error
	ListDevices(ctx context.Context) ([]Device, error)

	UpsertArea(ctx context.Context, a Area) error
	DeleteArea(ctx context.Context, id string) error
	ListAreas(ctx context.Context) ([]Area, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed registry repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// UpsertEntity inserts or replaces an entity registry entry.
func (r *SQLiteRepository) UpsertEntity(ctx context.Context, e Entity) error {
	const query = `INSERT INTO entities (entity_id, device_id, area_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			device_id = excluded.device_id,
			area_id = excluded.area_id,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, nullStr(e.DeviceID), nullStr(e.AreaID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting entity %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEntity removes an entity registry entry.
func (r *SQLiteRepository) DeleteEntity(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM entities WHERE entity_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	return nil
}

// ListEntities returns all persisted entity registry entries.
func (r *SQLiteRepository) ListEntities(ctx context.Context) ([]Entity, error) {
	const query = `SELECT entity_id, device_id, area_id FROM entities ORDER BY entity_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		var deviceID, areaID sql.NullString
		if err := rows.Scan(&e.ID, &deviceID, &areaID); err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		e.DeviceID = strPtr(deviceID)
		e.AreaID = strPtr(areaID)
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}
	return entities, nil
}

// UpsertDevice inserts or replaces a device registry entry.
func (r *SQLiteRepository) UpsertDevice(ctx context.Context, d Device) error {
	const query = `INSERT INTO devices (device_id, name, area_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			name = excluded.name,
			area_id = excluded.area_id,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.Name, nullStr(d.AreaID), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting device %s: %w", d.ID, err)
	}
	return nil
}

// DeleteDevice removes a device registry entry.
func (r *SQLiteRepository) DeleteDevice(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device %s: %w", id, err)
	}
	return nil
}

// ListDevices returns all persisted device registry entries.
func (r *SQLiteRepository) ListDevices(ctx context.Context) ([]Device, error) {
	const query = `SELECT device_id, name, area_id FROM devices ORDER BY device_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		var areaID sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &areaID); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		d.AreaID = strPtr(areaID)
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// UpsertArea inserts or replaces an area registry entry.
func (r *SQLiteRepository) UpsertArea(ctx context.Context, a Area) error {
	const query = `INSERT INTO areas (area_id, name, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(area_id) DO UPDATE SET
			name = excluded.name,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.Name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upserting area %s: %w", a.ID, err)
	}
	return nil
}

// DeleteArea removes an area registry entry.
func (r *SQLiteRepository) DeleteArea(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM areas WHERE area_id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting area %s: %w", id, err)
	}
	return nil
}

// ListAreas returns all persisted area registry entries.
func (r *SQLiteRepository) ListAreas(ctx context.Context) ([]Area, error) {
	const query = `SELECT area_id, name FROM areas ORDER BY area_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scanning area row: %w", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating area rows: %w", err)
	}
	return areas, nil
}

// nullStr converts a *string to a sql.NullString for nullable columns.
func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// strPtr converts a sql.NullString back to a *string.
func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
