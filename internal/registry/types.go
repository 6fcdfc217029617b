package registry

// Entity is one Home Assistant entity registry entry, reduced to the
// fields room resolution needs.
type Entity struct {
	// ID is the entity id, e.g. "light.kitchen".
	ID string `json:"entity_id"`

	// DeviceID references the owning device, if any.
	DeviceID *string `json:"device_id,omitempty"`

	// AreaID is the entity's direct area assignment, if any. It takes
	// precedence over the device's area.
	AreaID *string `json:"area_id,omitempty"`
}

// Device is one device registry entry.
type Device struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	AreaID *string `json:"area_id,omitempty"`
}

// Area is one area registry entry. Renames change Name but never ID.
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Snapshot is a point-in-time copy of all three registries, used for
// one resolution pass. It is fully detached from the live mirror:
// callers can hold it across a sync cycle without locking.
type Snapshot struct {
	Entities map[string]Entity
	Devices  map[string]Device
	Areas    map[string]Area
}

// Entity returns the entity with the given id, if present.
func (s Snapshot) Entity(id string) (Entity, bool) {
	e, ok := s.Entities[id]
	return e, ok
}

// Device returns the device with the given id, if present.
func (s Snapshot) Device(id string) (Device, bool) {
	d, ok := s.Devices[id]
	return d, ok
}

// Area returns the area with the given id, if present.
func (s Snapshot) Area(id string) (Area, bool) {
	a, ok := s.Areas[id]
	return a, ok
}
