package registry

import (
	"context"
	"errors"
	"testing"
)

// mockRepository is an in-memory Repository for registry tests.
type mockRepository struct {
	entities map[string]Entity
	devices  map[string]Device
	areas    map[string]Area

	failUpsert bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		entities: make(map[string]Entity),
		devices:  make(map[string]Device),
		areas:    make(map[string]Area),
	}
}

var errMockUpsert = errors.New("mock upsert failure")

func (m *mockRepository) UpsertEntity(_ context.Context, e Entity) error {
	if m.failUpsert {
		return errMockUpsert
	}
	m.entities[e.ID] = e
	return nil
}

func (m *mockRepository) DeleteEntity(_ context.Context, id string) error {
	delete(m.entities, id)
	return nil
}

func (m *mockRepository) ListEntities(_ context.Context) ([]Entity, error) {
	out := make([]Entity, 0, len(m.entities))
	for _, e := range m.entities {
		out = append(out, e)
	}
	return out, nil
}

func (m *mockRepository) UpsertDevice(_ context.Context, d Device) error {
	if m.failUpsert {
		return errMockUpsert
	}
	m.devices[d.ID] = d
	return nil
}

func (m *mockRepository) DeleteDevice(_ context.Context, id string) error {
	delete(m.devices, id)
	return nil
}

func (m *mockRepository) ListDevices(_ context.Context) ([]Device, error) {
	out := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockRepository) UpsertArea(_ context.Context, a Area) error {
	if m.failUpsert {
		return errMockUpsert
	}
	m.areas[a.ID] = a
	return nil
}

func (m *mockRepository) DeleteArea(_ context.Context, id string) error {
	delete(m.areas, id)
	return nil
}

func (m *mockRepository) ListAreas(_ context.Context) ([]Area, error) {
	out := make([]Area, 0, len(m.areas))
	for _, a := range m.areas {
		out = append(out, a)
	}
	return out, nil
}

func strp(s string) *string { return &s }

func TestRegistryLoad(t *testing.T) {
	repo := newMockRepository()
	repo.entities["light.kitchen"] = Entity{ID: "light.kitchen", AreaID: strp("kitchen")}
	repo.devices["dev1"] = Device{ID: "dev1", Name: "Hue", AreaID: strp("hall")}
	repo.areas["kitchen"] = Area{ID: "kitchen", Name: "Kitchen"}

	reg := NewRegistry(repo)
	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	snap := reg.Snapshot()
	if len(snap.Entities) != 1 || len(snap.Devices) != 1 || len(snap.Areas) != 1 {
		t.Errorf("snapshot sizes = %d/%d/%d, want 1/1/1",
			len(snap.Entities), len(snap.Devices), len(snap.Areas))
	}
	if a, ok := snap.Area("kitchen"); !ok || a.Name != "Kitchen" {
		t.Errorf("Area(kitchen) = %+v, %v", a, ok)
	}
}

func TestRegistryApplyWritesThrough(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)

	ev := Event{
		Type:   EventEntityRegistryUpdated,
		Action: ActionCreate,
		ID:     "light.kitchen",
		Entity: &Entity{ID: "light.kitchen", AreaID: strp("kitchen")},
	}
	if err := reg.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if _, ok := repo.entities["light.kitchen"]; !ok {
		t.Error("entity not persisted to repository")
	}
	if _, ok := reg.Snapshot().Entity("light.kitchen"); !ok {
		t.Error("entity not cached in mirror")
	}
}

func TestRegistryApplyRemove(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	create := Event{
		Type:   EventAreaRegistryUpdated,
		Action: ActionCreate,
		ID:     "kitchen",
		Area:   &Area{ID: "kitchen", Name: "Kitchen"},
	}
	if err := reg.Apply(ctx, create); err != nil {
		t.Fatalf("Apply(create) error = %v", err)
	}

	remove := Event{Type: EventAreaRegistryUpdated, Action: ActionRemove, ID: "kitchen"}
	if err := reg.Apply(ctx, remove); err != nil {
		t.Fatalf("Apply(remove) error = %v", err)
	}

	if _, ok := reg.Snapshot().Area("kitchen"); ok {
		t.Error("area still cached after remove")
	}
	if _, ok := repo.areas["kitchen"]; ok {
		t.Error("area still persisted after remove")
	}
}

func TestRegistryApplyRepositoryFailure(t *testing.T) {
	repo := newMockRepository()
	repo.failUpsert = true
	reg := NewRegistry(repo)

	notified := false
	reg.Subscribe(func(Event) { notified = true })

	ev := Event{
		Type:   EventDeviceRegistryUpdated,
		Action: ActionCreate,
		ID:     "dev1",
		Device: &Device{ID: "dev1", Name: "Hue"},
	}
	if err := reg.Apply(context.Background(), ev); !errors.Is(err, errMockUpsert) {
		t.Fatalf("Apply() error = %v, want errMockUpsert", err)
	}

	if _, ok := reg.Snapshot().Device("dev1"); ok {
		t.Error("cache mutated despite repository failure")
	}
	if notified {
		t.Error("subscriber notified despite repository failure")
	}
}

func TestRegistrySubscribe(t *testing.T) {
	reg := NewRegistry(newMockRepository())

	var got []Event
	unsub := reg.Subscribe(func(ev Event) { got = append(got, ev) })

	ev := Event{
		Type:   EventAreaRegistryUpdated,
		Action: ActionUpdate,
		ID:     "kitchen",
		Area:   &Area{ID: "kitchen", Name: "Cocina"},
	}
	if err := reg.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "kitchen" {
		t.Fatalf("subscriber got %d events, want 1 for kitchen", len(got))
	}

	unsub()
	if err := reg.Apply(context.Background(), ev); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("subscriber got %d events after unsubscribe, want 1", len(got))
	}
}

func TestRegistrySnapshotIsDetached(t *testing.T) {
	repo := newMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	ev := Event{
		Type:   EventEntityRegistryUpdated,
		Action: ActionCreate,
		ID:     "light.kitchen",
		Entity: &Entity{ID: "light.kitchen", AreaID: strp("kitchen")},
	}
	if err := reg.Apply(ctx, ev); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	snap := reg.Snapshot()
	delete(snap.Entities, "light.kitchen")

	if _, ok := reg.Snapshot().Entity("light.kitchen"); !ok {
		t.Error("mutating a snapshot affected the live mirror")
	}
}
