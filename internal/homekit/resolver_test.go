package homekit

import (
	"reflect"
	"testing"

	"github.com/nerrad567/homekit-room-sync/internal/registry"
)

func strp(s string) *string { return &s }

// testSnapshot builds a snapshot with a device in the hall and areas
// for kitchen and hall.
func testSnapshot(entities ...registry.Entity) registry.Snapshot {
	snap := registry.Snapshot{
		Entities: make(map[string]registry.Entity),
		Devices: map[string]registry.Device{
			"dev_hall": {ID: "dev_hall", Name: "Hub", AreaID: strp("hall")},
			"dev_bare": {ID: "dev_bare", Name: "Sensor"},
		},
		Areas: map[string]registry.Area{
			"kitchen": {ID: "kitchen", Name: "Kitchen"},
			"hall":    {ID: "hall", Name: "Hallway"},
			"unnamed": {ID: "unnamed", Name: ""},
		},
	}
	for _, e := range entities {
		snap.Entities[e.ID] = e
	}
	return snap
}

func TestResolveRoomPrecedence(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name        string
		entity      registry.Entity
		defaultRoom string
		want        RoomDecision
	}{
		{
			name:   "direct area wins over device area",
			entity: registry.Entity{ID: "light.a", AreaID: strp("kitchen"), DeviceID: strp("dev_hall")},
			want:   assignRoom("Kitchen"),
		},
		{
			name:   "device area when no direct area",
			entity: registry.Entity{ID: "light.b", DeviceID: strp("dev_hall")},
			want:   assignRoom("Hallway"),
		},
		{
			name:        "default room when no areas",
			entity:      registry.Entity{ID: "light.c"},
			defaultRoom: "Office",
			want:        assignRoom("Office"),
		},
		{
			name:   "no change when nothing applies",
			entity: registry.Entity{ID: "light.d"},
			want:   noChange,
		},
		{
			name:        "direct area wins over default",
			entity:      registry.Entity{ID: "light.e", AreaID: strp("hall")},
			defaultRoom: "Office",
			want:        assignRoom("Hallway"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRoom(tt.entity, snap, tt.defaultRoom)
			if got != tt.want {
				t.Errorf("ResolveRoom() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveRoomDanglingReferences(t *testing.T) {
	snap := testSnapshot()

	tests := []struct {
		name        string
		entity      registry.Entity
		defaultRoom string
		want        RoomDecision
	}{
		{
			name:   "dangling direct area falls through to device",
			entity: registry.Entity{ID: "light.a", AreaID: strp("gone"), DeviceID: strp("dev_hall")},
			want:   assignRoom("Hallway"),
		},
		{
			name:        "dangling device falls through to default",
			entity:      registry.Entity{ID: "light.b", DeviceID: strp("gone")},
			defaultRoom: "Office",
			want:        assignRoom("Office"),
		},
		{
			name:   "device without area falls through",
			entity: registry.Entity{ID: "light.c", DeviceID: strp("dev_bare")},
			want:   noChange,
		},
		{
			name:        "empty area name falls through",
			entity:      registry.Entity{ID: "light.d", AreaID: strp("unnamed")},
			defaultRoom: "Office",
			want:        assignRoom("Office"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRoom(tt.entity, snap, tt.defaultRoom)
			if got != tt.want {
				t.Errorf("ResolveRoom() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDesiredAssignmentsSortedAndComplete(t *testing.T) {
	snap := testSnapshot(
		registry.Entity{ID: "switch.b"},
		registry.Entity{ID: "light.a", AreaID: strp("kitchen")},
		registry.Entity{ID: "sensor.c", DeviceID: strp("dev_hall")},
	)

	got := DesiredAssignments(snap, "")
	want := []DesiredAssignment{
		{EntityID: "light.a", Decision: assignRoom("Kitchen")},
		{EntityID: "sensor.c", Decision: assignRoom("Hallway")},
		{EntityID: "switch.b", Decision: noChange},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DesiredAssignments() = %+v, want %+v", got, want)
	}
}
