package homekit

import (
	"sort"

	"github.com/nerrad567/homekit-room-sync/internal/registry"
)

// RoomDecision is the outcome of resolving one entity's room.
//
// Assign false means "leave the bridge's current value untouched",
// never "clear the room".
type RoomDecision struct {
	Room   string
	Assign bool
}

// assignRoom returns an Assign decision for a room name.
func assignRoom(name string) RoomDecision {
	return RoomDecision{Room: name, Assign: true}
}

// noChange is the explicit leave-it-alone decision.
var noChange = RoomDecision{}

// ResolveRoom computes the desired room for one entity.
//
// Precedence, first match wins:
//  1. The entity's direct area, if it resolves to a non-empty area name.
//  2. The entity's device's area, if it resolves to a non-empty name.
//  3. The configured default room, if non-empty.
//  4. NoChange.
//
// The function is pure and total. Dangling device or area references
// degrade to the next rule, never error.
func ResolveRoom(entity registry.Entity, snap registry.Snapshot, defaultRoom string) RoomDecision {
	if entity.AreaID != nil {
		if area, ok := snap.Area(*entity.AreaID); ok && area.Name != "" {
			return assignRoom(area.Name)
		}
	}

	if entity.DeviceID != nil {
		if device, ok := snap.Device(*entity.DeviceID); ok && device.AreaID != nil {
			if area, ok := snap.Area(*device.AreaID); ok && area.Name != "" {
				return assignRoom(area.Name)
			}
		}
	}

	if defaultRoom != "" {
		return assignRoom(defaultRoom)
	}

	return noChange
}

// DesiredAssignment pairs an entity with its resolved room decision.
type DesiredAssignment struct {
	EntityID string
	Decision RoomDecision
}

// DesiredAssignments resolves every entity in the snapshot.
// Output is ordered by entity id so a cycle's result is deterministic.
func DesiredAssignments(snap registry.Snapshot, defaultRoom string) []DesiredAssignment {
	ids := make([]string, 0, len(snap.Entities))
	for id := range snap.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	assignments := make([]DesiredAssignment, 0, len(ids))
	for _, id := range ids {
		entity := snap.Entities[id]
		assignments = append(assignments, DesiredAssignment{
			EntityID: id,
			Decision: ResolveRoom(entity, snap, defaultRoom),
		})
	}
	return assignments
}
