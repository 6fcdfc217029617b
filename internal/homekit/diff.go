package homekit

// Mutation is one actionable room_name change for one accessory.
type Mutation struct {
	EntityID string
	RoomName string
}

// Diff compares desired assignments against the bridge's current state
// and returns the minimal mutation set.
//
// An entity is included only if the resolver assigned it a room, the
// bridge knows the entity, and the persisted room_name differs
// (case-sensitive). Entities the bridge has not registered yet are
// skipped; they are picked up once they appear in the state file.
// Output order follows the desired assignment order.
func Diff(desired []DesiredAssignment, state *StateFile) []Mutation {
	var mutations []Mutation
	for _, d := range desired {
		if !d.Decision.Assign {
			continue
		}
		if !state.Has(d.EntityID) {
			continue
		}
		current, _ := state.RoomName(d.EntityID)
		if current == d.Decision.Room {
			continue
		}
		mutations = append(mutations, Mutation{
			EntityID: d.EntityID,
			RoomName: d.Decision.Room,
		})
	}
	return mutations
}
