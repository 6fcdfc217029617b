// Package homekit keeps HomeKit bridge state files consistent with the
// Home Assistant registries.
//
// The pipeline has four pieces:
//
//   - Store reads and atomically rewrites one bridge's state file
//     (.storage/homekit.<bridge>.state), preserving every field it does
//     not own and taking a pruned, timestamped backup before each write.
//   - ResolveRoom / DesiredAssignments compute the room each entity
//     should have, with entity area taking precedence over device area
//     over the configured default room.
//   - Diff reduces desired assignments to the minimal set of room_name
//     mutations against the current file.
//   - Coordinator debounces registry change triggers and drives the
//     pipeline, requesting one bridge reload per cycle that wrote
//     mutations. Manager holds one coordinator per bridge.
//
// A cycle with nothing to change writes nothing and requests no reload.
package homekit
