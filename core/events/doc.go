// Package events defines the engine events published on the event bus after a
// store transaction commits.
//
// Available event types:
//   - AllocationEvent: outcome of an allocation request
//   - DisruptionApplied: a handled disruption and its result
//   - GateStateEvent: a gate added or its availability changed
package events
