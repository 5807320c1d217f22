// Package saga holds the correlation-keyed workflow state machines. Each
// workflow is a pure transition function (state, event) -> (state, effects);
// the runtime persists the instance snapshot and executes the effects, so
// transitions stay unit-testable without I/O.
package saga

import "github.com/google/uuid"

// Effect is an event to publish after a transition has been persisted.
type Effect struct {
	Topic string
	Key   uuid.UUID
	Event any
}
