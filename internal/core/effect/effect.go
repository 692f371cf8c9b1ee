// Package effect holds the resolved side of the tick pipeline: effect records
// and the per-tick write ledger that guards the apply stage.
package effect

import (
	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

// Component names an authoritative component an effect writes.
type Component uint8

const (
	CompPosition Component = iota + 1
	CompFacing
	CompVelocity
	CompHealth
)

func (c Component) String() string {
	switch c {
	case CompPosition:
		return "position"
	case CompFacing:
		return "facing"
	case CompVelocity:
		return "velocity"
	case CompHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Payload is the kind-specific outcome. Payloads carry absolute values so
// applying one twice leaves the component where the first apply put it.
type Payload interface {
	Kind() action.Kind
	Writes() []Component
}

// Moved relocates an entity. Velocity is set only for projectiles whose
// velocity changed on a blocked move.
type Moved struct {
	From      geom.Cell
	To        geom.Cell
	Facing    geom.Facing
	Truncated bool
	Velocity  *geom.Vec
}

func (Moved) Kind() action.Kind { return action.KindMove }

func (m Moved) Writes() []Component {
	if m.Velocity != nil {
		return []Component{CompPosition, CompFacing, CompVelocity}
	}
	return []Component{CompPosition, CompFacing}
}

// HealthSet sets the current health of an entity.
type HealthSet struct {
	Current int32
	Max     int32
	// Taken is the total damage folded into this effect, for reporting.
	Taken int32
}

func (HealthSet) Kind() action.Kind { return action.KindDamage }

func (HealthSet) Writes() []Component { return []Component{CompHealth} }

// Effect is the authoritative outcome for one entity. Cause is the Seq of the
// first action it was derived from.
type Effect struct {
	Tick    uint64
	Entity  ecs.EntityID
	Cause   uint64
	Payload Payload
}

func (e Effect) Kind() action.Kind {
	if e.Payload == nil {
		return 0
	}
	return e.Payload.Kind()
}

// From builds an effect caused by a.
func From(a action.Action, entity ecs.EntityID, p Payload) Effect {
	return Effect{Tick: a.Tick, Entity: entity, Cause: a.Seq, Payload: p}
}
