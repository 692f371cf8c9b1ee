// Package action holds the proposal side of the tick pipeline: tagged action
// payloads, producer buffers and the per-kind queue drained by resolvers.
package action

import (
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

// Kind tags an action payload. The set is closed; resolvers and appliers are
// registered per kind.
type Kind uint8

const (
	KindMove Kind = iota + 1
	KindDamage

	kindCount
)

// Kinds lists every kind in resolution order.
func Kinds() []Kind {
	return []Kind{KindMove, KindDamage}
}

func (k Kind) Valid() bool { return k > 0 && k < kindCount }

func (k Kind) String() string {
	switch k {
	case KindMove:
		return "move"
	case KindDamage:
		return "damage"
	default:
		return "unknown"
	}
}

// Payload is the kind-specific body of an action.
type Payload interface {
	Kind() Kind
}

// Move asks to displace the proposing entity by Delta cells.
type Move struct {
	Delta geom.Vec
}

func (Move) Kind() Kind { return KindMove }

// DamageKind classifies damage so targets can be immune to some sources.
type DamageKind uint8

const (
	DamageMelee DamageKind = iota + 1
	DamageProjectile
	DamageImpact
)

func (d DamageKind) Mask() DamageMask { return DamageMask(1) << d }

func (d DamageKind) String() string {
	switch d {
	case DamageMelee:
		return "melee"
	case DamageProjectile:
		return "projectile"
	case DamageImpact:
		return "impact"
	default:
		return "unknown"
	}
}

// ParseDamageKind maps a data-file name to a DamageKind.
func ParseDamageKind(s string) (DamageKind, bool) {
	switch s {
	case "melee":
		return DamageMelee, true
	case "projectile":
		return DamageProjectile, true
	case "impact":
		return DamageImpact, true
	}
	return 0, false
}

// DamageMask is a set of damage kinds.
type DamageMask uint8

func (m DamageMask) Has(d DamageKind) bool { return m&d.Mask() != 0 }

// Damage asks to take Amount health from Target. The proposing entity is the source.
type Damage struct {
	Target ecs.EntityID
	Amount int32
	Type   DamageKind
}

func (Damage) Kind() Kind { return KindDamage }

// Action is one proposed change. Seq is the queue-wide submission order.
type Action struct {
	Seq     uint64
	Tick    uint64
	Entity  ecs.EntityID
	Payload Payload
}

func (a Action) Kind() Kind {
	if a.Payload == nil {
		return 0
	}
	return a.Payload.Kind()
}
