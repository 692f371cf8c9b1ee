package world

import "github.com/sandbox/server/internal/core/action"

// Role tells producers how an entity behaves.
type Role uint8

const (
	RoleProp Role = iota
	RolePlayer
	RoleChaser
	RoleProjectile
)

func (r Role) String() string {
	switch r {
	case RolePlayer:
		return "player"
	case RoleChaser:
		return "chaser"
	case RoleProjectile:
		return "projectile"
	default:
		return "prop"
	}
}

// ParseRole maps a data-file name to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "player":
		return RolePlayer, true
	case "chaser":
		return RoleChaser, true
	case "projectile":
		return RoleProjectile, true
	case "prop", "":
		return RoleProp, true
	}
	return 0, false
}

// Health is an entity's hit pool. Only damage kinds in Vulnerable hurt it.
type Health struct {
	Current    int32
	Max        int32
	Vulnerable action.DamageMask
}

// Contact deals damage to every neighbouring entity each tick, and optionally
// to the entity itself (projectiles wear out on impact).
type Contact struct {
	Amount     int32
	Kind       action.DamageKind
	SelfAmount int32
	SelfKind   action.DamageKind
}
