package event

import "github.com/sandbox/server/internal/core/ecs"

// Died is emitted when an applied effect drops an entity's health to zero.
type Died struct {
	Tick   uint64
	Entity ecs.EntityID
	Name   string
}

// Despawned is emitted when the cleanup stage removes an entity from the world.
type Despawned struct {
	Tick   uint64
	Entity ecs.EntityID
}
