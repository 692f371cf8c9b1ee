package system

import (
	"github.com/sandbox/server/internal/core/action"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/world"
)

// ProjectileProducer asks every entity with a velocity to move by it.
type ProjectileProducer struct{}

func NewProjectileProducer() *ProjectileProducer { return &ProjectileProducer{} }

func (p *ProjectileProducer) Name() string { return "projectile" }

func (p *ProjectileProducer) Produce(_ coresys.TickInfo, w world.Reader, out *action.Buffer) {
	for _, id := range w.WithVelocity() {
		v, _ := w.Velocity(id)
		if v.IsZero() || !w.Alive(id) {
			continue
		}
		out.Submit(id, action.Move{Delta: v})
	}
}
