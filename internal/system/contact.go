package system

import (
	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/world"
)

// ContactProducer makes contact-damage dealers hurt every neighbour of a
// different role. Dealers with self damage also hurt themselves when they
// touch something or face a wall along their velocity.
type ContactProducer struct{}

func NewContactProducer() *ContactProducer { return &ContactProducer{} }

func (p *ContactProducer) Name() string { return "contact" }

func (p *ContactProducer) Produce(_ coresys.TickInfo, w world.Reader, out *action.Buffer) {
	for _, id := range w.WithContact() {
		c, _ := w.Contact(id)
		role := w.Role(id)
		touched := false
		for _, n := range w.Neighbours(id) {
			if _, ok := w.Health(n); !ok {
				continue
			}
			touched = true
			if c.Amount > 0 && w.Role(n) != role {
				out.Submit(id, action.Damage{Target: n, Amount: c.Amount, Type: c.Kind})
			}
		}
		if c.SelfAmount > 0 && (touched || facingWall(id, w)) {
			out.Submit(id, action.Damage{Target: id, Amount: c.SelfAmount, Type: c.SelfKind})
		}
	}
}

func facingWall(id ecs.EntityID, w world.Reader) bool {
	v, ok := w.Velocity(id)
	if !ok || v.IsZero() {
		return false
	}
	at, _ := w.Position(id)
	return !w.Walkable(at.Add(v.Step()))
}
