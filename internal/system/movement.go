package system

import (
	"cmp"
	"slices"

	"go.uber.org/zap"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/effect"
	"github.com/sandbox/server/internal/core/geom"
	"github.com/sandbox/server/internal/world"
)

// MoveResolver turns move requests into Moved effects.
//
// Only the first move an entity submits in a tick counts. Moves are then
// walked in ascending entity id order, one Chebyshev step at a time
// (diagonal first). A step is blocked by walls, the level edge, any cell
// occupied at the start of the tick by another entity, and any destination
// claimed earlier this tick. A blocked move stops on the last free cell; a
// move that cannot leave its origin produces nothing, except for projectiles,
// which stay put and bounce.
type MoveResolver struct {
	maxStep int32
	log     *zap.Logger
}

func NewMoveResolver(maxStep int32, log *zap.Logger) *MoveResolver {
	return &MoveResolver{maxStep: max(maxStep, 1), log: log}
}

func (r *MoveResolver) Kind() action.Kind { return action.KindMove }

func (r *MoveResolver) Resolve(actions []action.Action, w world.Reader) []effect.Effect {
	seen := make(map[ecs.EntityID]struct{}, len(actions))
	valid := make([]action.Action, 0, len(actions))
	for _, a := range actions {
		if _, dup := seen[a.Entity]; dup {
			r.log.Debug("move dropped: duplicate", zap.Stringer("entity", a.Entity), zap.Uint64("seq", a.Seq))
			continue
		}
		seen[a.Entity] = struct{}{}
		if reason := r.check(a, w); reason != "" {
			r.log.Debug("move dropped", zap.String("reason", reason),
				zap.Stringer("entity", a.Entity), zap.Uint64("seq", a.Seq))
			continue
		}
		valid = append(valid, a)
	}

	slices.SortStableFunc(valid, func(a, b action.Action) int { return cmp.Compare(a.Entity, b.Entity) })

	claimed := make(map[geom.Cell]ecs.EntityID, len(valid))
	effects := make([]effect.Effect, 0, len(valid))
	for _, a := range valid {
		from, _ := w.Position(a.Entity)
		target := from.Add(a.Payload.(action.Move).Delta)

		free := func(c geom.Cell) bool {
			if !w.Walkable(c) {
				return false
			}
			if id, ok := w.OccupantAt(c); ok && id != a.Entity {
				return false
			}
			_, taken := claimed[c]
			return !taken
		}

		at := from
		var blocked geom.Vec
		for at != target {
			step := target.Sub(at).Step()
			next := at.Add(step)
			if !free(next) {
				blocked = step
				break
			}
			at = next
		}
		truncated := !blocked.IsZero()

		vel, projectile := w.Velocity(a.Entity)
		var bounced *geom.Vec
		if truncated && projectile {
			v := bounce(vel, at, blocked, free)
			bounced = &v
		}
		if at == from && bounced == nil {
			r.log.Debug("move dropped: blocked at origin", zap.Stringer("entity", a.Entity), zap.Uint64("seq", a.Seq))
			continue
		}

		facing := geom.FacingOf(at.Sub(from))
		if facing == geom.FacingStationary {
			facing, _ = w.Facing(a.Entity)
		}
		claimed[at] = a.Entity
		effects = append(effects, effect.From(a, a.Entity, effect.Moved{
			From:      from,
			To:        at,
			Facing:    facing,
			Truncated: truncated,
			Velocity:  bounced,
		}))
	}
	return effects
}

func (r *MoveResolver) check(a action.Action, w world.Reader) string {
	mv, ok := a.Payload.(action.Move)
	switch {
	case !ok:
		return "payload"
	case !w.Alive(a.Entity):
		return "dead"
	case !w.Mobile(a.Entity):
		return "immobile"
	case mv.Delta.IsZero():
		return "zero"
	case mv.Delta.Len() > r.maxStep:
		return "too far"
	}
	if _, ok := w.Position(a.Entity); !ok {
		return "no position"
	}
	return ""
}

// bounce flips the velocity components facing the obstacle hit while
// stepping in dir from at. A head-on corner flips both.
func bounce(v geom.Vec, at geom.Cell, dir geom.Vec, free func(geom.Cell) bool) geom.Vec {
	out := v
	flipped := false
	if dir.DX != 0 && !free(at.Add(geom.Vec{DX: dir.DX})) {
		out.DX = -out.DX
		flipped = true
	}
	if dir.DY != 0 && !free(at.Add(geom.Vec{DY: dir.DY})) {
		out.DY = -out.DY
		flipped = true
	}
	if !flipped {
		out = out.Neg()
	}
	return out
}

// MoveApplier commits Moved effects.
type MoveApplier struct {
	log *zap.Logger
}

func NewMoveApplier(log *zap.Logger) *MoveApplier { return &MoveApplier{log: log} }

func (a *MoveApplier) Kind() action.Kind { return action.KindMove }

func (a *MoveApplier) Apply(effects []effect.Effect, w world.Writer) {
	for _, e := range effects {
		mv, ok := e.Payload.(effect.Moved)
		if !ok || !w.Alive(e.Entity) {
			continue
		}
		if !w.SetPosition(e.Entity, mv.To) {
			a.log.Warn("move apply: cell taken",
				zap.Uint64("tick", e.Tick), zap.Stringer("entity", e.Entity), zap.Stringer("to", mv.To))
			continue
		}
		w.SetFacing(e.Entity, mv.Facing)
		if mv.Velocity != nil {
			w.SetVelocity(e.Entity, *mv.Velocity)
		}
	}
}
