package system

import (
	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/world"
)

// ChaseProducer steers chasers one cell toward the nearest player every
// `every` ticks. Chasers already next to their target hold still.
type ChaseProducer struct {
	every    uint64
	maxNodes int
}

func NewChaseProducer(every uint64, maxNodes int) *ChaseProducer {
	return &ChaseProducer{every: max(every, 1), maxNodes: max(maxNodes, 1)}
}

func (p *ChaseProducer) Name() string { return "chase" }

func (p *ChaseProducer) Produce(info coresys.TickInfo, w world.Reader, out *action.Buffer) {
	if info.Tick%p.every != 0 {
		return
	}
	players := w.WithRole(world.RolePlayer)
	if len(players) == 0 {
		return
	}
	for _, id := range w.WithRole(world.RoleChaser) {
		if !w.Alive(id) || !w.Mobile(id) {
			continue
		}
		from, ok := w.Position(id)
		if !ok {
			continue
		}
		goal, ok := nearest(from, players, w)
		if !ok || geom.Chebyshev(from, goal) <= 1 {
			continue
		}
		path, ok := findPath(from, goal, func(c geom.Cell) bool {
			if !w.Walkable(c) {
				return false
			}
			_, occupied := w.OccupantAt(c)
			return !occupied
		}, p.maxNodes)
		if !ok || len(path) == 0 {
			continue
		}
		out.Submit(id, action.Move{Delta: path[0].Sub(from)})
	}
}

// nearest picks the closest live player by Chebyshev distance, lowest id on
// ties (players arrive in ascending id order).
func nearest(from geom.Cell, players []ecs.EntityID, w world.Reader) (geom.Cell, bool) {
	var best geom.Cell
	bestDist := int32(-1)
	for _, pl := range players {
		if !w.Alive(pl) {
			continue
		}
		at, ok := w.Position(pl)
		if !ok {
			continue
		}
		if d := geom.Chebyshev(from, at); bestDist < 0 || d < bestDist {
			best, bestDist = at, d
		}
	}
	return best, bestDist >= 0
}
