package system

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
	"github.com/sandbox/server/internal/world"
)

// arena builds a world from ASCII rows; '#' is a wall.
func arena(t *testing.T, rows ...string) *world.State {
	t.Helper()
	g, err := world.NewGrid(int32(len(rows[0])), int32(len(rows)))
	require.NoError(t, err)
	for y, row := range rows {
		for x := range row {
			if row[x] == '#' {
				g.SetWall(geom.Cell{X: int32(x), Y: int32(y)})
			}
		}
	}
	return world.NewState(g)
}

func walker(t *testing.T, s *world.State, name string, x, y int32) ecs.EntityID {
	t.Helper()
	id, err := s.Spawn(world.Spawn{Name: name, Role: world.RolePlayer, At: geom.Cell{X: x, Y: y}, Mobile: true,
		Health: &world.Health{Current: 5, Max: 5, Vulnerable: action.DamageMelee.Mask() | action.DamageProjectile.Mask()}})
	require.NoError(t, err)
	return id
}

func spawn(t *testing.T, s *world.State, sp world.Spawn) ecs.EntityID {
	t.Helper()
	id, err := s.Spawn(sp)
	require.NoError(t, err)
	return id
}

// actions stamps payloads with ascending sequence numbers for tick 1.
type submission struct {
	entity  ecs.EntityID
	payload action.Payload
}

func actions(subs ...submission) []action.Action {
	out := make([]action.Action, len(subs))
	for i, s := range subs {
		out[i] = action.Action{Seq: uint64(i + 1), Tick: 1, Entity: s.entity, Payload: s.payload}
	}
	return out
}

func move(id ecs.EntityID, dx, dy int32) submission {
	return submission{id, action.Move{Delta: geom.Vec{DX: dx, DY: dy}}}
}

func hit(src, target ecs.EntityID, amount int32, kind action.DamageKind) submission {
	return submission{src, action.Damage{Target: target, Amount: amount, Type: kind}}
}

func cell(x, y int32) geom.Cell { return geom.Cell{X: x, Y: y} }
