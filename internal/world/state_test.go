package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

func newTestState(t *testing.T) *State {
	t.Helper()
	g, err := NewGrid(5, 4)
	require.NoError(t, err)
	g.SetWall(geom.Cell{X: 2, Y: 0})
	return NewState(g)
}

func TestSpawnRejectsWallsOccupiedCellsAndDuplicateNames(t *testing.T) {
	s := newTestState(t)
	_, err := s.Spawn(Spawn{Name: "wall", At: geom.Cell{X: 2, Y: 0}})
	assert.ErrorIs(t, err, ErrCellBlocked)
	_, err = s.Spawn(Spawn{Name: "out", At: geom.Cell{X: 9, Y: 0}})
	assert.ErrorIs(t, err, ErrCellBlocked)

	id, err := s.Spawn(Spawn{Name: "hero", Role: RolePlayer, At: geom.Cell{X: 1, Y: 1}, Mobile: true,
		Health: &Health{Current: 5, Max: 5, Vulnerable: action.DamageMelee.Mask()}})
	require.NoError(t, err)

	_, err = s.Spawn(Spawn{Name: "other", At: geom.Cell{X: 1, Y: 1}})
	assert.ErrorIs(t, err, ErrCellBlocked)
	_, err = s.Spawn(Spawn{Name: "hero", At: geom.Cell{X: 3, Y: 1}})
	assert.ErrorIs(t, err, ErrDuplicateName)

	got, ok := s.Lookup("hero")
	require.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, RolePlayer, s.Role(id))
	assert.True(t, s.Mobile(id))
	assert.Equal(t, 1, s.Count())
}

func TestSetPositionKeepsOccupancyInStep(t *testing.T) {
	s := newTestState(t)
	a, err := s.Spawn(Spawn{Name: "a", At: geom.Cell{X: 0, Y: 0}})
	require.NoError(t, err)
	b, err := s.Spawn(Spawn{Name: "b", At: geom.Cell{X: 1, Y: 0}})
	require.NoError(t, err)

	assert.False(t, s.SetPosition(a, geom.Cell{X: 1, Y: 0}), "occupied by b")
	require.True(t, s.SetPosition(a, geom.Cell{X: 0, Y: 1}))

	occ, ok := s.OccupantAt(geom.Cell{X: 0, Y: 1})
	require.True(t, ok)
	assert.Equal(t, a, occ)
	_, ok = s.OccupantAt(geom.Cell{X: 0, Y: 0})
	assert.False(t, ok)
	assert.Equal(t, []ecs.EntityID{b}, s.Neighbours(a))
}

func TestDestroyedEntitiesLeaveEveryIndex(t *testing.T) {
	s := newTestState(t)
	id, err := s.Spawn(Spawn{Name: "z", Role: RoleChaser, At: geom.Cell{X: 3, Y: 3},
		Health: &Health{Current: 1, Max: 1}})
	require.NoError(t, err)

	s.MarkForDestruction(id)
	assert.True(t, s.PendingDestruction(id))
	assert.Equal(t, 1, len(s.FlushDestroyed()))

	assert.False(t, s.Alive(id))
	_, ok := s.Lookup("z")
	assert.False(t, ok)
	_, ok = s.OccupantAt(geom.Cell{X: 3, Y: 3})
	assert.False(t, ok)
	assert.Empty(t, s.WithRole(RoleChaser))
	assert.Empty(t, s.Entities())
}

func TestSetHealthClamps(t *testing.T) {
	s := newTestState(t)
	id, err := s.Spawn(Spawn{At: geom.Cell{X: 0, Y: 0}, Health: &Health{Current: 3, Max: 3}})
	require.NoError(t, err)
	s.SetHealth(id, -4)
	h, _ := s.Health(id)
	assert.Equal(t, int32(0), h.Current)
	s.SetHealth(id, 10)
	h, _ = s.Health(id)
	assert.Equal(t, int32(3), h.Current)
}

func TestDigestTracksState(t *testing.T) {
	build := func() *State {
		s := newTestState(t)
		_, err := s.Spawn(Spawn{Name: "a", At: geom.Cell{X: 0, Y: 0}, Health: &Health{Current: 2, Max: 2}})
		require.NoError(t, err)
		return s
	}
	a, b := build(), build()
	assert.Equal(t, a.Digest(), b.Digest())

	id, _ := b.Lookup("a")
	b.SetHealth(id, 1)
	assert.NotEqual(t, a.Digest(), b.Digest())

	snaps := b.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, int32(1), snaps[0].Health)
	assert.Equal(t, "stationary", snaps[0].Facing)
}

func TestGridTreatsOutsideAsWall(t *testing.T) {
	g, err := NewGrid(2, 2)
	require.NoError(t, err)
	assert.True(t, g.Wall(geom.Cell{X: -1, Y: 0}))
	assert.True(t, g.Walkable(geom.Cell{X: 1, Y: 1}))
	g.SetWall(geom.Cell{X: 1, Y: 1})
	assert.Equal(t, 1, g.WallCount())

	_, err = NewGrid(0, 3)
	assert.Error(t, err)
}
