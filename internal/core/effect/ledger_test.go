package effect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/geom"
)

func TestLedgerRejectsSecondWriteToSameComponent(t *testing.T) {
	l := NewLedger()
	l.Reset(4)

	move := Effect{Entity: 1, Payload: Moved{To: geom.Cell{X: 1}}}
	require.NoError(t, l.Claim(move))
	require.NoError(t, l.Claim(Effect{Entity: 1, Payload: HealthSet{Current: 2}}), "different component")
	require.NoError(t, l.Claim(Effect{Entity: 2, Payload: Moved{}}), "different entity")

	err := l.Claim(Effect{Entity: 1, Payload: Moved{To: geom.Cell{X: 2}}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDoubleApply))

	var c *Conflict
	require.True(t, errors.As(err, &c))
	assert.Equal(t, uint64(4), c.Tick)
	assert.Equal(t, CompPosition, c.Component)
	assert.Equal(t, action.KindMove, c.First)
	assert.Contains(t, err.Error(), "tick 4")
}

func TestLedgerConflictRecordsNothing(t *testing.T) {
	l := NewLedger()
	l.Reset(1)
	require.NoError(t, l.Claim(Effect{Entity: 1, Payload: HealthSet{}}))
	before := l.Len()

	v := geom.Vec{DX: -1}
	require.NoError(t, l.Claim(Effect{Entity: 1, Payload: Moved{Velocity: &v}}))
	assert.Equal(t, before+3, l.Len())

	l.Reset(2)
	assert.Zero(t, l.Len())
	assert.NoError(t, l.ClaimAll([]Effect{
		{Entity: 1, Payload: HealthSet{}},
		{Entity: 2, Payload: HealthSet{}},
	}))
	assert.Error(t, l.ClaimAll([]Effect{{Entity: 2, Payload: HealthSet{}}}))
}
