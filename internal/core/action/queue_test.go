package action

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/geom"
)

func TestSubmitAndDrainKeepsSubmissionOrder(t *testing.T) {
	q := NewQueue()
	q.Reset(7)

	q.Submit(3, Move{Delta: geom.Vec{DX: 1}})
	q.Submit(1, Damage{Target: 3, Amount: 2, Type: DamageMelee})
	q.Submit(2, Move{Delta: geom.Vec{DY: -1}})

	moves := q.Drain(KindMove)
	require.Len(t, moves, 2)
	assert.Equal(t, ecs.EntityID(3), moves[0].Entity)
	assert.Equal(t, ecs.EntityID(2), moves[1].Entity)
	assert.Less(t, moves[0].Seq, moves[1].Seq)
	assert.Equal(t, uint64(7), moves[0].Tick)
	assert.Equal(t, KindMove, moves[0].Kind())

	assert.Nil(t, q.Drain(KindMove), "drain is one-shot per tick")
	assert.Len(t, q.Drain(KindDamage), 1)
}

func TestResetDiscardsUndrained(t *testing.T) {
	q := NewQueue()
	q.Reset(1)
	q.Submit(1, Move{Delta: geom.Vec{DX: 1}})
	q.Submit(1, Damage{Target: 2, Amount: 1})

	assert.Equal(t, 2, q.Reset(2))
	assert.Empty(t, q.Drain(KindMove))

	q.Reset(3)
	q.Submit(1, Move{Delta: geom.Vec{DX: 1}})
	assert.Len(t, q.Drain(KindMove), 1, "new tick re-arms drain")
}

func TestSubmitBufferMergesInOrder(t *testing.T) {
	q := NewQueue()
	q.Reset(1)
	var a, b Buffer
	a.Submit(10, Move{Delta: geom.Vec{DX: 1}})
	b.Submit(20, Move{Delta: geom.Vec{DX: 1}})
	a.Submit(11, Move{Delta: geom.Vec{DX: 1}})
	a.Submit(12, nil)

	q.SubmitBuffer(&a)
	q.SubmitBuffer(&b)
	assert.Zero(t, a.Len())

	var ids []ecs.EntityID
	for _, act := range q.Drain(KindMove) {
		ids = append(ids, act.Entity)
	}
	assert.Equal(t, []ecs.EntityID{10, 11, 20}, ids)
}

func TestConcurrentSubmit(t *testing.T) {
	q := NewQueue()
	q.Reset(1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id ecs.EntityID) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Submit(id, Move{Delta: geom.Vec{DX: 1}})
			}
		}(ecs.EntityID(i + 1))
	}
	wg.Wait()
	assert.Len(t, q.Drain(KindMove), 800)
}

func TestDamageMask(t *testing.T) {
	m := DamageMelee.Mask() | DamageProjectile.Mask()
	assert.True(t, m.Has(DamageMelee))
	assert.False(t, m.Has(DamageImpact))
	k, ok := ParseDamageKind("impact")
	assert.True(t, ok)
	assert.Equal(t, DamageImpact, k)
	_, ok = ParseDamageKind("fire")
	assert.False(t, ok)
}
