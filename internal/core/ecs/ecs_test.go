package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityPoolReusesIndexWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero())
	require.True(t, p.Alive(a))

	require.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "stale id must not destroy twice")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.Equal(t, a.Generation()+1, b.Generation())
	assert.False(t, p.Alive(a))
	assert.True(t, p.Alive(b))
	assert.Equal(t, 1, p.Len())
}

func TestZeroIDNeverAlive(t *testing.T) {
	p := NewEntityPool()
	p.Create()
	assert.False(t, p.Alive(0))
}

func TestStoreIteratesInIDOrder(t *testing.T) {
	s := NewStore[int]()
	for _, id := range []EntityID{9, 3, 7, 1} {
		v := int(id) * 10
		s.Set(id, &v)
	}
	s.Remove(7)

	var seen []EntityID
	s.Each(func(id EntityID, v *int) {
		seen = append(seen, id)
		assert.Equal(t, int(id)*10, *v)
	})
	assert.Equal(t, []EntityID{1, 3, 9}, seen)

	v, ok := s.Value(3)
	require.True(t, ok)
	assert.Equal(t, 30, v)
	v = 0
	_ = v
	got, _ := s.Get(3)
	assert.Equal(t, 30, *got, "Value must return a copy")
}

func TestEach2AndEach3(t *testing.T) {
	a, b, c := NewStore[int](), NewStore[string](), NewStore[bool]()
	one, two := 1, 2
	a.Set(1, &one)
	a.Set(2, &two)
	x, y := "x", "y"
	b.Set(2, &x)
	b.Set(3, &y)
	tr := true
	c.Set(2, &tr)

	var pairs []EntityID
	Each2(a, b, func(id EntityID, _ *int, _ *string) { pairs = append(pairs, id) })
	assert.Equal(t, []EntityID{2}, pairs)

	var triples []EntityID
	Each3(a, b, c, func(id EntityID, _ *int, _ *string, _ *bool) { triples = append(triples, id) })
	assert.Equal(t, []EntityID{2}, triples)
}

func TestWorldFlushRemovesComponents(t *testing.T) {
	w := NewWorld()
	hp := NewStoreIn[int](w.Registry())
	id := w.CreateEntity()
	v := 5
	hp.Set(id, &v)

	w.MarkForDestruction(id)
	w.MarkForDestruction(id)
	assert.True(t, w.PendingDestruction(id))

	destroyed := w.FlushDestroyQueue()
	assert.Equal(t, []EntityID{id}, destroyed)
	assert.False(t, w.Alive(id))
	assert.False(t, hp.Has(id))
	assert.Nil(t, w.FlushDestroyQueue())
}
