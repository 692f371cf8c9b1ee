package action

import (
	"sync"

	"github.com/sandbox/server/internal/core/ecs"
)

// Buffer is a producer-local staging area. A producer owns its buffer for the
// whole Action stage, so appends need no locking.
type Buffer struct {
	entries []staged
}

type staged struct {
	entity  ecs.EntityID
	payload Payload
}

// Submit stages a proposal. Nil payloads are ignored.
func (b *Buffer) Submit(entity ecs.EntityID, p Payload) {
	if p == nil {
		return
	}
	b.entries = append(b.entries, staged{entity: entity, payload: p})
}

func (b *Buffer) Len() int { return len(b.entries) }

// Reset empties the buffer, keeping its capacity.
func (b *Buffer) Reset() { b.entries = b.entries[:0] }

// Queue collects the actions of the current tick, bucketed by kind.
// Submit is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	tick    uint64
	seq     uint64
	buckets [kindCount][]Action
	drained [kindCount]bool
}

func NewQueue() *Queue {
	return &Queue{}
}

// Reset starts tick. Undrained actions of the previous tick are discarded;
// the number discarded is returned.
func (q *Queue) Reset(tick uint64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	discarded := 0
	for k := range q.buckets {
		discarded += len(q.buckets[k])
		q.buckets[k] = nil
		q.drained[k] = false
	}
	q.tick = tick
	return discarded
}

// Submit appends an action for the current tick. It always succeeds; payloads
// of an unknown kind are kept and later discarded by Reset.
func (q *Queue) Submit(entity ecs.EntityID, p Payload) {
	if p == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.appendLocked(entity, p)
}

// SubmitBuffer moves every staged entry of b into the queue, in staging order,
// and resets b.
func (q *Queue) SubmitBuffer(b *Buffer) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range b.entries {
		q.appendLocked(e.entity, e.payload)
	}
	b.Reset()
}

func (q *Queue) appendLocked(entity ecs.EntityID, p Payload) {
	k := p.Kind()
	if int(k) >= len(q.buckets) {
		k = 0
	}
	q.seq++
	q.buckets[k] = append(q.buckets[k], Action{
		Seq:     q.seq,
		Tick:    q.tick,
		Entity:  entity,
		Payload: p,
	})
}

// Drain returns and clears all actions of kind in submission order. It is
// one-shot per tick: later calls for the same kind return nil until Reset.
func (q *Queue) Drain(kind Kind) []Action {
	if !kind.Valid() {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.drained[kind] {
		return nil
	}
	q.drained[kind] = true
	out := q.buckets[kind]
	q.buckets[kind] = nil
	return out
}

// Tick reports the tick the queue is collecting for.
func (q *Queue) Tick() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tick
}
