package system

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/effect"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/persist"
)

type fakeJournal struct {
	mu       sync.Mutex
	batches  [][]persist.TickRecord
	attempts int
	fail     bool
	release  chan struct{} // when set, writes wait for it
}

func (f *fakeJournal) WriteTicks(ctx context.Context, recs []persist.TickRecord) error {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.fail {
		return errors.New("db down")
	}
	f.batches = append(f.batches, append([]persist.TickRecord(nil), recs...))
	return nil
}

func (f *fakeJournal) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeJournal) attempted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeJournal) written() [][]persist.TickRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batches
}

func report(tick uint64) *coresys.Report {
	return &coresys.Report{
		Tick:  tick,
		Kinds: map[action.Kind]coresys.KindStats{action.KindMove: {Submitted: 2, Effects: 1}},
		Effects: []effect.Effect{
			{Tick: tick, Entity: 7, Cause: 1, Payload: effect.HealthSet{Current: 1, Max: 2}},
		},
		Discarded: 1,
	}
}

func TestJournalFlushesInBatches(t *testing.T) {
	w := &fakeJournal{}
	j := NewJournalSystem(w, "run-1", 2, time.Second, zap.NewNop())

	j.TickCompleted(report(1))
	j.TickCompleted(report(2))
	require.Eventually(t, func() bool { return len(w.written()) == 1 }, time.Second, time.Millisecond)
	assert.Len(t, w.written()[0], 2)

	rec := w.written()[0][1]
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, uint64(2), rec.Tick)
	assert.Equal(t, 3, rec.Submitted)
	assert.Equal(t, persist.KindCount{Submitted: 2, Effects: 1}, rec.Kinds["move"])
	require.Len(t, rec.Effects, 1)
	assert.Equal(t, "damage", rec.Effects[0].Kind)
	assert.Equal(t, uint64(7), rec.Effects[0].Entity)

	j.TickCompleted(report(3))
	require.NoError(t, j.Flush(context.Background()))
	assert.Len(t, w.written(), 2)
	assert.Equal(t, 3, j.Written())

	j.TickCompleted(report(4))
	require.NoError(t, j.Flush(context.Background()))
	assert.Len(t, w.written(), 2, "ticks after the final flush are ignored")
}

func TestJournalKeepsBacklogOnFailure(t *testing.T) {
	w := &fakeJournal{fail: true}
	j := NewJournalSystem(w, "run-1", 1, time.Second, zap.NewNop())

	for tick := uint64(1); tick <= 15; tick++ {
		j.TickCompleted(report(tick))
		require.Eventually(t, func() bool { return w.attempted() == int(tick) }, time.Second, time.Millisecond)
	}
	assert.Equal(t, 5, j.Dropped())

	w.setFail(false)
	require.NoError(t, j.Flush(context.Background()))
	batches := w.written()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], backlogFactor)
	assert.Equal(t, uint64(6), batches[0][0].Tick, "oldest ticks dropped first")
	assert.Equal(t, backlogFactor, j.Written())
}

func TestJournalDoesNotBlockTickOnSlowWriter(t *testing.T) {
	w := &fakeJournal{release: make(chan struct{})}
	j := NewJournalSystem(w, "run-1", 1, time.Minute, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for tick := uint64(1); tick <= 3*backlogFactor; tick++ {
			j.TickCompleted(report(tick))
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick loop blocked on the journal writer")
	}
	assert.Positive(t, j.Dropped(), "queue overflow drops the oldest batches")

	close(w.release)
	require.NoError(t, j.Flush(context.Background()))
	assert.Equal(t, 3*backlogFactor, j.Written()+j.Dropped())
	batches := w.written()
	last := batches[len(batches)-1]
	assert.Equal(t, uint64(3*backlogFactor), last[len(last)-1].Tick)
}

func TestJournalFlushHonoursContext(t *testing.T) {
	w := &fakeJournal{release: make(chan struct{})}
	j := NewJournalSystem(w, "run-1", 1, time.Minute, zap.NewNop())
	j.TickCompleted(report(1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, j.Flush(ctx), context.DeadlineExceeded)
	close(w.release)
}
