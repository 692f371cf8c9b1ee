package system

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/persist"
)

// JournalWriter stores batches of tick records. *persist.JournalRepo
// implements it.
type JournalWriter interface {
	WriteTicks(ctx context.Context, recs []persist.TickRecord) error
}

// backlogFactor bounds both the batches waiting for the writer and the
// records it keeps while writes are failing, in units of flushEvery.
const backlogFactor = 10

// JournalSystem records every completed tick. Full batches of flushEvery
// records are handed to a writer goroutine so a slow database never holds up
// the tick loop. Failed batches are retried together with the next one.
type JournalSystem struct {
	writer     JournalWriter
	runID      string
	flushEvery int
	timeout    time.Duration
	log        *zap.Logger

	// tick goroutine
	pending []persist.TickRecord
	closed  bool

	batches chan []persist.TickRecord
	done    chan struct{}
	backlog []persist.TickRecord // writer goroutine until done is closed
	written atomic.Int64
	dropped atomic.Int64
}

// NewJournalSystem starts the writer goroutine. Flush stops it.
func NewJournalSystem(writer JournalWriter, runID string, flushEvery int, timeout time.Duration, log *zap.Logger) *JournalSystem {
	j := &JournalSystem{
		writer:     writer,
		runID:      runID,
		flushEvery: max(flushEvery, 1),
		timeout:    timeout,
		log:        log,
		batches:    make(chan []persist.TickRecord, backlogFactor),
		done:       make(chan struct{}),
	}
	if j.timeout <= 0 {
		j.timeout = 2 * time.Second
	}
	go j.run()
	return j
}

func (j *JournalSystem) TickCompleted(r *coresys.Report) {
	if j.closed {
		return
	}
	j.pending = append(j.pending, tickRecord(j.runID, r))
	if len(j.pending) < j.flushEvery {
		return
	}
	j.handOff(j.pending)
	j.pending = make([]persist.TickRecord, 0, j.flushEvery)
}

// handOff queues batch for the writer. When the queue is full the oldest
// queued batch is dropped to make room.
func (j *JournalSystem) handOff(batch []persist.TickRecord) {
	for {
		select {
		case j.batches <- batch:
			return
		default:
		}
		select {
		case old := <-j.batches:
			j.dropped.Add(int64(len(old)))
			j.log.Warn("journal writer behind, dropping oldest ticks",
				zap.Uint64("from", old[0].Tick), zap.Int("dropped", len(old)))
		default:
		}
	}
}

func (j *JournalSystem) run() {
	defer close(j.done)
	for batch := range j.batches {
		j.backlog = append(j.backlog, batch...)
		j.trimBacklog()
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		// a failed write stays in the backlog for the next batch
		_ = j.write(ctx)
		cancel()
	}
}

func (j *JournalSystem) write(ctx context.Context) error {
	if len(j.backlog) == 0 {
		return nil
	}
	if err := j.writer.WriteTicks(ctx, j.backlog); err != nil {
		j.log.Error("journal flush failed",
			zap.Int("ticks", len(j.backlog)), zap.Error(err))
		return err
	}
	j.log.Debug("journal flushed",
		zap.Uint64("from", j.backlog[0].Tick),
		zap.Uint64("to", j.backlog[len(j.backlog)-1].Tick))
	j.written.Add(int64(len(j.backlog)))
	j.backlog = j.backlog[:0]
	return nil
}

func (j *JournalSystem) trimBacklog() {
	limit := j.flushEvery * backlogFactor
	if over := len(j.backlog) - limit; over > 0 {
		j.backlog = append(j.backlog[:0], j.backlog[over:]...)
		j.dropped.Add(int64(over))
		j.log.Warn("journal backlog full, dropping oldest ticks", zap.Int("dropped", over))
	}
}

// Flush hands over the final partial batch, stops the writer and makes one
// last attempt at whatever it could not write. Later ticks are ignored.
// Called once at shutdown from the tick goroutine.
func (j *JournalSystem) Flush(ctx context.Context) error {
	if !j.closed {
		j.closed = true
		if len(j.pending) > 0 {
			j.handOff(j.pending)
			j.pending = nil
		}
		close(j.batches)
	}
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return j.write(ctx)
}

// Written reports the records stored so far.
func (j *JournalSystem) Written() int { return int(j.written.Load()) }

// Dropped reports the records discarded because the backlog overflowed.
func (j *JournalSystem) Dropped() int { return int(j.dropped.Load()) }

func tickRecord(runID string, r *coresys.Report) persist.TickRecord {
	rec := persist.TickRecord{
		RunID:     runID,
		Tick:      r.Tick,
		Submitted: r.Submitted(),
		Discarded: r.Discarded,
		Kinds:     make(map[string]persist.KindCount, len(r.Kinds)),
		Effects:   make([]persist.EffectRecord, 0, len(r.Effects)),
	}
	for k, s := range r.Kinds {
		rec.Kinds[k.String()] = persist.KindCount{Submitted: s.Submitted, Effects: s.Effects}
	}
	for _, e := range r.Effects {
		rec.Effects = append(rec.Effects, persist.EffectRecord{
			Entity:  uint64(e.Entity),
			Kind:    e.Kind().String(),
			Cause:   e.Cause,
			Payload: e.Payload,
		})
	}
	return rec
}
