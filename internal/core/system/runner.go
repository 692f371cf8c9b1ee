package system

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/effect"
)

// Runner drives the Action → Resolve → Apply pipeline once per tick and runs
// plain systems in phase order around it. R is the read-only world view handed
// to producers and resolvers; W is the writable view handed to appliers.
//
// Registration happens at startup; Tick must be called from one goroutine.
// Submit may be called from any goroutine at any time.
type Runner[R any, W any] struct {
	read  R
	write W
	log   *zap.Logger

	queue  *action.Queue
	ledger *effect.Ledger

	producers []Producer[R]
	buffers   []action.Buffer
	resolvers []Resolver[R]
	appliers  map[action.Kind]Applier[W]
	systems   []System
	observers []Observer

	sorted  bool
	started bool
	tick    uint64
	state   atomic.Int32
}

func NewRunner[R any, W any](read R, write W, log *zap.Logger) *Runner[R, W] {
	q := action.NewQueue()
	q.Reset(1)
	return &Runner[R, W]{
		read:     read,
		write:    write,
		log:      log,
		queue:    q,
		ledger:   effect.NewLedger(),
		appliers: make(map[action.Kind]Applier[W], 4),
		systems:  make([]System, 0, 16),
	}
}

// Register adds a plain phase system.
func (r *Runner[R, W]) Register(s System) error {
	if r.started {
		return ErrRegistrationClosed
	}
	r.systems = append(r.systems, s)
	r.sorted = false
	return nil
}

// RegisterProducer adds an Action-stage producer. Producers' output is merged
// into the queue in registration order.
func (r *Runner[R, W]) RegisterProducer(p Producer[R]) error {
	if r.started {
		return ErrRegistrationClosed
	}
	r.producers = append(r.producers, p)
	r.buffers = append(r.buffers, action.Buffer{})
	return nil
}

// RegisterResolver adds the resolver for one kind. Resolvers run in kind order.
func (r *Runner[R, W]) RegisterResolver(res Resolver[R]) error {
	if r.started {
		return ErrRegistrationClosed
	}
	kind := res.Kind()
	for _, existing := range r.resolvers {
		if existing.Kind() == kind {
			return fmt.Errorf("resolver %s: %w", kind, ErrDuplicateKind)
		}
	}
	r.resolvers = append(r.resolvers, res)
	slices.SortFunc(r.resolvers, func(a, b Resolver[R]) int {
		return int(a.Kind()) - int(b.Kind())
	})
	return nil
}

// RegisterApplier adds the applier for one kind.
func (r *Runner[R, W]) RegisterApplier(a Applier[W]) error {
	if r.started {
		return ErrRegistrationClosed
	}
	if _, ok := r.appliers[a.Kind()]; ok {
		return fmt.Errorf("applier %s: %w", a.Kind(), ErrDuplicateKind)
	}
	r.appliers[a.Kind()] = a
	return nil
}

// Observe adds a tick observer.
func (r *Runner[R, W]) Observe(o Observer) error {
	if r.started {
		return ErrRegistrationClosed
	}
	r.observers = append(r.observers, o)
	return nil
}

// Submit queues an action from outside the producer stage. Between ticks it
// lands in the next tick; during the apply stage it lands in the tick after.
// A submission racing the resolve stage is discarded with its tick.
func (r *Runner[R, W]) Submit(entity ecs.EntityID, p action.Payload) {
	r.queue.Submit(entity, p)
}

// CurrentTick returns the number of the last tick started.
func (r *Runner[R, W]) CurrentTick() uint64 { return r.tick }

// State reports the pipeline position.
func (r *Runner[R, W]) State() TickState { return TickState(r.state.Load()) }

// Tick runs one full simulation step. A context cancelled before the tick
// starts skips it; once started a tick always runs to completion or aborts
// on an invariant violation, in which case no effect of the tick is applied
// and its actions are discarded.
func (r *Runner[R, W]) Tick(ctx context.Context, dt time.Duration) (*Report, error) {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateCollecting)) {
		return nil, ErrTickInProgress
	}
	defer r.state.Store(int32(StateIdle))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !r.started {
		if err := r.validate(); err != nil {
			return nil, err
		}
		r.started = true
	}
	r.ensureSorted()

	r.tick++
	tick := r.tick
	// Whatever happens, the next tick starts with an empty queue.
	rearmed := false
	defer func() {
		if !rearmed {
			r.queue.Reset(tick + 1)
		}
	}()

	r.runPhase(PhaseDispatch, dt)

	if err := r.collect(TickInfo{Tick: tick, DT: dt}); err != nil {
		r.log.Error("tick aborted in action stage", zap.Uint64("tick", tick), zap.Error(err))
		return nil, fmt.Errorf("tick %d: %w", tick, err)
	}

	r.state.Store(int32(StateResolving))
	report := &Report{Tick: tick, Kinds: make(map[action.Kind]KindStats, len(r.resolvers))}
	batches := make([][]effect.Effect, len(r.resolvers))
	for i, res := range r.resolvers {
		effects, stats, err := r.resolve(res)
		if err != nil {
			r.log.Error("tick aborted in resolve stage", zap.Uint64("tick", tick), zap.Error(err))
			return nil, fmt.Errorf("tick %d: %w", tick, err)
		}
		batches[i] = effects
		report.Kinds[res.Kind()] = stats
	}
	report.Discarded = r.queue.Reset(tick + 1)
	rearmed = true
	if report.Discarded > 0 {
		r.log.Debug("actions without resolver discarded",
			zap.Uint64("tick", tick),
			zap.Int("count", report.Discarded),
		)
	}

	r.ledger.Reset(tick)
	for _, batch := range batches {
		if err := r.ledger.ClaimAll(batch); err != nil {
			r.log.Error("tick aborted: conflicting effects", zap.Uint64("tick", tick), zap.Error(err))
			return nil, err
		}
	}

	r.state.Store(int32(StateApplying))
	for i, res := range r.resolvers {
		if len(batches[i]) == 0 {
			continue
		}
		r.appliers[res.Kind()].Apply(batches[i], r.write)
		report.Effects = append(report.Effects, batches[i]...)
	}

	r.runPhase(PhasePostApply, dt)
	r.runPhase(PhasePersist, dt)
	r.runPhase(PhaseCleanup, dt)

	for _, o := range r.observers {
		o.TickCompleted(report)
	}
	return report, nil
}

// collect runs every producer concurrently into its own buffer, waits for all
// of them, then merges the buffers into the queue in registration order.
func (r *Runner[R, W]) collect(info TickInfo) error {
	var g errgroup.Group
	for i, p := range r.producers {
		p := p
		buf := &r.buffers[i]
		buf.Reset()
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = fmt.Errorf("producer %s: %w: %v", p.Name(), ErrStagePanic, v)
				}
			}()
			p.Produce(info, r.read, buf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for i := range r.buffers {
			r.buffers[i].Reset()
		}
		return err
	}
	for i := range r.buffers {
		r.queue.SubmitBuffer(&r.buffers[i])
	}
	return nil
}

func (r *Runner[R, W]) resolve(res Resolver[R]) (effects []effect.Effect, stats KindStats, err error) {
	kind := res.Kind()
	actions := r.queue.Drain(kind)
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("resolver %s: %w: %v", kind, ErrStagePanic, v)
		}
	}()
	effects = res.Resolve(actions, r.read)

	if len(effects) > len(actions) {
		return nil, stats, fmt.Errorf("resolver %s: %d effects from %d actions: %w",
			kind, len(effects), len(actions), ErrResolverContract)
	}
	for _, e := range effects {
		if e.Kind() != kind {
			return nil, stats, fmt.Errorf("resolver %s emitted %s effect: %w",
				kind, e.Kind(), ErrResolverContract)
		}
	}
	stats = KindStats{Submitted: len(actions), Effects: len(effects)}
	if dropped := len(actions) - len(effects); dropped > 0 {
		r.log.Debug("actions without effect",
			zap.Stringer("kind", kind),
			zap.Int("submitted", len(actions)),
			zap.Int("effects", len(effects)),
		)
	}
	return effects, stats, nil
}

func (r *Runner[R, W]) validate() error {
	for _, res := range r.resolvers {
		if _, ok := r.appliers[res.Kind()]; !ok {
			return fmt.Errorf("kind %s: %w", res.Kind(), ErrMissingApplier)
		}
	}
	return nil
}

func (r *Runner[R, W]) runPhase(phase Phase, dt time.Duration) {
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

func (r *Runner[R, W]) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
