package system

import (
	"time"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/effect"
)

// Phase defines execution ordering of plain systems within a single tick.
// The Action, Resolve and Apply stages sit between PhaseDispatch and
// PhasePostApply and are driven by the Runner itself.
type Phase int

const (
	PhaseDispatch  Phase = iota // 0: deliver last tick's events
	PhasePostApply              // 1: react to committed state (read-mostly)
	PhasePersist                // 2: journal flush
	PhaseCleanup                // 3: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseDispatch:
		return "dispatch"
	case PhasePostApply:
		return "post-apply"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// System is the interface every plain ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

// TickInfo is handed to producers.
type TickInfo struct {
	Tick uint64
	DT   time.Duration
}

// Producer proposes actions from a read-only view of the world. Producers of
// one tick run concurrently; each writes only to its own buffer.
type Producer[R any] interface {
	Name() string
	Produce(info TickInfo, world R, out *action.Buffer)
}

// Resolver turns all actions of one kind into effects. It must be
// deterministic for a given input order and must not fail the tick: actions
// it cannot honour yield no effect.
type Resolver[R any] interface {
	Kind() action.Kind
	Resolve(actions []action.Action, world R) []effect.Effect
}

// Applier commits effects of one kind. It is the only place authoritative
// state is written.
type Applier[W any] interface {
	Kind() action.Kind
	Apply(effects []effect.Effect, world W)
}

// Observer receives the report of every completed tick.
type Observer interface {
	TickCompleted(r *Report)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc[R any] struct {
	Label string
	Fn    func(info TickInfo, world R, out *action.Buffer)
}

func (p ProducerFunc[R]) Name() string { return p.Label }

func (p ProducerFunc[R]) Produce(info TickInfo, world R, out *action.Buffer) {
	p.Fn(info, world, out)
}
