package system

import (
	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/effect"
)

// KindStats counts one kind's traffic in a tick.
type KindStats struct {
	Submitted int
	Effects   int
}

// Report summarises a completed tick.
type Report struct {
	Tick uint64
	// Kinds is indexed by action.Kind.
	Kinds map[action.Kind]KindStats
	// Effects holds every applied effect in apply order.
	Effects []effect.Effect
	// Discarded counts actions of kinds with no resolver.
	Discarded int
}

// Submitted totals submitted actions over all kinds.
func (r *Report) Submitted() int {
	n := r.Discarded
	for _, s := range r.Kinds {
		n += s.Submitted
	}
	return n
}

// EffectsOf returns the applied effects of kind.
func (r *Report) EffectsOf(kind action.Kind) []effect.Effect {
	var out []effect.Effect
	for _, e := range r.Effects {
		if e.Kind() == kind {
			out = append(out, e)
		}
	}
	return out
}
