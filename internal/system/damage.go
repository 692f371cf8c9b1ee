package system

import (
	"math"

	"go.uber.org/zap"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
	"github.com/sandbox/server/internal/core/effect"
	"github.com/sandbox/server/internal/core/event"
	"github.com/sandbox/server/internal/scripting"
	"github.com/sandbox/server/internal/world"
)

// DamageFormula adjusts a raw damage amount. *scripting.Engine implements it.
type DamageFormula interface {
	ResolveDamage(ctx scripting.DamageContext) int32
}

// DamageResolver folds every hit on a target into one HealthSet effect.
// Hits are summed in submission order; effects come out in the order each
// target was first hit.
type DamageResolver struct {
	formula DamageFormula // nil = raw amounts
	log     *zap.Logger
}

func NewDamageResolver(formula DamageFormula, log *zap.Logger) *DamageResolver {
	return &DamageResolver{formula: formula, log: log}
}

func (r *DamageResolver) Kind() action.Kind { return action.KindDamage }

type hitTally struct {
	first  action.Action
	health world.Health
	total  int64
}

func (r *DamageResolver) Resolve(actions []action.Action, w world.Reader) []effect.Effect {
	tallies := make(map[ecs.EntityID]*hitTally)
	var order []ecs.EntityID
	for _, a := range actions {
		d, h, reason := r.check(a, w)
		if reason != "" {
			r.log.Debug("damage dropped", zap.String("reason", reason),
				zap.Stringer("entity", a.Entity), zap.Uint64("seq", a.Seq))
			continue
		}
		amount := d.Amount
		if r.formula != nil {
			amount = r.formula.ResolveDamage(scripting.DamageContext{
				Tick:          a.Tick,
				Amount:        d.Amount,
				Kind:          d.Type.String(),
				SourceRole:    w.Role(a.Entity).String(),
				TargetRole:    w.Role(d.Target).String(),
				TargetCurrent: h.Current,
				TargetMax:     h.Max,
			})
		}
		if amount <= 0 {
			continue
		}
		t, ok := tallies[d.Target]
		if !ok {
			t = &hitTally{first: a, health: h}
			tallies[d.Target] = t
			order = append(order, d.Target)
		}
		t.total += int64(amount)
	}

	effects := make([]effect.Effect, 0, len(order))
	for _, target := range order {
		t := tallies[target]
		taken := int32(min(t.total, math.MaxInt32))
		effects = append(effects, effect.From(t.first, target, effect.HealthSet{
			Current: t.health.Current - min(taken, t.health.Current),
			Max:     t.health.Max,
			Taken:   taken,
		}))
	}
	return effects
}

func (r *DamageResolver) check(a action.Action, w world.Reader) (action.Damage, world.Health, string) {
	d, ok := a.Payload.(action.Damage)
	if !ok {
		return d, world.Health{}, "payload"
	}
	if d.Amount <= 0 {
		return d, world.Health{}, "amount"
	}
	if !w.Alive(d.Target) {
		return d, world.Health{}, "target dead"
	}
	h, ok := w.Health(d.Target)
	if !ok {
		return d, h, "target has no health"
	}
	if h.Current <= 0 {
		return d, h, "target down"
	}
	if !h.Vulnerable.Has(d.Type) {
		return d, h, "immune"
	}
	return d, h, ""
}

// HealthApplier commits HealthSet effects. An entity brought to zero is
// queued for end-of-tick destruction and announced with a Died event.
type HealthApplier struct {
	bus *event.Bus
	log *zap.Logger
}

func NewHealthApplier(bus *event.Bus, log *zap.Logger) *HealthApplier {
	return &HealthApplier{bus: bus, log: log}
}

func (a *HealthApplier) Kind() action.Kind { return action.KindDamage }

func (a *HealthApplier) Apply(effects []effect.Effect, w world.Writer) {
	for _, e := range effects {
		hs, ok := e.Payload.(effect.HealthSet)
		if !ok || !w.Alive(e.Entity) {
			continue
		}
		w.SetHealth(e.Entity, hs.Current)
		if hs.Current > 0 || w.PendingDestruction(e.Entity) {
			continue
		}
		w.MarkForDestruction(e.Entity)
		event.Emit(a.bus, event.Died{Tick: e.Tick, Entity: e.Entity, Name: w.Name(e.Entity)})
		a.log.Info("entity died",
			zap.Uint64("tick", e.Tick), zap.Stringer("entity", e.Entity), zap.String("name", w.Name(e.Entity)))
	}
}
