package effect

import (
	"errors"
	"fmt"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/core/ecs"
)

// ErrDoubleApply reports two effects writing the same component of the same
// entity within one tick.
var ErrDoubleApply = errors.New("double apply")

// Conflict describes a rejected claim.
type Conflict struct {
	Tick      uint64
	Entity    ecs.EntityID
	Component Component
	First     action.Kind
	Second    action.Kind
}

func (c *Conflict) Error() string {
	return fmt.Sprintf("tick %d: entity %s component %s written by %s and %s",
		c.Tick, c.Entity, c.Component, c.First, c.Second)
}

func (c *Conflict) Unwrap() error { return ErrDoubleApply }

type writeKey struct {
	entity ecs.EntityID
	comp   Component
}

// Ledger records every (entity, component) write claimed during a tick.
type Ledger struct {
	tick   uint64
	claims map[writeKey]action.Kind
}

func NewLedger() *Ledger {
	return &Ledger{claims: make(map[writeKey]action.Kind, 128)}
}

// Reset clears all claims and starts tick.
func (l *Ledger) Reset(tick uint64) {
	clear(l.claims)
	l.tick = tick
}

// Claim registers the writes of e. Nothing is recorded if any write conflicts.
func (l *Ledger) Claim(e Effect) error {
	if e.Payload == nil {
		return nil
	}
	writes := e.Payload.Writes()
	for _, c := range writes {
		if prev, ok := l.claims[writeKey{entity: e.Entity, comp: c}]; ok {
			return &Conflict{
				Tick:      l.tick,
				Entity:    e.Entity,
				Component: c,
				First:     prev,
				Second:    e.Kind(),
			}
		}
	}
	for _, c := range writes {
		l.claims[writeKey{entity: e.Entity, comp: c}] = e.Kind()
	}
	return nil
}

// ClaimAll claims every effect in order and stops at the first conflict.
func (l *Ledger) ClaimAll(effects []Effect) error {
	for _, e := range effects {
		if err := l.Claim(e); err != nil {
			return err
		}
	}
	return nil
}

// Len reports the number of claimed writes.
func (l *Ledger) Len() int { return len(l.claims) }
