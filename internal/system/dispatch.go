package system

import (
	"time"

	"github.com/sandbox/server/internal/core/event"
	coresys "github.com/sandbox/server/internal/core/system"
)

// EventDispatchSystem delivers the events emitted last tick. Runs first in
// every tick so handlers observe a settled world.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseDispatch }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
