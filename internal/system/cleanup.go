package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/sandbox/server/internal/core/event"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/world"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end
// and announces each removal with a Despawned event.
type CleanupSystem struct {
	world world.Writer
	bus   *event.Bus
	clock func() uint64
	log   *zap.Logger
}

func NewCleanupSystem(w world.Writer, bus *event.Bus, clock func() uint64, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: w, bus: bus, clock: clock, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	tick := s.clock()
	for _, id := range s.world.FlushDestroyed() {
		event.Emit(s.bus, event.Despawned{Tick: tick, Entity: id})
		s.log.Debug("entity despawned", zap.Uint64("tick", tick), zap.Stringer("entity", id))
	}
}
