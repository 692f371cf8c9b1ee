package system

import (
	"github.com/sandbox/server/internal/core/action"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/data"
	"github.com/sandbox/server/internal/world"
)

// ScriptInputProducer replays a recorded input script as move requests.
// Commands naming unknown or despawned entities are skipped.
type ScriptInputProducer struct {
	script *data.Script
}

func NewScriptInputProducer(script *data.Script) *ScriptInputProducer {
	return &ScriptInputProducer{script: script}
}

func (p *ScriptInputProducer) Name() string { return "input" }

func (p *ScriptInputProducer) Produce(info coresys.TickInfo, w world.Reader, out *action.Buffer) {
	for _, c := range p.script.At(info.Tick) {
		id, ok := w.Lookup(c.Entity)
		if !ok || !w.Alive(id) {
			continue
		}
		out.Submit(id, action.Move{Delta: c.Delta()})
	}
}
