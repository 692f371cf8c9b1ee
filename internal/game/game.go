// Package game assembles the sandbox: level, tick runner, producers,
// resolvers, appliers and the optional tick journal.
package game

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sandbox/server/internal/config"
	"github.com/sandbox/server/internal/core/event"
	coresys "github.com/sandbox/server/internal/core/system"
	"github.com/sandbox/server/internal/data"
	"github.com/sandbox/server/internal/scripting"
	"github.com/sandbox/server/internal/system"
	"github.com/sandbox/server/internal/world"
)

// Stats counts lifecycle events delivered over the run.
type Stats struct {
	Deaths    int
	Despawns  int
	Effects   int
	Submitted int
}

// Game owns one simulation run.
type Game struct {
	cfg     *config.Config
	level   *data.Level
	state   *world.State
	bus     *event.Bus
	runner  *coresys.Runner[world.Reader, world.Writer]
	lua     *scripting.Engine
	journal *system.JournalSystem
	stats   Stats
	log     *zap.Logger
}

// Option customises New.
type Option func(*options)

type options struct {
	journal system.JournalWriter
	runID   string
}

// WithJournal records every tick through w under runID.
func WithJournal(w system.JournalWriter, runID string) Option {
	return func(o *options) {
		o.journal = w
		o.runID = runID
	}
}

// New loads the configured level and input script and wires the pipeline.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*Game, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	level, err := data.LoadLevel(cfg.Level.Path)
	if err != nil {
		return nil, fmt.Errorf("load level: %w", err)
	}
	state, err := level.Build()
	if err != nil {
		return nil, fmt.Errorf("build level: %w", err)
	}

	var script *data.Script
	if cfg.Input.ScriptPath != "" {
		script, err = data.LoadScript(cfg.Input.ScriptPath)
		if err != nil {
			return nil, fmt.Errorf("load input script: %w", err)
		}
	}

	g := &Game{
		cfg:   cfg,
		level: level,
		state: state,
		bus:   event.NewBus(),
		log:   log,
	}

	var formula system.DamageFormula
	if cfg.Scripting.Dir != "" {
		if _, statErr := os.Stat(cfg.Scripting.Dir); statErr == nil {
			g.lua, err = scripting.NewEngine(cfg.Scripting, log)
			if err != nil {
				return nil, fmt.Errorf("lua engine: %w", err)
			}
			if g.lua.HasDamageFormula() {
				formula = g.lua
			}
		} else {
			log.Warn("scripting dir missing, using raw damage", zap.String("dir", cfg.Scripting.Dir))
		}
	}

	g.runner = coresys.NewRunner[world.Reader, world.Writer](state, state, log)
	if err := g.wire(script, formula, o); err != nil {
		g.Close(context.Background())
		return nil, err
	}

	event.Subscribe(g.bus, func(d event.Died) {
		g.stats.Deaths++
		g.log.Debug("death delivered", zap.Uint64("tick", d.Tick), zap.String("name", d.Name))
	})
	event.Subscribe(g.bus, func(event.Despawned) { g.stats.Despawns++ })

	log.Info("level loaded",
		zap.String("level", level.Name),
		zap.Int32("width", state.Grid().Width()),
		zap.Int32("height", state.Grid().Height()),
		zap.Int("walls", state.Grid().WallCount()),
		zap.Int("entities", state.Count()),
		zap.Bool("scripted_input", script != nil),
		zap.Bool("lua_damage", formula != nil),
	)
	return g, nil
}

func (g *Game) wire(script *data.Script, formula system.DamageFormula, o options) error {
	r := g.runner
	var producers []coresys.Producer[world.Reader]
	if script != nil {
		producers = append(producers, system.NewScriptInputProducer(script))
	}
	producers = append(producers,
		system.NewChaseProducer(g.cfg.Sim.ChaseEvery, g.cfg.Sim.MaxPathNodes),
		system.NewProjectileProducer(),
		system.NewContactProducer(),
	)
	for _, p := range producers {
		if err := r.RegisterProducer(p); err != nil {
			return fmt.Errorf("register producer %s: %w", p.Name(), err)
		}
	}

	if err := r.RegisterResolver(system.NewMoveResolver(g.cfg.Sim.MaxStep, g.log)); err != nil {
		return fmt.Errorf("register move resolver: %w", err)
	}
	if err := r.RegisterResolver(system.NewDamageResolver(formula, g.log)); err != nil {
		return fmt.Errorf("register damage resolver: %w", err)
	}
	if err := r.RegisterApplier(system.NewMoveApplier(g.log)); err != nil {
		return fmt.Errorf("register move applier: %w", err)
	}
	if err := r.RegisterApplier(system.NewHealthApplier(g.bus, g.log)); err != nil {
		return fmt.Errorf("register health applier: %w", err)
	}

	if err := r.Register(system.NewEventDispatchSystem(g.bus)); err != nil {
		return err
	}
	if err := r.Register(system.NewCleanupSystem(g.state, g.bus, r.CurrentTick, g.log)); err != nil {
		return err
	}

	if o.journal != nil {
		g.journal = system.NewJournalSystem(o.journal, o.runID, g.cfg.Journal.FlushEvery, g.cfg.Journal.WriteTimeout, g.log)
		if err := r.Observe(g.journal); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one tick.
func (g *Game) Step(ctx context.Context) (*coresys.Report, error) {
	rep, err := g.runner.Tick(ctx, g.cfg.Sim.TickRate)
	if err != nil {
		return nil, err
	}
	g.stats.Effects += len(rep.Effects)
	g.stats.Submitted += rep.Submitted()
	return rep, nil
}

// Run ticks at the configured rate until ctx is done. Tick errors are logged
// and the loop continues with the next tick.
func (g *Game) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.Sim.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rep, err := g.Step(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				g.log.Error("tick failed", zap.Error(err))
				continue
			}
			if len(rep.Effects) > 0 {
				g.log.Debug("tick",
					zap.Uint64("tick", rep.Tick),
					zap.Int("submitted", rep.Submitted()),
					zap.Int("effects", len(rep.Effects)))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Tick reports the last completed tick.
func (g *Game) Tick() uint64 { return g.runner.CurrentTick() }

// Digest fingerprints the current world.
func (g *Game) Digest() uint64 { return g.state.Digest() }

// World exposes the read view, for reporting.
func (g *Game) World() world.Reader { return g.state }

// Snapshots lists every entity's components.
func (g *Game) Snapshots() []world.Snapshot { return g.state.Snapshots() }

func (g *Game) Stats() Stats { return g.stats }

// LevelName reports the loaded level's name.
func (g *Game) LevelName() string { return g.level.Name }

// Close flushes the journal and releases the Lua VM.
func (g *Game) Close(ctx context.Context) error {
	var err error
	if g.journal != nil {
		err = g.journal.Flush(ctx)
		g.log.Info("journal closed",
			zap.Int("written", g.journal.Written()),
			zap.Int("dropped", g.journal.Dropped()))
	}
	if g.lua != nil {
		g.lua.Close()
		g.lua = nil
	}
	return err
}
