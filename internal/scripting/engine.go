package scripting

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/sandbox/server/internal/config"
)

// Engine wraps a single gopher-lua VM for rule formulas.
// Single-goroutine access only (tick loop, resolve stage).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine starts a VM and runs every .lua file in each cfg.Load
// subdirectory of cfg.Dir, in list order. Missing subdirectories are skipped.
func NewEngine(cfg config.ScriptingConfig, log *zap.Logger) (*Engine, error) {
	e := &Engine{vm: lua.NewState(), log: log}
	e.vm.SetGlobal("API_VERSION", lua.LNumber(1))

	loaded := 0
	for _, sub := range cfg.Load {
		n, err := e.loadDir(filepath.Join(cfg.Dir, sub))
		if err != nil {
			e.vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
		loaded += n
	}
	log.Info("lua scripts loaded", zap.String("dir", cfg.Dir), zap.Int("files", loaded))
	return e, nil
}

// loadDir runs the directory's .lua files in name order.
func (e *Engine) loadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return n, fmt.Errorf("run %s: %w", path, err)
		}
		n++
	}
	return n, nil
}

// DamageContext holds pre-packed data for one damage calculation.
type DamageContext struct {
	Tick          uint64
	Amount        int32
	Kind          string
	SourceRole    string
	TargetRole    string
	TargetCurrent int32
	TargetMax     int32
}

// HasDamageFormula reports whether resolve_damage is defined.
func (e *Engine) HasDamageFormula() bool {
	return e.vm.GetGlobal("resolve_damage") != lua.LNil
}

// ResolveDamage calls the Lua resolve_damage function. It falls back to the
// raw amount when the function is missing or fails, and never returns a
// negative value.
func (e *Engine) ResolveDamage(ctx DamageContext) int32 {
	fn := e.vm.GetGlobal("resolve_damage")
	if fn == lua.LNil {
		return ctx.Amount
	}

	t := e.vm.NewTable()
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("amount", lua.LNumber(ctx.Amount))
	t.RawSetString("kind", lua.LString(ctx.Kind))

	src := e.vm.NewTable()
	src.RawSetString("role", lua.LString(ctx.SourceRole))
	t.RawSetString("source", src)

	tgt := e.vm.NewTable()
	tgt.RawSetString("role", lua.LString(ctx.TargetRole))
	tgt.RawSetString("hp", lua.LNumber(ctx.TargetCurrent))
	tgt.RawSetString("max_hp", lua.LNumber(ctx.TargetMax))
	t.RawSetString("target", tgt)

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua resolve_damage error", zap.Error(err))
		return ctx.Amount
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua resolve_damage returned non-number", zap.String("type", result.Type().String()))
		return ctx.Amount
	}
	return toAmount(float64(n))
}

// toAmount truncates a Lua number into [0, MaxInt32]. NaN counts as 0.
func toAmount(f float64) int32 {
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	}
	return int32(f)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
