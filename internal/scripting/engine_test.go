package scripting

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sandbox/server/internal/config"
)

func scriptDirs(dir string) config.ScriptingConfig {
	return config.ScriptingConfig{Dir: dir, Load: []string{"core", "combat"}}
}

func writeScript(t *testing.T, dir, sub, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, sub, name), []byte(body), 0o644))
}

func newTestEngine(t *testing.T, combat string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if combat != "" {
		writeScript(t, dir, "combat", "damage.lua", combat)
	}
	e, err := NewEngine(scriptDirs(dir), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestResolveDamageCallsScript(t *testing.T) {
	e := newTestEngine(t, `
function resolve_damage(ctx)
  if ctx.kind == "impact" then
    return ctx.amount * 2
  end
  if ctx.target.role == "player" and ctx.amount >= ctx.target.hp then
    return ctx.target.hp - 1
  end
  return ctx.amount
end
`)
	require.True(t, e.HasDamageFormula())

	assert.Equal(t, int32(6), e.ResolveDamage(DamageContext{Amount: 3, Kind: "impact"}))
	assert.Equal(t, int32(4), e.ResolveDamage(DamageContext{
		Amount: 9, Kind: "melee", TargetRole: "player", TargetCurrent: 5, TargetMax: 10,
	}))
}

func TestResolveDamageFallbacks(t *testing.T) {
	t.Run("missing function", func(t *testing.T) {
		e := newTestEngine(t, "")
		assert.False(t, e.HasDamageFormula())
		assert.Equal(t, int32(3), e.ResolveDamage(DamageContext{Amount: 3}))
	})
	t.Run("runtime error", func(t *testing.T) {
		e := newTestEngine(t, `function resolve_damage(ctx) error("boom") end`)
		assert.Equal(t, int32(3), e.ResolveDamage(DamageContext{Amount: 3}))
	})
	t.Run("non number", func(t *testing.T) {
		e := newTestEngine(t, `function resolve_damage(ctx) return "x" end`)
		assert.Equal(t, int32(3), e.ResolveDamage(DamageContext{Amount: 3}))
	})
	t.Run("negative clamps", func(t *testing.T) {
		e := newTestEngine(t, `function resolve_damage(ctx) return -4 end`)
		assert.Equal(t, int32(0), e.ResolveDamage(DamageContext{Amount: 3}))
	})
}

func TestResolveDamageClampsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want int32
	}{
		{"huge", "1e300", math.MaxInt32},
		{"just above max", "2147483648", math.MaxInt32},
		{"infinity", "math.huge", math.MaxInt32},
		{"negative infinity", "-math.huge", 0},
		{"nan", "0/0", 0},
		{"fraction", "2.9", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, "function resolve_damage(ctx) return "+tt.expr+" end")
			assert.Equal(t, tt.want, e.ResolveDamage(DamageContext{Amount: 3}))
		})
	}
}

func TestNewEngineLoadsConfiguredDirsInOrder(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "base", "a.lua", "BONUS = 1")
	writeScript(t, dir, "rules", "damage.lua", "function resolve_damage(ctx) return ctx.amount + BONUS end")
	writeScript(t, dir, "ignored", "damage.lua", "function resolve_damage(ctx) return 0 end")

	e, err := NewEngine(config.ScriptingConfig{Dir: dir, Load: []string{"base", "rules", "missing"}}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	assert.Equal(t, int32(4), e.ResolveDamage(DamageContext{Amount: 3}))
}

func TestNewEngineRejectsBrokenScript(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "core", "bad.lua", "function (")
	_, err := NewEngine(scriptDirs(dir), zap.NewNop())
	assert.Error(t, err)
}
