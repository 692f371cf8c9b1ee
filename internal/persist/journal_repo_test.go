package persist

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandbox/server/internal/config"
)

func TestEncodeEffects(t *testing.T) {
	type moved struct {
		X, Y int32
	}
	payloads, err := encodeEffects([]EffectRecord{
		{Entity: 1, Kind: "move", Payload: moved{X: 2, Y: 3}},
		{Entity: 2, Kind: "damage", Payload: map[string]int{"current": 4}},
	})
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.JSONEq(t, `{"X":2,"Y":3}`, string(payloads[0]))
	assert.JSONEq(t, `{"current":4}`, string(payloads[1]))
}

func TestEncodeEffectsRejectsUnencodable(t *testing.T) {
	_, err := encodeEffects([]EffectRecord{{Payload: make(chan int)}})
	assert.Error(t, err)
}

func TestMigrationsEmbedded(t *testing.T) {
	fsys, err := migrationFS()
	require.NoError(t, err)
	entries, err := fs.ReadDir(fsys, ".")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	body, err := fs.ReadFile(fsys, entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- +goose Down")
}

func TestPoolConfig(t *testing.T) {
	cfg := config.Default().Journal
	cfg.MaxOpenConns = 0
	cfg.MaxIdleConns = 9
	pc, err := poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, int32(1), pc.MaxConns)
	assert.Equal(t, int32(1), pc.MinConns, "idle conns capped at the pool size")
	assert.Equal(t, 30*time.Minute, pc.MaxConnLifetime)
	assert.Equal(t, "sandbox-journal", pc.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "sandbox", pc.ConnConfig.Database)

	cfg.DSN = "postgres://u@h/db?application_name=custom"
	pc, err = poolConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "custom", pc.ConnConfig.RuntimeParams["application_name"])

	cfg.DSN = "postgres://%zz"
	_, err = poolConfig(cfg)
	assert.Error(t, err)
}
