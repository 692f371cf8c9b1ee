package persist

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
)

// KindCount is one kind's traffic in a journalled tick.
type KindCount struct {
	Submitted int `json:"submitted"`
	Effects   int `json:"effects"`
}

// EffectRecord is one applied effect. Payload is stored as JSON.
type EffectRecord struct {
	Entity  uint64
	Kind    string
	Cause   uint64
	Payload any
}

// TickRecord is the journal row of one completed tick.
type TickRecord struct {
	RunID     string
	Tick      uint64
	Submitted int
	Discarded int
	Kinds     map[string]KindCount
	Effects   []EffectRecord
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteTicks stores a batch of ticks in one transaction. Rows already
// present for (run, tick) are left untouched, so a retried batch is safe.
func (r *JournalRepo) WriteTicks(ctx context.Context, recs []TickRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range recs {
		kinds, err := json.Marshal(rec.Kinds)
		if err != nil {
			return fmt.Errorf("journal encode kinds tick %d: %w", rec.Tick, err)
		}
		batch.Queue(
			`INSERT INTO tick_journal (run_id, tick, submitted, effects, discarded, kinds)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (run_id, tick) DO NOTHING`,
			rec.RunID, int64(rec.Tick), rec.Submitted, len(rec.Effects), rec.Discarded, kinds,
		)
		payloads, err := encodeEffects(rec.Effects)
		if err != nil {
			return fmt.Errorf("journal encode effects tick %d: %w", rec.Tick, err)
		}
		for i, e := range rec.Effects {
			batch.Queue(
				`INSERT INTO tick_effects (run_id, tick, ord, entity, kind, cause, payload)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (run_id, tick, ord) DO NOTHING`,
				rec.RunID, int64(rec.Tick), i, int64(e.Entity), e.Kind, int64(e.Cause), payloads[i],
			)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}
	return tx.Commit(ctx)
}

// DeleteRun removes every journalled tick of a run.
func (r *JournalRepo) DeleteRun(ctx context.Context, runID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM tick_journal WHERE run_id = $1`, runID)
	if err != nil {
		return 0, fmt.Errorf("journal delete run %s: %w", runID, err)
	}
	return tag.RowsAffected(), nil
}

// LastTick returns the highest journalled tick of a run, 0 if none.
func (r *JournalRepo) LastTick(ctx context.Context, runID string) (uint64, error) {
	var last int64
	err := r.db.Pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(tick), 0) FROM tick_journal WHERE run_id = $1`, runID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("journal last tick %s: %w", runID, err)
	}
	return uint64(last), nil
}

func encodeEffects(effects []EffectRecord) ([][]byte, error) {
	out := make([][]byte, len(effects))
	for i, e := range effects {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}
