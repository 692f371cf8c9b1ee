package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandbox/server/internal/config"
	"github.com/sandbox/server/internal/game"
	"github.com/sandbox/server/internal/persist"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Tick in real time until interrupted",
	Long: `Run the configured level at sim.tick_rate until SIGINT or SIGTERM.
With [journal] enabled every tick report is written to PostgreSQL.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	var opts []game.Option
	if cfg.Journal.Enabled {
		db, repo, err := openJournal(cfg, log)
		if err != nil {
			return err
		}
		defer db.Close()
		opts = append(opts, game.WithJournal(repo, cfg.Sim.Seed))
	}

	g, err := game.New(cfg, log, opts...)
	if err != nil {
		return err
	}
	printBanner(g.LevelName())
	printSection("world")
	for _, s := range g.Snapshots() {
		printStat(fmt.Sprintf("%s (%s)", s.Name, s.Role), fmt.Sprintf("(%d,%d)", s.At[0], s.At[1]))
	}
	fmt.Println()
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Sim.TickRate))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := g.Run(ctx); err != nil {
		return err
	}
	log.Info("shutdown signal received", zap.Uint64("tick", g.Tick()))

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.Close(closeCtx); err != nil {
		log.Error("final journal flush failed", zap.Error(err))
	}

	st := g.Stats()
	log.Info("sandbox stopped",
		zap.Uint64("ticks", g.Tick()),
		zap.Int("effects", st.Effects),
		zap.Int("deaths", st.Deaths),
		zap.String("digest", fmt.Sprintf("%016x", g.Digest())))
	return nil
}

// openJournal connects, migrates and clears any earlier run with the same
// seed.
func openJournal(cfg *config.Config, log *zap.Logger) (*persist.DB, *persist.JournalRepo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Journal, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL connected")

	version, err := persist.RunMigrations(ctx, db.Pool, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	printOK(fmt.Sprintf("journal schema at version %d", version))

	repo := persist.NewJournalRepo(db)
	last, err := repo.LastTick(ctx, cfg.Sim.Seed)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	if last > 0 {
		log.Info("previous run found", zap.String("run", cfg.Sim.Seed), zap.Uint64("last_tick", last))
	}
	if n, err := repo.DeleteRun(ctx, cfg.Sim.Seed); err != nil {
		db.Close()
		return nil, nil, err
	} else if n > 0 {
		log.Info("previous run cleared", zap.String("run", cfg.Sim.Seed), zap.Int64("ticks", n))
	}
	fmt.Fprintln(os.Stdout)
	return db, repo, nil
}
