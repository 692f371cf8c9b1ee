package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandbox/server/internal/core/action"
	"github.com/sandbox/server/internal/game"
)

var (
	flagTicks   int
	flagVerbose bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Run a fixed number of ticks headless and print the world digest",
	Long: `Replay the configured level and input script for --ticks ticks without
waiting on the clock. Two replays of the same inputs print the same digest.

Examples:
  sandbox replay --ticks 500
  sandbox replay --ticks 50 -v`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().IntVar(&flagTicks, "ticks", 100, "Number of ticks to run")
	replayCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print a summary line per tick")
}

func runReplay(cmd *cobra.Command, _ []string) error {
	if flagTicks < 1 {
		return fmt.Errorf("--ticks must be at least 1, got %d", flagTicks)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	g, err := game.New(cfg, log)
	if err != nil {
		return err
	}
	defer g.Close(cmd.Context())

	for i := 0; i < flagTicks; i++ {
		rep, err := g.Step(cmd.Context())
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		if flagVerbose {
			mv, dmg := rep.Kinds[action.KindMove], rep.Kinds[action.KindDamage]
			fmt.Printf("tick %5d  move %d/%d  damage %d/%d  digest %016x\n",
				rep.Tick, mv.Effects, mv.Submitted, dmg.Effects, dmg.Submitted, g.Digest())
		}
	}

	st := g.Stats()
	printSection("replay")
	printStat("level", g.LevelName())
	printStat("ticks", g.Tick())
	printStat("actions", st.Submitted)
	printStat("effects", st.Effects)
	printStat("deaths", st.Deaths)
	printStat("entities", len(g.Snapshots()))
	printStat("digest", fmt.Sprintf("%016x", g.Digest()))
	log.Debug("replay finished", zap.Uint64("tick", g.Tick()))
	return nil
}
