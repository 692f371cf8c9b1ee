// sandbox runs the headless grid sandbox.
//
// Usage:
//
//	sandbox run                - Tick in real time until SIGINT/SIGTERM
//	sandbox replay --ticks N   - Run N ticks as fast as possible and print the digest
//
// Global flags:
//
//	--config <path>  - Config file (default: $SANDBOX_CONFIG or config/sandbox.toml)
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sandbox/server/internal/config"
)

var flagConfig string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Headless tick-based grid sandbox",
	Long: `sandbox simulates a 2D grid level one tick at a time: producers propose
actions, one resolver per kind turns them into effects, and appliers commit
the effects to the world.

Examples:
  sandbox run
  sandbox run --config config/sandbox.toml
  sandbox replay --ticks 500`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: $SANDBOX_CONFIG or config/sandbox.toml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig resolves the config path: flag, then env, then the default.
func loadConfig() (*config.Config, error) {
	path := "config/sandbox.toml"
	if p := os.Getenv(config.EnvPath); p != "" {
		path = p
	}
	if flagConfig != "" {
		path = flagConfig
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// ── Console display helpers ────────────────────────────────────────

func printBanner(level string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              grid sandbox                 \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mlevel:\033[0m %s\n\n", level)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, value any) {
	v := fmt.Sprint(value)
	dots := max(42-len(label)-len(v), 3)
	fmt.Printf("  %s \033[90m%s\033[0m %s\n", label, strings.Repeat(".", dots), v)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}
