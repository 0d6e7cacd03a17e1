// Command tkal writes ideal tracker-alignment records and derives the
// alignment-level hierarchy of a tracker geometry.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/banshee-data/tkal/internal/config"
	"github.com/banshee-data/tkal/internal/monitoring"
)

// app holds the global flags and the state built from them.
type app struct {
	configPath string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "tkal",
		Short: "Tracker alignment records and alignment levels",
		Long: `tkal snapshots an ideal tracker geometry into alignment records in a
conditions database and derives the alignment-level hierarchy (module up to
barrel or endcap) from detector identifiers.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := zap.NewProductionConfig()
			if a.verbose {
				cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := cfg.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.logger = logger
			monitoring.SetZap(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Job config file (.yaml, .yml or .json)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Minute, "Operation timeout")

	root.AddCommand(
		newSnapshotCmd(a),
		newLevelsCmd(a),
		newMigrateCmd(a),
		newIOVsCmd(a),
		newVersionCmd(),
	)
	return root
}

// loadJob returns the job from --config, or an empty job relying on defaults.
func (a *app) loadJob() (*config.JobConfig, error) {
	if a.configPath == "" {
		return &config.JobConfig{}, nil
	}
	return config.LoadJobConfig(a.configPath)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
