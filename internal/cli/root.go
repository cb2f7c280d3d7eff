// Package cli implements the farecard command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/farecard/farecard/internal/daemon"
	"github.com/farecard/farecard/internal/logger"
)

var (
	flagConfig   string
	flagLogLevel string
	flagNoColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "farecard",
	Short: "Decode transit IC card usage history",
	Long: `farecard decodes the 20-slot usage history of FeliCa transit cards
(Suica, PASMO, ICOCA and compatible) into readable transactions: terminal,
transaction type, date, entry and exit stations, and remaining balance.

History is read from card dumps; station names come from the station code
CSV or its imported SQLite copy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $FARECARD_HOME/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error, off")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
}

// Execute runs the root command.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// loadConfig resolves the config file and applies the --log-level flag.
func loadConfig() (daemon.Config, error) {
	path := flagConfig
	if path == "" {
		path = daemon.ConfigPath()
	}
	cfg, err := daemon.Load(path)
	if err != nil {
		return cfg, err
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

// setup loads config and builds the command logger.
func setup(cmd *cobra.Command) (daemon.Config, zerolog.Logger, context.Context, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, zerolog.Nop(), nil, err
	}
	log := logger.New(cfg.Log.Level)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithContext(ctx, log)
	return cfg, log, ctx, nil
}
