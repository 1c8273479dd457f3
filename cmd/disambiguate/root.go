package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarmatch/disambiguate/internal/logging"
	"github.com/scholarmatch/disambiguate/pkg/config"
)

// Version is set during build.
var Version = "0.1.0"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:     "disambiguate",
	Short:   "Incremental author disambiguation engine",
	Version: Version,
	Long: `disambiguate resolves one author mention at a time against a blocking index
of canonical authors, scores candidates with a weighted-sum or Fellegi-Sunter
comparator, and applies a dual-threshold MERGE/NEW/UNKNOWN decision.

Examples:
  disambiguate decide --input mention.json
  cat mention.json | disambiguate decide
  disambiguate stats --config config.yaml
  disambiguate serve --config config.yaml`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (defaults to the search path in pkg/config.Load)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level from config (debug, info, warn, error)")

	rootCmd.AddCommand(decideCmd, statsCmd, serveCmd)
}

// loadConfig loads config honoring --config/--log-level, then initializes
// the global logger from it.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}
