package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print repository statistics",
	Long: `stats opens the configured repository (memory or sqlite) and reports the
number of canonical authors it holds. Against the memory backend this is
only meaningful when combined with --config pointing at the same process's
persistent state — the memory repository itself does not persist across
CLI invocations; use the sqlite backend for a durable count.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	_, repo, closeRepo, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	fmt.Fprintf(cmd.OutOrStdout(), "backend: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(cmd.OutOrStdout(), "author_count: %d\n", repo.Count())
	return nil
}
