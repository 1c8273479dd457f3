package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scholarmatch/disambiguate/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the optional REST API over the decision engine",
	Long: `serve wires a repository and engine from config, then exposes them over
rest_api (POST /v1/mentions, GET /v1/authors/:id, GET /v1/stats, GET /v1/review).
The engine itself has no dependency on this command or on Gin.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.RestAPI.Enabled {
		return fmt.Errorf("rest_api.enabled is false; set it to true in the config file")
	}

	eng, repo, closeRepo, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	server := api.NewServer(eng, repo, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	return server.StartWithContext(ctx, 10*time.Second)
}
