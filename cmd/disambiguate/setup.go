package main

import (
	"fmt"

	"github.com/scholarmatch/disambiguate/internal/author"
	"github.com/scholarmatch/disambiguate/internal/engine"
	"github.com/scholarmatch/disambiguate/internal/nameplugin"
	"github.com/scholarmatch/disambiguate/internal/storage/sqlite"
	"github.com/scholarmatch/disambiguate/internal/trace"
	"github.com/scholarmatch/disambiguate/pkg/config"
)

// buildRepository constructs the author.Repository named by
// cfg.Storage.Backend. The sqlite backend returns a closer; the memory
// backend's closer is a no-op.
func buildRepository(cfg *config.Config) (author.Repository, func() error, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		repo, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite repository: %w", err)
		}
		return repo, repo.Close, nil
	default:
		return author.NewMemoryRepository(), func() error { return nil }, nil
	}
}

// buildEngine wires a repository, tracer, and name-normalizer plug-in into
// one *engine.Engine: config -> logging -> repository -> engine ->
// optionally API server.
func buildEngine(cfg *config.Config) (*engine.Engine, author.Repository, func() error, error) {
	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var tracer *trace.Logger
	if cfg.TracePath != "" || cfg.ReviewPath != "" {
		tracer, err = trace.NewLogger(cfg.TracePath, cfg.ReviewPath, cfg.TraceSalt)
		if err != nil {
			closeRepo()
			return nil, nil, nil, fmt.Errorf("open trace logger: %w", err)
		}
	}

	eng, err := engine.NewEngine(repo, cfg, nameplugin.ScriptHeuristic{}, tracer)
	if err != nil {
		closeRepo()
		return nil, nil, nil, err
	}

	return eng, repo, closeRepo, nil
}
