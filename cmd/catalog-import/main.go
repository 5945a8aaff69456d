package main

import (
	"context"
	"os"
	"strings"

	"closer_scheduling_backend/internal/scheduling/catalog"
	"closer_scheduling_backend/internal/scheduling/repository"
	"closer_scheduling_backend/platform/config"
	"closer_scheduling_backend/platform/db"
	"closer_scheduling_backend/platform/logger"
)

const defaultCatalogFile = "catalog.yaml"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	path := catalogPath()
	log.Info("starting slot catalog import", "file", path)

	f, err := os.Open(path)
	if err != nil {
		log.Error("failed to open catalog file", "file", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	closers, err := catalog.Parse(f, cfg.GetDefaultTimezone())
	if err != nil {
		log.Error("invalid catalog file", "file", path, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	svc := catalog.New(repo, 0)
	if err := svc.Import(ctx, repo, closers); err != nil {
		log.Error("catalog import failed", "error", err)
		os.Exit(1)
	}

	templates := 0
	for _, pc := range closers {
		templates += len(pc.Templates)
	}
	log.Info("slot catalog imported", "closers", len(closers), "templates", templates)
}

// catalogPath reads the file from the first argument, then CATALOG_FILE.
func catalogPath() string {
	if len(os.Args) > 1 && strings.TrimSpace(os.Args[1]) != "" {
		return os.Args[1]
	}
	if env := strings.TrimSpace(os.Getenv("CATALOG_FILE")); env != "" {
		return env
	}
	return defaultCatalogFile
}
