package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"renderforge/internal/config"
	"renderforge/internal/daemon"
	"renderforge/internal/jobstore"
	"renderforge/internal/logging"
	"renderforge/internal/pipeline"
	"renderforge/internal/preflight"
	"renderforge/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("RENDERFORGE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := jobstore.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}

	executor, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("build pipeline", logging.Error(err))
		os.Exit(1)
	}

	results := preflight.RunAll(ctx, cfg, store, executor)
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", result.Name),
				logging.String("detail", result.Detail))
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}
	if !preflight.AllPassed(results) {
		logger.Error("preflight failed, refusing to start")
		os.Exit(1)
	}

	manager := workflow.NewManager(store, executor, cfg.Workflow, logger)

	d, err := daemon.New(cfg, store, logger, manager)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("renderforged shutting down")
}
