// Command server runs the TalentFlow REST API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/TalentFlow/internal/app"
	"github.com/dharsanguruparan/TalentFlow/internal/config"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
)

func main() {
	// Step 1: load configuration. Go returns errors as values instead of
	// throwing, so every step checks err before moving on.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	// Step 2: a context that is cancelled on SIGINT/SIGTERM. Everything that
	// blocks below watches it for shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Step 3: wire stores, engines and background consumers.
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("init app", "error", err)
		os.Exit(1)
	}
	if err := a.Start(ctx); err != nil {
		lg.Error("start app", "error", err)
		a.Close()
		os.Exit(1)
	}

	// Step 4: block until the HTTP server exits, then release resources.
	runErr := a.API().Run(ctx)
	stop()
	a.Close()
	if runErr != nil {
		lg.Error("server stopped", "error", runErr)
		os.Exit(1)
	}
}
