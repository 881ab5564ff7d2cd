// Command worker consumes queued ingestion, automation and notification tasks.
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
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("init app", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	if err := a.Start(ctx); err != nil {
		lg.Error("start app", "error", err)
		os.Exit(1)
	}

	// The asynq server owns its own signal handling; the goroutine below only
	// covers cancellation coming from our context.
	server, err := a.WorkerServer()
	if err != nil {
		lg.Error("init worker", "error", err)
		os.Exit(1)
	}
	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	if err := server.Run(a.Processor.Handler()); err != nil {
		lg.Error("worker stopped", "error", err)
		stop()
		a.Close()
		os.Exit(1)
	}
}
