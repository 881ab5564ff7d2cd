// Package app wires the TalentFlow components from configuration. The API
// server, the asynq worker and the CLI all build on the same App.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TalentFlow/internal/api"
	"github.com/dharsanguruparan/TalentFlow/internal/automation"
	"github.com/dharsanguruparan/TalentFlow/internal/candidates"
	"github.com/dharsanguruparan/TalentFlow/internal/config"
	"github.com/dharsanguruparan/TalentFlow/internal/database"
	"github.com/dharsanguruparan/TalentFlow/internal/eventlog"
	"github.com/dharsanguruparan/TalentFlow/internal/ingestion"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/offer"
	"github.com/dharsanguruparan/TalentFlow/internal/processing"
	"github.com/dharsanguruparan/TalentFlow/internal/queue"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
	"github.com/dharsanguruparan/TalentFlow/internal/repository"
	"github.com/dharsanguruparan/TalentFlow/internal/s3storage"
	"github.com/dharsanguruparan/TalentFlow/internal/signing"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
	"github.com/dharsanguruparan/TalentFlow/internal/worker"
	"github.com/dharsanguruparan/TalentFlow/internal/workflow"
)

// ErrQueueFull is returned when the in-process pool rejects a job.
var ErrQueueFull = errors.New("processing queue full")

// App holds every wired component.
type App struct {
	Cfg *config.Config
	Log *logger.Logger

	Store     storage.Store
	Documents storage.Documents
	Bus       realtime.Bus
	Cache     *realtime.MemoryCache
	Syncer    *realtime.Syncer

	Events     *eventlog.Log
	Candidates *candidates.Service
	Hooks      *automation.Dispatcher
	Workflow   *workflow.Engine
	Offers     *offer.Engine
	Pipeline   *ingestion.Pipeline
	Processor  *worker.Processor
	Signer     *signing.Signer
	Jobs       api.JobSubmitter

	db     *pgxpool.Pool
	client *asynq.Client
	pool   *processing.Pool
}

// New builds an App. Postgres, Redis and the object store are used when the
// configuration names them; otherwise in-memory stand-ins are wired.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}
	if err := a.initInfra(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.initCore()
	return a, nil
}

func (a *App) initInfra(ctx context.Context) error {
	cfg := a.Cfg
	if cfg.UsesRedis() {
		bus, err := realtime.NewRedisBus(ctx, a.Log, realtime.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Channel:  cfg.RealtimeChannel,
		})
		if err != nil {
			return fmt.Errorf("init realtime bus: %w", err)
		}
		a.Bus = bus
		a.client = asynq.NewClient(a.redisOpt())
	} else {
		a.Bus = realtime.NewMemoryBus()
	}

	if cfg.UsesPostgres() {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		a.db = pool
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		a.Store = repository.New(pool, a.Bus, a.Log)
	} else {
		a.Store = storage.NewMemoryStore(a.Bus)
	}

	if cfg.UsesObjectStore() {
		docs, err := s3storage.New(cfg)
		if err != nil {
			return fmt.Errorf("init object storage: %w", err)
		}
		if err := docs.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		a.Documents = docs
	} else {
		a.Documents = storage.NewMemoryBlobs()
	}
	return nil
}

func (a *App) initCore() {
	log := a.Log
	a.Cache = realtime.NewMemoryCache()
	a.Syncer = realtime.NewSyncer(a.Store, a.Cache, log)
	a.Events = eventlog.New(a.Store)
	a.Candidates = candidates.NewService(a.Store, a.Events, log)

	a.Hooks = automation.NewDispatcher(a.Store, a.Cache, log)
	a.Hooks.Register(automation.HandlerFunc{ID: "reference_check", Fn: a.referenceCheck})
	if a.client != nil {
		a.Hooks.Register(queue.NewStageChangeEnqueuer(a.client))
	}

	a.Workflow = workflow.NewEngine(a.Store, a.Events, a.Hooks, a.Candidates, log)
	var notifier offer.Notifier
	if a.client != nil {
		notifier = queue.NewNotifier(a.client)
	}
	a.Offers = offer.NewEngine(a.Store, a.Events, a.Workflow, a.Candidates, notifier, log)
	a.Pipeline = ingestion.New(a.Store, a.Events, log)
	a.Processor = worker.NewProcessor(a.Pipeline, a.Documents, a.Store, a.Syncer, log)
	a.Signer = signing.NewSigner(a.Cfg.SigningSecret)

	if a.client != nil {
		a.Jobs = queueSubmitter{client: a.client}
	} else {
		a.pool = processing.New(a.Processor, a.Store, a.Cfg.ProcessingPool, log)
		a.Jobs = poolSubmitter{pool: a.pool}
	}
}

// referenceCheck runs the automated reference evaluation when a candidate
// reaches the offer stage.
func (a *App) referenceCheck(ctx context.Context, ev automation.Event) error {
	if ev.To != model.StageOffer {
		return nil
	}
	_, _, err := a.Candidates.EvaluateReference(ctx, ev.CandidateID)
	return err
}

// Start launches background consumers: the cache syncer and, without Redis,
// the in-process ingestion pool. They stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Syncer.Start(ctx, a.Store); err != nil {
		return fmt.Errorf("start candidate sync: %w", err)
	}
	if a.pool != nil {
		a.pool.Start(ctx)
	}
	return nil
}

// API builds the HTTP server over the wired engines.
func (a *App) API() *api.Server {
	return api.New(a.Cfg, api.Deps{
		Candidates: a.Candidates,
		Workflow:   a.Workflow,
		Offers:     a.Offers,
		Events:     a.Events,
		Pipeline:   a.Pipeline,
		Statuses:   a.Store,
		Documents:  a.Documents,
		Jobs:       a.Jobs,
		Progress:   a.Cache,
		Signer:     a.Signer,
	}, a.Log)
}

// WorkerServer builds the asynq server that consumes queued tasks. It needs
// Redis.
func (a *App) WorkerServer() (*asynq.Server, error) {
	if !a.Cfg.UsesRedis() {
		return nil, errors.New("worker requires TALENTFLOW_REDIS_ADDR")
	}
	return asynq.NewServer(a.redisOpt(), asynq.Config{
		Concurrency: a.Cfg.ProcessingPool,
	}), nil
}

func (a *App) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     a.Cfg.RedisAddr,
		Password: a.Cfg.RedisPassword,
		DB:       a.Cfg.RedisDB,
	}
}

// Close waits for in-flight pool jobs and releases connections. The context
// given to Start must be cancelled first.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Wait()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

type queueSubmitter struct {
	client queue.Enqueuer
}

func (q queueSubmitter) SubmitIngest(ctx context.Context, payload queue.IngestPayload) error {
	return queue.EnqueueIngest(ctx, q.client, payload)
}

type poolSubmitter struct {
	pool *processing.Pool
}

func (p poolSubmitter) SubmitIngest(ctx context.Context, payload queue.IngestPayload) error {
	if !p.pool.Submit(ctx, payload) {
		return ErrQueueFull
	}
	return nil
}
