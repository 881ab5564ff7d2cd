// Package processing runs CV ingestion jobs on an in-process worker pool. It
// stands in for the asynq worker when no Redis is configured.
package processing

import (
	"context"
	"sync"

	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/queue"
)

// Runner executes one ingestion job.
type Runner interface {
	IngestDocument(ctx context.Context, payload queue.IngestPayload) error
}

// StatusStore records a rejected job.
type StatusStore interface {
	RecordStageStatus(ctx context.Context, rec *model.StageStatusRecord) error
}

// Pool consumes jobs with a fixed number of goroutines.
type Pool struct {
	runner  Runner
	status  StatusStore
	log     *logger.Logger
	queue   chan queue.IngestPayload
	workers int
	wg      sync.WaitGroup
	once    sync.Once
}

// New builds a Pool with queue capacity tied to worker count.
func New(runner Runner, status StatusStore, workers int, log *logger.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		runner: runner,
		status: status,
		log:    log.With("service", "ProcessingPool"),
		// A buffered channel keeps uploads responsive while workers are busy.
		queue:   make(chan queue.IngestPayload, workers*4),
		workers: workers,
	}
}

// Start launches worker goroutines; they exit when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(ctx)
		}
	})
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Submit queues a job. When the buffer is full the job is dropped and its
// parse stage is recorded as failed so the status log reflects reality.
func (p *Pool) Submit(ctx context.Context, job queue.IngestPayload) bool {
	select {
	case p.queue <- job:
		return true
	default:
		p.log.Warn("processing queue full, dropping job", "job_id", job.JobID)
		_ = p.status.RecordStageStatus(ctx, &model.StageStatusRecord{
			JobID:  job.JobID,
			Stage:  model.IngestParsed,
			Status: model.StageFailed,
			Detail: "processing queue full",
		})
		return false
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.queue:
			if err := p.runner.IngestDocument(ctx, job); err != nil {
				p.log.Warn("ingestion job failed", "job_id", job.JobID, "error", err)
			}
		}
	}
}
