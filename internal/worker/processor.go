// Package worker holds the asynq task handlers run by cmd/worker.
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/TalentFlow/internal/cvtext"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/queue"
)

// Ingester runs the ingestion pipeline.
type Ingester interface {
	Ingest(ctx context.Context, jobID string, raw *model.RawCandidate) (*model.Candidate, error)
}

// Documents reads stored CVs.
type Documents interface {
	GetCV(ctx context.Context, objectKey string) ([]byte, error)
}

// Records is the read side of the record store the handlers need.
type Records interface {
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
}

// Syncer refreshes cached candidate state.
type Syncer interface {
	SyncCandidate(ctx context.Context, id string) (*model.Candidate, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	ingester Ingester
	docs     Documents
	records  Records
	syncer   Syncer
	log      *logger.Logger
}

// NewProcessor constructs a worker processor. syncer may be nil.
func NewProcessor(ingester Ingester, docs Documents, records Records, syncer Syncer, log *logger.Logger) *Processor {
	return &Processor{
		ingester: ingester,
		docs:     docs,
		records:  records,
		syncer:   syncer,
		log:      log.With("service", "Worker"),
	}
}

// Handler registers every task handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IngestCandidateTask, p.HandleIngest)
	mux.HandleFunc(queue.StageChangedTask, p.HandleStageChanged)
	mux.HandleFunc(queue.OfferNotifyTask, p.HandleOfferNotify)
	return mux
}

// HandleIngest downloads the CV, extracts its text and runs the pipeline.
// Stage failures are final for the job, so they skip asynq retries.
func (p *Processor) HandleIngest(ctx context.Context, task *asynq.Task) error {
	var payload queue.IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	return p.IngestDocument(ctx, payload)
}

// IngestDocument is the body of HandleIngest, shared with the in-process pool.
func (p *Processor) IngestDocument(ctx context.Context, payload queue.IngestPayload) error {
	failure := func(err error) error {
		p.log.Error("ingest failed", "job_id", payload.JobID, "object_key", payload.ObjectKey, "error", err)
		return err
	}
	data, err := p.docs.GetCV(ctx, payload.ObjectKey)
	if err != nil {
		return failure(err)
	}
	text, err := cvtext.Extract(payload.FileName, data)
	if err != nil {
		return failure(fmt.Errorf("%w: %w", err, asynq.SkipRetry))
	}
	raw := cvtext.ParseFields(payload.JobID, text)
	raw.CVObjectKey = payload.ObjectKey
	c, err := p.ingester.Ingest(ctx, payload.JobID, raw)
	if err != nil {
		return failure(fmt.Errorf("%w: %w", err, asynq.SkipRetry))
	}
	p.log.Info("candidate ingested", "job_id", payload.JobID, "candidate_id", c.ID, "final_score", c.FinalScore)
	return nil
}

// HandleStageChanged is the asynchronous half of automation: it refreshes the
// candidate cache after a transition.
func (p *Processor) HandleStageChanged(ctx context.Context, task *asynq.Task) error {
	var payload queue.StageChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.CandidateID == "" {
		return fmt.Errorf("stage change without candidate id: %w", asynq.SkipRetry)
	}
	var (
		c   *model.Candidate
		err error
	)
	if p.syncer != nil {
		c, err = p.syncer.SyncCandidate(ctx, payload.CandidateID)
	} else {
		c, err = p.records.GetCandidate(ctx, payload.CandidateID)
	}
	if err != nil {
		return fmt.Errorf("refresh candidate %s: %w", payload.CandidateID, err)
	}
	p.log.Info("stage change automation", "candidate_id", payload.CandidateID, "from", payload.From, "to", payload.To, "current_stage", c.Stage)
	return nil
}

// HandleOfferNotify delivers the offer notification for the offer's current
// status.
func (p *Processor) HandleOfferNotify(ctx context.Context, task *asynq.Task) error {
	var payload queue.OfferNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	o, err := p.records.GetOffer(ctx, payload.OfferID)
	if err != nil {
		return fmt.Errorf("load offer %s: %w", payload.OfferID, err)
	}
	if o.Status != payload.Status {
		p.log.Debug("offer moved on before notification", "offer_id", o.ID, "queued_status", payload.Status, "current_status", o.Status)
	}
	p.log.Info("offer notification sent", "offer_id", o.ID, "candidate_id", o.CandidateID, "status", o.Status)
	return nil
}
