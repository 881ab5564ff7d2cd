// Package ingestion turns raw candidate input into a scored candidate row via
// five ordered stages: parse, standardize, enrich, compliance and score. Each
// stage's pending/success/failed status is persisted; the first failure stops
// the run and no candidate row is written.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// Transform is one candidate-to-candidate stage.
type Transform func(ctx context.Context, c model.Candidate) (model.Candidate, error)

// Stages holds the stage functions in pipeline order. Fields left nil fall
// back to the defaults.
type Stages struct {
	Parse       func(ctx context.Context, raw *model.RawCandidate) (model.Candidate, error)
	Standardize Transform
	Enrich      Transform
	Compliance  Transform
	Score       Transform
}

// DefaultStages returns the built-in stage implementations.
func DefaultStages() Stages {
	pure := func(fn func(model.Candidate) model.Candidate) Transform {
		return func(_ context.Context, c model.Candidate) (model.Candidate, error) {
			return fn(c), nil
		}
	}
	return Stages{
		Parse: func(_ context.Context, raw *model.RawCandidate) (model.Candidate, error) {
			return Parse(raw), nil
		},
		Standardize: pure(Standardize),
		Enrich:      pure(Enrich),
		Compliance:  pure(CheckCompliance),
		Score:       pure(Score),
	}
}

func (s Stages) withDefaults() Stages {
	d := DefaultStages()
	if s.Parse == nil {
		s.Parse = d.Parse
	}
	if s.Standardize == nil {
		s.Standardize = d.Standardize
	}
	if s.Enrich == nil {
		s.Enrich = d.Enrich
	}
	if s.Compliance == nil {
		s.Compliance = d.Compliance
	}
	if s.Score == nil {
		s.Score = d.Score
	}
	return s
}

// Store is what the pipeline needs from the record store.
type Store interface {
	StatusStore
	InsertCandidate(ctx context.Context, c *model.Candidate) error
	UpdateCandidate(ctx context.Context, id string, patch model.CandidatePatch) (*model.Candidate, error)
}

// EventRecorder writes a timeline+audit pair.
type EventRecorder interface {
	Record(ctx context.Context, candidateID string, payload model.Payload) error
}

// Pipeline runs ingestion jobs.
type Pipeline struct {
	store  Store
	events EventRecorder
	runner *Runner
	stages Stages
	log    *logger.Logger
	now    func() time.Time
}

// New builds a Pipeline with the default stages. events may be nil.
func New(store Store, events EventRecorder, log *logger.Logger) *Pipeline {
	log = log.With("service", "IngestionPipeline")
	return &Pipeline{
		store:  store,
		events: events,
		runner: NewRunner(store, log),
		stages: DefaultStages(),
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithStages replaces stage implementations; nil fields keep the defaults.
func (p *Pipeline) WithStages(s Stages) *Pipeline {
	p.stages = s.withDefaults()
	return p
}

// Ingest runs all five stages for raw and inserts the resulting candidate.
// An empty jobID falls back to raw's job id, then to a fresh one. On a stage
// failure the returned error is a *StageError.
func (p *Pipeline) Ingest(ctx context.Context, jobID string, raw *model.RawCandidate) (*model.Candidate, error) {
	if jobID == "" && raw != nil {
		jobID = raw.JobID
	}
	if jobID == "" {
		jobID = uuid.NewString()
	}
	target := Target{JobID: jobID}
	p.log.Info("ingestion started", "job_id", jobID)

	parsed, err := RunStage(ctx, p.runner, model.IngestParsed, target, func() (model.Candidate, error) {
		return p.stages.Parse(ctx, raw)
	})
	if err != nil {
		return nil, p.abort(jobID, err)
	}
	current := parsed
	for _, step := range []struct {
		stage model.IngestionStage
		fn    Transform
	}{
		{model.IngestStandardized, p.stages.Standardize},
		{model.IngestEnriched, p.stages.Enrich},
		{model.IngestCompliance, p.stages.Compliance},
		{model.IngestScored, p.stages.Score},
	} {
		in := current
		current, err = RunStage(ctx, p.runner, step.stage, target, func() (model.Candidate, error) {
			return step.fn(ctx, in)
		})
		if err != nil {
			return nil, p.abort(jobID, err)
		}
	}

	final := current.Clone()
	final.ID = ""
	final.JobID = jobID
	final.Stage = model.StageApplied
	final.Ingestion = FinalStatuses(final)
	now := p.now()
	final.LastStatusChangedAt = &now
	if err := p.store.InsertCandidate(ctx, &final); err != nil {
		if !errors.Is(err, apperr.ErrStoreWrite) {
			err = errors.Join(apperr.ErrStoreWrite, err)
		}
		return nil, fmt.Errorf("insert candidate for job %s: %w", jobID, err)
	}

	if err := p.BackfillAllStatuses(ctx, final.ID, final.Ingestion); err != nil {
		p.log.Warn("status backfill failed", "candidate_id", final.ID, "op", "backfill_statuses", "error", err)
	}
	if p.events != nil {
		ingested := model.CandidateIngested{JobID: jobID, FinalScore: final.FinalScore, Compliant: final.Compliant}
		if err := p.events.Record(ctx, final.ID, ingested); err != nil {
			p.log.Warn("ingestion event not recorded", "candidate_id", final.ID, "op", ingested.EventType(), "error", err)
		}
	}
	p.log.Info("ingestion finished", "job_id", jobID, "candidate_id", final.ID, "final_score", final.FinalScore, "compliant", final.Compliant)
	return &final, nil
}

// FinalStatuses is the status map written onto a freshly ingested row. The
// compliance column reports the compliance outcome, not stage execution, so a
// non-compliant candidate reads failed there while the status log says success.
func FinalStatuses(c model.Candidate) model.IngestionStatuses {
	s := model.IngestionStatuses{
		Parsed:       model.StageSuccess,
		Standardized: model.StageSuccess,
		Enriched:     model.StageSuccess,
		Compliance:   model.StageSuccess,
		Scored:       model.StageSuccess,
	}
	if !c.Compliant {
		s.Compliance = model.StageFailed
	}
	return s
}

// BackfillAllStatuses rewrites the given stage statuses onto the candidate
// row. Re-running it with the same map leaves the row unchanged.
func (p *Pipeline) BackfillAllStatuses(ctx context.Context, candidateID string, statuses model.IngestionStatuses) error {
	if statuses == (model.IngestionStatuses{}) {
		return nil
	}
	if _, err := p.store.UpdateCandidate(ctx, candidateID, model.CandidatePatch{Ingestion: &statuses}); err != nil {
		return fmt.Errorf("backfill statuses for %s: %w", candidateID, err)
	}
	return nil
}

func (p *Pipeline) abort(jobID string, err error) error {
	var se *StageError
	if errors.As(err, &se) {
		p.log.Warn("ingestion aborted", "job_id", jobID, "stage", se.Stage, "error", se.Err)
	}
	return err
}
