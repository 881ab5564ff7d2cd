package ingestion

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// StatusStore persists stage outcomes.
type StatusStore interface {
	RecordStageStatus(ctx context.Context, rec *model.StageStatusRecord) error
}

// StageError reports the stage that stopped a pipeline run.
type StageError struct {
	Stage model.IngestionStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingestion stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap exposes both the cause and the taxonomy class.
func (e *StageError) Unwrap() []error {
	return []error{apperr.ErrStageExecution, e.Err}
}

// Target identifies where stage statuses are recorded. CandidateID is empty
// until the candidate row exists.
type Target struct {
	JobID       string
	CandidateID string
}

// Runner records stage statuses around stage functions.
type Runner struct {
	store StatusStore
	log   *logger.Logger
}

func NewRunner(store StatusStore, log *logger.Logger) *Runner {
	return &Runner{store: store, log: log}
}

// Mark persists one status row. Failures are logged, never returned: a stage
// outcome does not depend on its bookkeeping.
func (r *Runner) Mark(ctx context.Context, stage model.IngestionStage, status model.StageStatus, target Target, detail string, payload json.RawMessage) {
	err := r.store.RecordStageStatus(ctx, &model.StageStatusRecord{
		JobID:       target.JobID,
		CandidateID: target.CandidateID,
		Stage:       stage,
		Status:      status,
		Detail:      detail,
		Payload:     payload,
	})
	if err != nil {
		r.log.Warn("stage status not persisted", "job_id", target.JobID, "stage", stage, "status", status, "error", err)
	}
}

// RunStage marks stage pending, runs fn and records success with the output
// as payload, or failure with the error as detail. A panic in fn counts as a
// failure.
func RunStage[T any](ctx context.Context, r *Runner, stage model.IngestionStage, target Target, fn func() (T, error)) (T, error) {
	r.Mark(ctx, stage, model.StagePending, target, "", nil)

	result, err := safeCall(fn)
	if err != nil {
		r.Mark(ctx, stage, model.StageFailed, target, err.Error(), nil)
		var zero T
		return zero, &StageError{Stage: stage, Err: err}
	}

	payload, merr := json.Marshal(result)
	if merr != nil {
		r.log.Debug("stage payload not encodable", "stage", stage, "error", merr)
		payload = nil
	}
	r.Mark(ctx, stage, model.StageSuccess, target, "", payload)
	return result, nil
}

func safeCall[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
