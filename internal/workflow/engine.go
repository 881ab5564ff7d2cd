// Package workflow validates and applies candidate stage transitions and
// triggers their side effects.
//
// The store update and the side effects that follow it are separate calls
// with no compensation. Once the stage row is written the transition counts
// as committed; a failing timeline/audit append, automation hook or
// onboarding trigger is logged and reported in Result.Warnings but never
// undoes the stage change.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

var (
	ErrInvalidStage      = fmt.Errorf("%w: invalid stage", apperr.ErrValidation)
	ErrTerminalState     = fmt.Errorf("%w: cannot leave terminal stage", apperr.ErrValidation)
	ErrIllegalTransition = fmt.Errorf("%w: illegal transition", apperr.ErrValidation)
	ErrNoNextStage       = fmt.Errorf("%w: no next stage", apperr.ErrValidation)
)

// CandidateStore is the slice of the record store the engine needs.
type CandidateStore interface {
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, patch model.CandidatePatch) (*model.Candidate, error)
}

// EventRecorder writes a timeline+audit pair.
type EventRecorder interface {
	Record(ctx context.Context, candidateID string, payload model.Payload) error
}

// HookDispatcher runs automation after a transition. It must not fail the
// caller, so it returns nothing.
type HookDispatcher interface {
	Dispatch(ctx context.Context, candidateID string, from, to model.Stage)
}

// OnboardingTrigger starts onboarding for a candidate whose offer was
// accepted.
type OnboardingTrigger interface {
	StartOnboarding(ctx context.Context, candidateID string) error
}

// Result describes an applied transition.
type Result struct {
	CandidateID string      `json:"candidateId"`
	OldStage    model.Stage `json:"oldStage"`
	NewStage    model.Stage `json:"newStage"`
	// Warnings collects side-effect failures that did not undo the change.
	Warnings []string `json:"warnings,omitempty"`
}

// Engine applies stage transitions.
type Engine struct {
	store      CandidateStore
	events     EventRecorder
	hooks      HookDispatcher
	onboarding OnboardingTrigger
	log        *logger.Logger
	now        func() time.Time
}

// NewEngine wires an Engine. hooks and onboarding may be nil.
func NewEngine(store CandidateStore, events EventRecorder, hooks HookDispatcher, onboarding OnboardingTrigger, log *logger.Logger) *Engine {
	return &Engine{
		store:      store,
		events:     events,
		hooks:      hooks,
		onboarding: onboarding,
		log:        log.With("service", "StageEngine"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Validate checks a transition without applying it.
func Validate(from, to model.Stage) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStage, to)
	}
	if from.Terminal() {
		return fmt.Errorf("%w: %s", ErrTerminalState, from)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// Transition moves candidate to newStage. The candidate's Stage field is taken
// as the current stage; no version check is made against the store, so two
// racing transitions both commit and the last write wins.
func (e *Engine) Transition(ctx context.Context, candidate *model.Candidate, newStage model.Stage) (Result, error) {
	if candidate == nil {
		return Result{}, fmt.Errorf("candidate required: %w", apperr.ErrValidation)
	}
	oldStage := candidate.Stage
	if err := Validate(oldStage, newStage); err != nil {
		return Result{}, err
	}

	changedAt := e.now()
	if _, err := e.store.UpdateCandidate(ctx, candidate.ID, model.CandidatePatch{
		Stage:               &newStage,
		LastStatusChangedAt: &changedAt,
	}); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("update stage for %s: %w", candidate.ID, errors.Join(apperr.ErrStoreWrite, err))
	}
	candidate.Stage = newStage

	res := Result{CandidateID: candidate.ID, OldStage: oldStage, NewStage: newStage}
	e.sideEffect(&res, "stage_change", e.events.Record(ctx, candidate.ID, model.StageChange{From: oldStage, To: newStage}))

	if e.hooks != nil {
		e.hooks.Dispatch(ctx, candidate.ID, oldStage, newStage)
	}

	if newStage == model.StageOfferAccepted {
		e.sideEffect(&res, "onboarding_started", e.events.Record(ctx, candidate.ID, model.OnboardingStarted{}))
		if e.onboarding != nil {
			e.sideEffect(&res, "start_onboarding", e.onboarding.StartOnboarding(ctx, candidate.ID))
		}
	}

	e.log.Info("stage changed", "candidate_id", candidate.ID, "from", oldStage, "to", newStage)
	return res, nil
}

// ChangeStage loads the candidate and transitions it to newStage.
func (e *Engine) ChangeStage(ctx context.Context, candidateID string, newStage model.Stage) (Result, error) {
	candidate, err := e.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return Result{}, err
	}
	return e.Transition(ctx, candidate, newStage)
}

// Advance moves the candidate to the first stage in its allow-list.
func (e *Engine) Advance(ctx context.Context, candidateID string) (Result, error) {
	candidate, err := e.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return Result{}, err
	}
	next := candidate.Stage.Next()
	if len(next) == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoNextStage, candidate.Stage)
	}
	return e.Transition(ctx, candidate, next[0])
}

func (e *Engine) sideEffect(res *Result, op string, err error) {
	if err == nil {
		return
	}
	e.log.Warn("side effect failed", "candidate_id", res.CandidateID, "op", op, "error", err)
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", op, err))
}
