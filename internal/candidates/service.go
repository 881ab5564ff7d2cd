// Package candidates owns writes to the reference/offer/onboarding status
// triples: manual overrides, which lock a triple, and automated writes, which
// a lock suppresses.
package candidates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

var (
	ErrUnknownStep = fmt.Errorf("%w: unknown status step", apperr.ErrValidation)
	ErrEmptyValue  = fmt.Errorf("%w: status value required", apperr.ErrValidation)
)

const (
	OnboardingStarted = "started"
	ReferencePassed   = "passed"
	ReferenceFailed   = "failed"

	referenceScoreThreshold = 70
)

// Store is the candidate slice of the record store.
type Store interface {
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
	ListCandidates(ctx context.Context, jobID string) ([]model.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, patch model.CandidatePatch) (*model.Candidate, error)
}

// EventRecorder writes a timeline+audit pair.
type EventRecorder interface {
	Record(ctx context.Context, candidateID string, payload model.Payload) error
}

// Service implements candidate reads and status triple writes.
type Service struct {
	store  Store
	events EventRecorder
	log    *logger.Logger
	now    func() time.Time
}

// NewService wires a Service.
func NewService(store Store, events EventRecorder, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		log:    log.With("service", "CandidateService"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id string) (*model.Candidate, error) {
	return s.store.GetCandidate(ctx, id)
}

func (s *Service) List(ctx context.Context, jobID string) ([]model.Candidate, error) {
	return s.store.ListCandidates(ctx, jobID)
}

// Override writes value onto step as a manual decision and locks the triple.
// Overrides win over locks: a manual write always applies.
func (s *Service) Override(ctx context.Context, candidateID string, step model.Step, value string) (*model.Candidate, error) {
	if !validStep(step) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, ErrEmptyValue
	}
	now := s.now()
	var patch model.CandidatePatch
	patch.SetStatus(step, model.StatusTriple{Status: value, Source: model.SourceManual, Locked: true})
	patch.LastStatusChangedAt = &now
	updated, err := s.store.UpdateCandidate(ctx, candidateID, patch)
	if err != nil {
		return nil, err
	}
	if err := s.events.Record(ctx, candidateID, model.ManualOverride{Step: step, Value: value}); err != nil {
		s.log.Warn("override event not recorded", "candidate_id", candidateID, "op", "manual_override", "error", err)
	}
	return updated, nil
}

// SetAutomatedStatus writes value onto step unless the step is locked. The
// candidate is refetched first so a lock set since the caller last looked is
// honoured. It reports whether the write happened.
func (s *Service) SetAutomatedStatus(ctx context.Context, candidateID string, step model.Step, value, source string) (bool, error) {
	if !validStep(step) {
		return false, fmt.Errorf("%w: %q", ErrUnknownStep, step)
	}
	current, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return false, err
	}
	if current.StatusFor(step).Locked {
		s.log.Debug("automated status suppressed by lock", "candidate_id", candidateID, "step", step, "value", value)
		return false, nil
	}
	if source == "" {
		source = model.SourceAutomation
	}
	now := s.now()
	var patch model.CandidatePatch
	patch.SetStatus(step, model.StatusTriple{Status: value, Source: source})
	patch.LastStatusChangedAt = &now
	if _, err := s.store.UpdateCandidate(ctx, candidateID, patch); err != nil {
		return false, err
	}
	return true, nil
}

// StartOnboarding marks onboarding as started for a candidate whose offer was
// accepted.
func (s *Service) StartOnboarding(ctx context.Context, candidateID string) error {
	written, err := s.SetAutomatedStatus(ctx, candidateID, model.StepOnboarding, OnboardingStarted, model.SourceAutomation)
	if err != nil {
		return fmt.Errorf("start onboarding: %w", err)
	}
	if written {
		s.log.Info("onboarding started", "candidate_id", candidateID)
	}
	return nil
}

// EvaluateReference runs the automated reference check: passed when the
// interview score reaches the threshold or the rating is "recommended".
func (s *Service) EvaluateReference(ctx context.Context, candidateID string) (string, bool, error) {
	c, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return "", false, err
	}
	result := ReferenceFailed
	if (c.InterviewScore != nil && *c.InterviewScore >= referenceScoreThreshold) || strings.EqualFold(c.Rating, "recommended") {
		result = ReferencePassed
	}
	written, err := s.SetAutomatedStatus(ctx, candidateID, model.StepReference, result, model.SourceAutomation)
	if err != nil {
		return "", false, err
	}
	return result, written, nil
}

func validStep(step model.Step) bool {
	for _, s := range model.Steps {
		if s == step {
			return true
		}
	}
	return false
}
