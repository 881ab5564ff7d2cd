// Package offer manages the draft → sent → accepted/rejected/withdrawn
// lifecycle of candidate offers. Every mutation re-reads the offer first so
// lock checks never act on a stale copy.
package offer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/workflow"
)

var (
	ErrOfferLocked        = fmt.Errorf("%w: offer is locked", apperr.ErrValidation)
	ErrInvalidOfferStatus = fmt.Errorf("%w: invalid offer status", apperr.ErrValidation)
	ErrCandidateRequired  = fmt.Errorf("%w: candidate id required", apperr.ErrValidation)
)

// Store is the offer slice of the record store.
type Store interface {
	InsertOffer(ctx context.Context, o *model.Offer) error
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	UpdateOffer(ctx context.Context, id string, patch model.OfferPatch) (*model.Offer, error)
	LatestOffer(ctx context.Context, candidateID string) (*model.Offer, error)
	ListOffers(ctx context.Context, candidateID string) ([]model.Offer, error)
}

// EventRecorder writes a timeline+audit pair.
type EventRecorder interface {
	Record(ctx context.Context, candidateID string, payload model.Payload) error
}

// StageMover moves a candidate through the hiring pipeline.
type StageMover interface {
	ChangeStage(ctx context.Context, candidateID string, to model.Stage) (workflow.Result, error)
}

// StatusWriter mirrors offer status onto the candidate's offer triple unless
// that triple is locked by a manual override.
type StatusWriter interface {
	SetAutomatedStatus(ctx context.Context, candidateID string, step model.Step, value, source string) (bool, error)
}

// Notifier receives fire-and-forget notifications once an offer change is
// committed (offer email, PDF export). Failures never affect the offer.
type Notifier interface {
	OfferSent(ctx context.Context, o model.Offer) error
	OfferStatusChanged(ctx context.Context, o model.Offer) error
}

// Engine implements the offer lifecycle.
type Engine struct {
	store    Store
	events   EventRecorder
	stages   StageMover
	status   StatusWriter
	notifier Notifier
	log      *logger.Logger
}

// NewEngine wires an Engine. status and notifier may be nil.
func NewEngine(store Store, events EventRecorder, stages StageMover, status StatusWriter, notifier Notifier, log *logger.Logger) *Engine {
	return &Engine{
		store:    store,
		events:   events,
		stages:   stages,
		status:   status,
		notifier: notifier,
		log:      log.With("service", "OfferEngine"),
	}
}

// Latest returns the active offer for a candidate, the newest by creation.
func (e *Engine) Latest(ctx context.Context, candidateID string) (*model.Offer, error) {
	return e.store.LatestOffer(ctx, candidateID)
}

// History returns every offer for a candidate, newest first.
func (e *Engine) History(ctx context.Context, candidateID string) ([]model.Offer, error) {
	return e.store.ListOffers(ctx, candidateID)
}

// CreateDraft inserts an unlocked draft and records offer_drafted.
func (e *Engine) CreateDraft(ctx context.Context, candidateID string, fields model.OfferFields) (*model.Offer, error) {
	if strings.TrimSpace(candidateID) == "" {
		return nil, ErrCandidateRequired
	}
	o := &model.Offer{CandidateID: candidateID, Status: model.OfferDraft}
	model.OfferPatch{
		Salary:    fields.Salary,
		StartDate: fields.StartDate,
		Notes:     fields.Notes,
		Content:   fields.Content,
	}.Apply(o)
	if err := e.store.InsertOffer(ctx, o); err != nil {
		return nil, fmt.Errorf("insert offer: %w", err)
	}
	e.record(ctx, candidateID, model.OfferDrafted{OfferID: o.ID})
	return o, nil
}

// UpdateDraft merges the provided fields into an unlocked offer. Omitted
// fields stay as they are.
func (e *Engine) UpdateDraft(ctx context.Context, offerID string, fields model.OfferFields) (*model.Offer, error) {
	existing, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if existing.Locked {
		return nil, fmt.Errorf("%w: %s", ErrOfferLocked, offerID)
	}
	patch := model.OfferPatch{
		Salary:    fields.Salary,
		StartDate: fields.StartDate,
		Notes:     fields.Notes,
		Content:   fields.Content,
	}
	if !patch.TouchesFields() {
		return existing, nil
	}
	return e.store.UpdateOffer(ctx, offerID, patch)
}

// Send marks the offer sent and locked, records offer_sent and moves the
// candidate to offer_sent. If the stage move is rejected the offer stays sent
// and the error is returned alongside it.
func (e *Engine) Send(ctx context.Context, offerID string) (*model.Offer, error) {
	existing, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanMoveTo(model.OfferSent) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidOfferStatus, existing.Status, model.OfferSent)
	}
	status := model.OfferSent
	locked := true
	updated, err := e.store.UpdateOffer(ctx, offerID, model.OfferPatch{Status: &status, Locked: &locked})
	if err != nil {
		return nil, fmt.Errorf("send offer: %w", err)
	}
	e.record(ctx, updated.CandidateID, model.OfferSentEvent{OfferID: offerID})
	e.mirrorStatus(ctx, *updated)

	if _, err := e.stages.ChangeStage(ctx, updated.CandidateID, model.StageOfferSent); err != nil {
		return updated, fmt.Errorf("move candidate to %s: %w", model.StageOfferSent, err)
	}
	if e.notifier != nil {
		if err := e.notifier.OfferSent(ctx, *updated); err != nil {
			e.log.Warn("offer notification failed", "candidate_id", updated.CandidateID, "op", "offer_sent", "error", err)
		}
	}
	return updated, nil
}

// Lock freezes the offer's fields without changing its status.
func (e *Engine) Lock(ctx context.Context, offerID string) (*model.Offer, error) {
	existing, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if existing.Locked {
		return existing, nil
	}
	locked := true
	return e.store.UpdateOffer(ctx, offerID, model.OfferPatch{Locked: &locked})
}

// UpdateStatus records the candidate's answer (or a withdrawal). Status is the
// one field a locked offer still accepts. Accepting moves the candidate to
// offer_accepted, which starts onboarding.
func (e *Engine) UpdateStatus(ctx context.Context, offerID string, status model.OfferStatus) (*model.Offer, error) {
	switch status {
	case model.OfferAccepted, model.OfferRejected, model.OfferWithdrawn:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOfferStatus, status)
	}
	existing, err := e.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanMoveTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidOfferStatus, existing.Status, status)
	}
	updated, err := e.store.UpdateOffer(ctx, offerID, model.OfferPatch{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("update offer status: %w", err)
	}
	e.record(ctx, updated.CandidateID, model.OfferStatusChanged{OfferID: offerID, Status: status})
	e.mirrorStatus(ctx, *updated)

	if status == model.OfferAccepted {
		if _, err := e.stages.ChangeStage(ctx, updated.CandidateID, model.StageOfferAccepted); err != nil {
			return updated, fmt.Errorf("move candidate to %s: %w", model.StageOfferAccepted, err)
		}
	}
	if e.notifier != nil {
		if err := e.notifier.OfferStatusChanged(ctx, *updated); err != nil {
			e.log.Warn("offer notification failed", "candidate_id", updated.CandidateID, "op", "offer_status_changed", "error", err)
		}
	}
	return updated, nil
}

func (e *Engine) record(ctx context.Context, candidateID string, payload model.Payload) {
	if err := e.events.Record(ctx, candidateID, payload); err != nil {
		e.log.Warn("offer event not recorded", "candidate_id", candidateID, "op", payload.EventType(), "error", err)
	}
}

func (e *Engine) mirrorStatus(ctx context.Context, o model.Offer) {
	if e.status == nil {
		return
	}
	if _, err := e.status.SetAutomatedStatus(ctx, o.CandidateID, model.StepOffer, string(o.Status), model.SourceAutomation); err != nil {
		e.log.Warn("offer status not mirrored", "candidate_id", o.CandidateID, "op", "mirror_offer_status", "error", err)
	}
}
