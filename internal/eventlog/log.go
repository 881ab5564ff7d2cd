// Package eventlog writes the paired timeline and audit records that every
// state-changing action produces.
package eventlog

import (
	"context"
	"errors"
	"fmt"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// Store is the append-only part of the record store.
type Store interface {
	AppendTimeline(ctx context.Context, e *model.TimelineEvent) error
	ListTimeline(ctx context.Context, candidateID string) ([]model.TimelineEvent, error)
	AppendAudit(ctx context.Context, a *model.AuditEntry) error
	ListAudit(ctx context.Context, candidateID string) ([]model.AuditEntry, error)
}

// Log records timeline+audit pairs.
type Log struct {
	store Store
}

// New constructs a Log.
func New(store Store) *Log {
	return &Log{store: store}
}

// Record appends one timeline event and one audit entry carrying payload.
// Both writes are always attempted; failures are joined and wrapped in
// apperr.ErrSideEffect.
func (l *Log) Record(ctx context.Context, candidateID string, payload model.Payload) error {
	if payload == nil {
		return fmt.Errorf("event payload required: %w", apperr.ErrValidation)
	}
	typ := payload.EventType()
	var errs []error
	if err := l.store.AppendTimeline(ctx, &model.TimelineEvent{
		CandidateID: candidateID,
		Type:        typ,
		Payload:     payload,
	}); err != nil {
		errs = append(errs, fmt.Errorf("append timeline %s: %w", typ, err))
	}
	if err := l.store.AppendAudit(ctx, &model.AuditEntry{
		CandidateID: candidateID,
		Action:      typ,
		Metadata:    payload,
	}); err != nil {
		errs = append(errs, fmt.Errorf("append audit %s: %w", typ, err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", apperr.ErrSideEffect, errors.Join(errs...))
	}
	return nil
}

// Timeline returns the candidate's events, newest first.
func (l *Log) Timeline(ctx context.Context, candidateID string) ([]model.TimelineEvent, error) {
	return l.store.ListTimeline(ctx, candidateID)
}

// Audit returns the candidate's audit entries, newest first.
func (l *Log) Audit(ctx context.Context, candidateID string) ([]model.AuditEntry, error) {
	return l.store.ListAudit(ctx, candidateID)
}

// Chronological reverses a newest-first timeline into creation order.
func Chronological(events []model.TimelineEvent) []model.TimelineEvent {
	out := make([]model.TimelineEvent, len(events))
	for i, e := range events {
		out[len(events)-1-i] = e
	}
	return out
}
