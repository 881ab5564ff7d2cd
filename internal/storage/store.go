// Package storage defines the record store contract used by the core and an
// in-memory implementation of it.
package storage

import (
	"context"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
)

// Table names, also used as realtime change topics.
const (
	TableCandidates = realtime.TableCandidates
	TableOffers     = "candidate_offers"
	TableTimeline   = "timeline"
	TableAudit      = "audit_log"
	TableIngestion  = "ingestion_status"
)

// Store is the record store adapter. Missing rows yield errors wrapping
// apperr.ErrNotFound and failed writes wrap apperr.ErrStoreWrite.
type Store interface {
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
	ListCandidates(ctx context.Context, jobID string) ([]model.Candidate, error)
	InsertCandidate(ctx context.Context, c *model.Candidate) error
	UpdateCandidate(ctx context.Context, id string, patch model.CandidatePatch) (*model.Candidate, error)
	DeleteCandidate(ctx context.Context, id string) error

	InsertOffer(ctx context.Context, o *model.Offer) error
	GetOffer(ctx context.Context, id string) (*model.Offer, error)
	UpdateOffer(ctx context.Context, id string, patch model.OfferPatch) (*model.Offer, error)
	LatestOffer(ctx context.Context, candidateID string) (*model.Offer, error)
	ListOffers(ctx context.Context, candidateID string) ([]model.Offer, error)

	AppendTimeline(ctx context.Context, e *model.TimelineEvent) error
	ListTimeline(ctx context.Context, candidateID string) ([]model.TimelineEvent, error)
	AppendAudit(ctx context.Context, a *model.AuditEntry) error
	ListAudit(ctx context.Context, candidateID string) ([]model.AuditEntry, error)

	RecordStageStatus(ctx context.Context, rec *model.StageStatusRecord) error
	ListStageStatuses(ctx context.Context, jobID string) ([]model.StageStatusRecord, error)

	Subscribe(ctx context.Context, table string, fn func(realtime.Change)) error
}

// Documents stores original CV files.
type Documents interface {
	PutCV(ctx context.Context, objectKey string, data []byte, contentType string) error
	GetCV(ctx context.Context, objectKey string) ([]byte, error)
}
