package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// TableCandidates is the table the syncer follows.
const TableCandidates = "candidates"

// CandidateGetter fetches the authoritative candidate row.
type CandidateGetter interface {
	GetCandidate(ctx context.Context, id string) (*model.Candidate, error)
}

// Subscriber is the subscribe half of the record store contract.
type Subscriber interface {
	Subscribe(ctx context.Context, table string, fn func(Change)) error
}

// Syncer reconciles a Cache with store change notifications. Every update
// triggers a full refetch, so duplicate or out-of-order notifications converge
// on the stored state.
type Syncer struct {
	store CandidateGetter
	cache Cache
	log   *logger.Logger
}

// NewSyncer wires a Syncer.
func NewSyncer(store CandidateGetter, cache Cache, log *logger.Logger) *Syncer {
	return &Syncer{store: store, cache: cache, log: log.With("service", "CandidateSync")}
}

// Start subscribes to candidate changes until ctx is cancelled.
func (s *Syncer) Start(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(ctx, TableCandidates, func(ch Change) {
		s.Handle(ctx, ch)
	})
}

// SyncCandidate refetches id and replaces the cached copy. A missing row is
// removed from the cache.
func (s *Syncer) SyncCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	if id == "" {
		return nil, nil
	}
	s.cache.SetLoading(id, true)
	cand, err := s.store.GetCandidate(ctx, id)
	s.cache.SetLoading(id, false)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.cache.Remove(id)
		}
		return nil, err
	}
	s.cache.Replace(*cand)
	return cand, nil
}

// Handle applies one change notification to the cache.
func (s *Syncer) Handle(ctx context.Context, ch Change) {
	if ch.Table != TableCandidates {
		return
	}
	switch ch.Type {
	case ChangeInsert, ChangeUpdate:
		// The row carried by the notification may be stale when delivered
		// late or twice; the store is authoritative.
		id := ch.RowID
		if id == "" {
			var cand model.Candidate
			if json.Unmarshal(ch.NewRow, &cand) == nil {
				id = cand.ID
			}
		}
		s.refetch(ctx, id)
	case ChangeDelete:
		if ch.RowID != "" {
			s.cache.Remove(ch.RowID)
		}
	}
}

func (s *Syncer) refetch(ctx context.Context, id string) {
	if _, err := s.SyncCandidate(ctx, id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn("candidate sync failed", "candidate_id", id, "error", err)
	}
}
