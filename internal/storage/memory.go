package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
)

// MemoryStore keeps every table in maps guarded by one RWMutex. Reads return
// copies so callers never mutate stored state.
type MemoryStore struct {
	mu         sync.RWMutex
	candidates map[string]*model.Candidate
	offers     map[string]*model.Offer
	timeline   []model.TimelineEvent
	audit      []model.AuditEntry
	statuses   []model.StageStatusRecord
	bus        realtime.Bus
	now        func() time.Time
	seq        time.Duration
}

// NewMemoryStore constructs a MemoryStore publishing to bus. A nil bus gets an
// in-process one.
func NewMemoryStore(bus realtime.Bus) *MemoryStore {
	if bus == nil {
		bus = realtime.NewMemoryBus()
	}
	return &MemoryStore{
		candidates: make(map[string]*model.Candidate),
		offers:     make(map[string]*model.Offer),
		bus:        bus,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// stamp returns strictly increasing timestamps so ordering by created_at is
// deterministic even when writes land within the same clock tick.
func (m *MemoryStore) stamp() time.Time {
	m.seq += time.Microsecond
	return m.now().Add(m.seq)
}

func (m *MemoryStore) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
	}
	out := c.Clone()
	return &out, nil
}

func (m *MemoryStore) ListCandidates(ctx context.Context, jobID string) ([]model.Candidate, error) {
	m.mu.RLock()
	out := make([]model.Candidate, 0, len(m.candidates))
	for _, c := range m.candidates {
		if jobID != "" && c.JobID != jobID {
			continue
		}
		out = append(out, c.Clone())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) InsertCandidate(ctx context.Context, c *model.Candidate) error {
	m.mu.Lock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if _, exists := m.candidates[c.ID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("candidate %s already exists: %w", c.ID, apperr.ErrStoreWrite)
	}
	if c.Stage == "" {
		c.Stage = model.StageApplied
	}
	now := m.stamp()
	c.CreatedAt = now
	c.UpdatedAt = now
	stored := c.Clone()
	m.candidates[c.ID] = &stored
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableCandidates, realtime.ChangeInsert, c.ID, stored, nil))
	return nil
}

func (m *MemoryStore) UpdateCandidate(ctx context.Context, id string, patch model.CandidatePatch) (*model.Candidate, error) {
	m.mu.Lock()
	c, ok := m.candidates[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
	}
	old := c.Clone()
	patch.Apply(c)
	c.UpdatedAt = m.stamp()
	out := c.Clone()
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableCandidates, realtime.ChangeUpdate, id, out, old))
	return &out, nil
}

func (m *MemoryStore) DeleteCandidate(ctx context.Context, id string) error {
	m.mu.Lock()
	c, ok := m.candidates[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
	}
	old := c.Clone()
	delete(m.candidates, id)
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableCandidates, realtime.ChangeDelete, id, nil, old))
	return nil
}

func (m *MemoryStore) InsertOffer(ctx context.Context, o *model.Offer) error {
	m.mu.Lock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := m.stamp()
	o.CreatedAt = now
	o.UpdatedAt = now
	stored := *o
	m.offers[o.ID] = &stored
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableOffers, realtime.ChangeInsert, o.ID, stored, nil))
	return nil
}

func (m *MemoryStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", id, apperr.ErrNotFound)
	}
	out := *o
	return &out, nil
}

func (m *MemoryStore) UpdateOffer(ctx context.Context, id string, patch model.OfferPatch) (*model.Offer, error) {
	m.mu.Lock()
	o, ok := m.offers[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("offer %s: %w", id, apperr.ErrNotFound)
	}
	old := *o
	patch.Apply(o)
	o.UpdatedAt = m.stamp()
	out := *o
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableOffers, realtime.ChangeUpdate, id, out, old))
	return &out, nil
}

func (m *MemoryStore) LatestOffer(ctx context.Context, candidateID string) (*model.Offer, error) {
	offers, _ := m.ListOffers(ctx, candidateID)
	if len(offers) == 0 {
		return nil, fmt.Errorf("offer for candidate %s: %w", candidateID, apperr.ErrNotFound)
	}
	return &offers[0], nil
}

// ListOffers returns the candidate's offers, newest first.
func (m *MemoryStore) ListOffers(ctx context.Context, candidateID string) ([]model.Offer, error) {
	m.mu.RLock()
	var out []model.Offer
	for _, o := range m.offers {
		if o.CandidateID == candidateID {
			out = append(out, *o)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) AppendTimeline(ctx context.Context, e *model.TimelineEvent) error {
	m.mu.Lock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = m.stamp()
	m.timeline = append(m.timeline, *e)
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableTimeline, realtime.ChangeInsert, e.ID, e, nil))
	return nil
}

// ListTimeline returns the candidate's events, newest first.
func (m *MemoryStore) ListTimeline(ctx context.Context, candidateID string) ([]model.TimelineEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.TimelineEvent
	for i := len(m.timeline) - 1; i >= 0; i-- {
		if m.timeline[i].CandidateID == candidateID {
			out = append(out, m.timeline[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) AppendAudit(ctx context.Context, a *model.AuditEntry) error {
	m.mu.Lock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = m.stamp()
	m.audit = append(m.audit, *a)
	m.mu.Unlock()
	m.publish(ctx, realtime.NewChange(TableAudit, realtime.ChangeInsert, a.ID, a, nil))
	return nil
}

// ListAudit returns the candidate's audit entries, newest first.
func (m *MemoryStore) ListAudit(ctx context.Context, candidateID string) ([]model.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if m.audit[i].CandidateID == candidateID {
			out = append(out, m.audit[i])
		}
	}
	return out, nil
}

// RecordStageStatus appends rec to the status log and, when it names a
// candidate row, mirrors the status onto that row.
func (m *MemoryStore) RecordStageStatus(ctx context.Context, rec *model.StageStatusRecord) error {
	m.mu.Lock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = m.stamp()
	m.statuses = append(m.statuses, *rec)
	m.mu.Unlock()
	if rec.CandidateID != "" {
		var s model.IngestionStatuses
		s.Set(rec.Stage, rec.Status)
		if _, err := m.UpdateCandidate(ctx, rec.CandidateID, model.CandidatePatch{Ingestion: &s}); err != nil {
			return err
		}
	}
	return nil
}

// ListStageStatuses returns the job's status log in write order.
func (m *MemoryStore) ListStageStatuses(ctx context.Context, jobID string) ([]model.StageStatusRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.StageStatusRecord
	for _, r := range m.statuses {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, table string, fn func(realtime.Change)) error {
	return m.bus.Subscribe(ctx, table, fn)
}

func (m *MemoryStore) publish(ctx context.Context, change realtime.Change) {
	_ = m.bus.Publish(ctx, change)
}

var _ Store = (*MemoryStore)(nil)
