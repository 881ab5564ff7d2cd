package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
)

func (r *Postgres) AppendTimeline(ctx context.Context, e *model.TimelineEvent) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode timeline payload: %w", err)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO timeline (id, candidate_id, type, payload, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, e.ID, e.CandidateID, string(e.Type), payload, e.CreatedAt); err != nil {
		return writeErr("insert timeline event", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableTimeline, realtime.ChangeInsert, e.ID, e, nil))
	return nil
}

// ListTimeline returns the candidate's events, newest first.
func (r *Postgres) ListTimeline(ctx context.Context, candidateID string) ([]model.TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, candidate_id, type, payload, created_at FROM timeline
		WHERE candidate_id=$1
		ORDER BY created_at DESC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list timeline: %w", err)
	}
	defer rows.Close()
	var out []model.TimelineEvent
	for rows.Next() {
		var (
			e   model.TimelineEvent
			typ string
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.CandidateID, &typ, &raw, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		e.Type = model.EventType(typ)
		if e.Payload, err = model.DecodePayload(e.Type, raw); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Postgres) AppendAudit(ctx context.Context, a *model.AuditEntry) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now().UTC()
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (id, candidate_id, action, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, a.ID, a.CandidateID, string(a.Action), metadata, a.CreatedAt); err != nil {
		return writeErr("insert audit entry", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableAudit, realtime.ChangeInsert, a.ID, a, nil))
	return nil
}

// ListAudit returns the candidate's audit entries, newest first.
func (r *Postgres) ListAudit(ctx context.Context, candidateID string) ([]model.AuditEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, candidate_id, action, metadata, created_at FROM audit_log
		WHERE candidate_id=$1
		ORDER BY created_at DESC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	var out []model.AuditEntry
	for rows.Next() {
		var (
			a      model.AuditEntry
			action string
			raw    []byte
		)
		if err := rows.Scan(&a.ID, &a.CandidateID, &action, &raw, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		a.Action = model.EventType(action)
		if a.Metadata, err = model.DecodePayload(a.Action, raw); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
