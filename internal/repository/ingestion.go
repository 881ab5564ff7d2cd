package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
)

// RecordStageStatus appends rec to ingestion_status and, when it names a
// candidate row, mirrors the status onto that row's status column.
func (r *Postgres) RecordStageStatus(ctx context.Context, rec *model.StageStatusRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()
	var payload []byte
	if len(rec.Payload) > 0 {
		payload = rec.Payload
	}
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO ingestion_status (id, job_id, candidate_id, stage, status, detail, payload, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, rec.ID, rec.JobID, rec.CandidateID, string(rec.Stage), string(rec.Status), rec.Detail, payload, rec.CreatedAt); err != nil {
		return writeErr("insert stage status", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableIngestion, realtime.ChangeInsert, rec.ID, rec, nil))

	if rec.CandidateID == "" {
		return nil
	}
	var s model.IngestionStatuses
	s.Set(rec.Stage, rec.Status)
	if _, err := r.UpdateCandidate(ctx, rec.CandidateID, model.CandidatePatch{Ingestion: &s}); err != nil {
		return fmt.Errorf("mirror stage status: %w", err)
	}
	return nil
}

// ListStageStatuses returns the job's status log in write order.
func (r *Postgres) ListStageStatuses(ctx context.Context, jobID string) ([]model.StageStatusRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, job_id, candidate_id, stage, status, detail, payload, created_at
		FROM ingestion_status
		WHERE job_id=$1
		ORDER BY created_at
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list stage statuses: %w", err)
	}
	defer rows.Close()
	var out []model.StageStatusRecord
	for rows.Next() {
		var (
			rec           model.StageStatusRecord
			stage, status string
			payload       []byte
		)
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.CandidateID, &stage, &status, &rec.Detail, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stage status: %w", err)
		}
		rec.Stage = model.IngestionStage(stage)
		rec.Status = model.StageStatus(status)
		rec.Payload = payload
		out = append(out, rec)
	}
	return out, rows.Err()
}
