// Package repository is the Postgres record store. It wraps all SQL used by
// the server, worker and CLI and publishes a realtime change after every
// successful write.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/logger"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
)

// Postgres implements storage.Store on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	bus  realtime.Bus
	log  *logger.Logger
}

// New constructs a repository. A nil bus gets an in-process one, which only
// reaches subscribers in the same process.
func New(pool *pgxpool.Pool, bus realtime.Bus, log *logger.Logger) *Postgres {
	if bus == nil {
		bus = realtime.NewMemoryBus()
	}
	return &Postgres{pool: pool, bus: bus, log: log.With("service", "PostgresStore")}
}

const candidateColumns = `id, job_id, name, role, location, experience_years, skills, linkedin, github,
	pre_score, post_score, final_score, compliant, compliance_tags, tags, stage, interview_score, rating,
	reference_status, reference_source, reference_locked,
	offer_status, offer_source, offer_locked,
	onboarding_status, onboarding_source, onboarding_locked,
	status_parsed, status_standardized, status_enriched, status_compliance, status_scored,
	cv_object_key, last_status_changed_at, created_at, updated_at`

func scanCandidate(row pgx.Row) (*model.Candidate, error) {
	var c model.Candidate
	var stage string
	var parsed, standardized, enriched, compliance, scored string
	err := row.Scan(
		&c.ID, &c.JobID, &c.Name, &c.Role, &c.Location, &c.ExperienceYears, &c.Skills, &c.LinkedIn, &c.GitHub,
		&c.PreScore, &c.PostScore, &c.FinalScore, &c.Compliant, &c.ComplianceTags, &c.Tags, &stage, &c.InterviewScore, &c.Rating,
		&c.Reference.Status, &c.Reference.Source, &c.Reference.Locked,
		&c.Offer.Status, &c.Offer.Source, &c.Offer.Locked,
		&c.Onboarding.Status, &c.Onboarding.Source, &c.Onboarding.Locked,
		&parsed, &standardized, &enriched, &compliance, &scored,
		&c.CVObjectKey, &c.LastStatusChangedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Stage = model.Stage(stage)
	c.Ingestion = model.IngestionStatuses{
		Parsed:       model.StageStatus(parsed),
		Standardized: model.StageStatus(standardized),
		Enriched:     model.StageStatus(enriched),
		Compliance:   model.StageStatus(compliance),
		Scored:       model.StageStatus(scored),
	}
	return &c, nil
}

func (r *Postgres) GetCandidate(ctx context.Context, id string) (*model.Candidate, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id=$1`, id)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("select candidate: %w", err)
	}
	return c, nil
}

// ListCandidates returns candidates for jobID (all when empty), oldest first.
func (r *Postgres) ListCandidates(ctx context.Context, jobID string) ([]model.Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+candidateColumns+` FROM candidates
		WHERE ($1 = '' OR job_id = $1)
		ORDER BY created_at
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *Postgres) InsertCandidate(ctx context.Context, c *model.Candidate) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Stage == "" {
		c.Stage = model.StageApplied
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO candidates (`+candidateColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36)
	`,
		c.ID, c.JobID, c.Name, c.Role, c.Location, c.ExperienceYears, nonNil(c.Skills), c.LinkedIn, c.GitHub,
		c.PreScore, c.PostScore, c.FinalScore, c.Compliant, nonNil(c.ComplianceTags), nonNil(c.Tags), string(c.Stage), c.InterviewScore, c.Rating,
		c.Reference.Status, c.Reference.Source, c.Reference.Locked,
		c.Offer.Status, c.Offer.Source, c.Offer.Locked,
		c.Onboarding.Status, c.Onboarding.Source, c.Onboarding.Locked,
		string(c.Ingestion.Parsed), string(c.Ingestion.Standardized), string(c.Ingestion.Enriched), string(c.Ingestion.Compliance), string(c.Ingestion.Scored),
		c.CVObjectKey, c.LastStatusChangedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return writeErr("insert candidate", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableCandidates, realtime.ChangeInsert, c.ID, c, nil))
	return nil
}

// UpdateCandidate applies a field-level patch. COALESCE keeps every column the
// patch leaves nil.
func (r *Postgres) UpdateCandidate(ctx context.Context, id string, patch model.CandidatePatch) (*model.Candidate, error) {
	var stage *string
	if patch.Stage != nil {
		s := string(*patch.Stage)
		stage = &s
	}
	refStatus, refSource, refLocked := tripleArgs(patch.Reference)
	offStatus, offSource, offLocked := tripleArgs(patch.Offer)
	onbStatus, onbSource, onbLocked := tripleArgs(patch.Onboarding)
	var ingest model.IngestionStatuses
	if patch.Ingestion != nil {
		ingest = *patch.Ingestion
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE candidates SET
			name = COALESCE($2, name),
			role = COALESCE($3, role),
			location = COALESCE($4, location),
			stage = COALESCE($5, stage),
			interview_score = COALESCE($6, interview_score),
			rating = COALESCE($7, rating),
			reference_status = COALESCE($8, reference_status),
			reference_source = COALESCE($9, reference_source),
			reference_locked = COALESCE($10, reference_locked),
			offer_status = COALESCE($11, offer_status),
			offer_source = COALESCE($12, offer_source),
			offer_locked = COALESCE($13, offer_locked),
			onboarding_status = COALESCE($14, onboarding_status),
			onboarding_source = COALESCE($15, onboarding_source),
			onboarding_locked = COALESCE($16, onboarding_locked),
			status_parsed = COALESCE(NULLIF($17, ''), status_parsed),
			status_standardized = COALESCE(NULLIF($18, ''), status_standardized),
			status_enriched = COALESCE(NULLIF($19, ''), status_enriched),
			status_compliance = COALESCE(NULLIF($20, ''), status_compliance),
			status_scored = COALESCE(NULLIF($21, ''), status_scored),
			cv_object_key = COALESCE($22, cv_object_key),
			last_status_changed_at = COALESCE($23, last_status_changed_at),
			updated_at = $24
		WHERE id = $1
		RETURNING `+candidateColumns,
		id, patch.Name, patch.Role, patch.Location, stage, patch.InterviewScore, patch.Rating,
		refStatus, refSource, refLocked,
		offStatus, offSource, offLocked,
		onbStatus, onbSource, onbLocked,
		string(ingest.Parsed), string(ingest.Standardized), string(ingest.Enriched), string(ingest.Compliance), string(ingest.Scored),
		patch.CVObjectKey, patch.LastStatusChangedAt, time.Now().UTC(),
	)
	c, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
		}
		return nil, writeErr("update candidate", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableCandidates, realtime.ChangeUpdate, id, c, nil))
	return c, nil
}

func (r *Postgres) DeleteCandidate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM candidates WHERE id=$1`, id)
	if err != nil {
		return writeErr("delete candidate", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("candidate %s: %w", id, apperr.ErrNotFound)
	}
	r.publish(ctx, realtime.NewChange(storage.TableCandidates, realtime.ChangeDelete, id, nil, map[string]string{"id": id}))
	return nil
}

func (r *Postgres) Subscribe(ctx context.Context, table string, fn func(realtime.Change)) error {
	return r.bus.Subscribe(ctx, table, fn)
}

// publish is best effort: the row is already committed.
func (r *Postgres) publish(ctx context.Context, change realtime.Change) {
	if err := r.bus.Publish(ctx, change); err != nil {
		r.log.Warn("realtime publish failed", "table", change.Table, "row_id", change.RowID, "error", err)
	}
}

func tripleArgs(t *model.StatusTriple) (*string, *string, *bool) {
	if t == nil {
		return nil, nil, nil
	}
	status, source, locked := t.Status, t.Source, t.Locked
	return &status, &source, &locked
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStoreWrite, err)
}

var _ storage.Store = (*Postgres)(nil)
