package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dharsanguruparan/TalentFlow/internal/apperr"
	"github.com/dharsanguruparan/TalentFlow/internal/model"
	"github.com/dharsanguruparan/TalentFlow/internal/realtime"
	"github.com/dharsanguruparan/TalentFlow/internal/storage"
)

const offerColumns = `id, candidate_id, status, salary, start_date, notes, content, locked, created_at, updated_at`

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var o model.Offer
	var status string
	if err := row.Scan(&o.ID, &o.CandidateID, &status, &o.Salary, &o.StartDate, &o.Notes, &o.Content, &o.Locked, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.OfferStatus(status)
	return &o, nil
}

func (r *Postgres) InsertOffer(ctx context.Context, o *model.Offer) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO candidate_offers (`+offerColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, o.ID, o.CandidateID, string(o.Status), o.Salary, o.StartDate, o.Notes, o.Content, o.Locked, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return writeErr("insert offer", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableOffers, realtime.ChangeInsert, o.ID, o, nil))
	return nil
}

func (r *Postgres) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM candidate_offers WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("select offer: %w", err)
	}
	return o, nil
}

// UpdateOffer applies patch. Optional fields carry a "set" flag so an explicit
// null can clear a column while an omitted field keeps it.
func (r *Postgres) UpdateOffer(ctx context.Context, id string, patch model.OfferPatch) (*model.Offer, error) {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE candidate_offers SET
			status = COALESCE($2, status),
			locked = COALESCE($3, locked),
			salary = CASE WHEN $4 THEN $5 ELSE salary END,
			start_date = CASE WHEN $6 THEN $7 ELSE start_date END,
			notes = CASE WHEN $8 THEN $9 ELSE notes END,
			content = CASE WHEN $10 THEN $11 ELSE content END,
			updated_at = $12
		WHERE id = $1
		RETURNING `+offerColumns,
		id, status, patch.Locked,
		patch.Salary.Set, patch.Salary.Value,
		patch.StartDate.Set, patch.StartDate.Value,
		patch.Notes.Set, patch.Notes.Value,
		patch.Content.Set, patch.Content.Value,
		time.Now().UTC(),
	)
	o, err := scanOffer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer %s: %w", id, apperr.ErrNotFound)
		}
		return nil, writeErr("update offer", err)
	}
	r.publish(ctx, realtime.NewChange(storage.TableOffers, realtime.ChangeUpdate, id, o, nil))
	return o, nil
}

func (r *Postgres) LatestOffer(ctx context.Context, candidateID string) (*model.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM candidate_offers
		WHERE candidate_id=$1
		ORDER BY created_at DESC
		LIMIT 1
	`, candidateID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("offer for candidate %s: %w", candidateID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("select latest offer: %w", err)
	}
	return o, nil
}

// ListOffers returns the candidate's offers, newest first.
func (r *Postgres) ListOffers(ctx context.Context, candidateID string) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+offerColumns+` FROM candidate_offers
		WHERE candidate_id=$1
		ORDER BY created_at DESC
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()
	var out []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}
