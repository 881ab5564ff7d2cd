package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Schema is the DDL for every table the record store uses. Statements are
// idempotent so the server and the migrate command can both run it.
const Schema = `
CREATE TABLE IF NOT EXISTS candidates (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	experience_years INTEGER,
	skills TEXT[] NOT NULL DEFAULT '{}',
	linkedin TEXT,
	github TEXT,
	pre_score INTEGER NOT NULL DEFAULT 0,
	post_score INTEGER NOT NULL DEFAULT 0,
	final_score INTEGER NOT NULL DEFAULT 0,
	compliant BOOLEAN NOT NULL DEFAULT FALSE,
	compliance_tags TEXT[] NOT NULL DEFAULT '{}',
	tags TEXT[] NOT NULL DEFAULT '{}',
	stage TEXT NOT NULL DEFAULT 'applied',
	interview_score DOUBLE PRECISION,
	rating TEXT NOT NULL DEFAULT '',
	reference_status TEXT NOT NULL DEFAULT '',
	reference_source TEXT NOT NULL DEFAULT '',
	reference_locked BOOLEAN NOT NULL DEFAULT FALSE,
	offer_status TEXT NOT NULL DEFAULT '',
	offer_source TEXT NOT NULL DEFAULT '',
	offer_locked BOOLEAN NOT NULL DEFAULT FALSE,
	onboarding_status TEXT NOT NULL DEFAULT '',
	onboarding_source TEXT NOT NULL DEFAULT '',
	onboarding_locked BOOLEAN NOT NULL DEFAULT FALSE,
	status_parsed TEXT NOT NULL DEFAULT '',
	status_standardized TEXT NOT NULL DEFAULT '',
	status_enriched TEXT NOT NULL DEFAULT '',
	status_compliance TEXT NOT NULL DEFAULT '',
	status_scored TEXT NOT NULL DEFAULT '',
	cv_object_key TEXT NOT NULL DEFAULT '',
	last_status_changed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_candidates_job ON candidates(job_id);
CREATE INDEX IF NOT EXISTS idx_candidates_stage ON candidates(stage);

CREATE TABLE IF NOT EXISTS candidate_offers (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
	status TEXT NOT NULL,
	salary DOUBLE PRECISION,
	start_date TEXT,
	notes TEXT,
	content TEXT,
	locked BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_offers_candidate ON candidate_offers(candidate_id, created_at DESC);

CREATE TABLE IF NOT EXISTS timeline (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	type TEXT NOT NULL,
	payload JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_timeline_candidate ON timeline(candidate_id, created_at DESC);

CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	candidate_id TEXT NOT NULL,
	action TEXT NOT NULL,
	metadata JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_candidate ON audit_log(candidate_id, created_at DESC);

CREATE TABLE IF NOT EXISTS ingestion_status (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL DEFAULT '',
	candidate_id TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL,
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	payload JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingestion_job ON ingestion_status(job_id, created_at);`

// EnsureSchema creates the tables if needed.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
