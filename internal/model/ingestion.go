package model

import (
	"encoding/json"
	"time"
)

// IngestionStage names one step of the CV ingestion pipeline.
type IngestionStage string

const (
	IngestParsed       IngestionStage = "parsed"
	IngestStandardized IngestionStage = "standardized"
	IngestEnriched     IngestionStage = "enriched"
	IngestCompliance   IngestionStage = "compliance"
	IngestScored       IngestionStage = "scored"
)

// IngestionStages lists the pipeline stages in execution order.
var IngestionStages = []IngestionStage{
	IngestParsed,
	IngestStandardized,
	IngestEnriched,
	IngestCompliance,
	IngestScored,
}

// StageStatus is the persisted outcome of one ingestion stage.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
)

// IngestionStatuses holds the per-stage status columns of a candidate row.
type IngestionStatuses struct {
	Parsed       StageStatus `json:"parsed,omitempty"`
	Standardized StageStatus `json:"standardized,omitempty"`
	Enriched     StageStatus `json:"enriched,omitempty"`
	Compliance   StageStatus `json:"compliance,omitempty"`
	Scored       StageStatus `json:"scored,omitempty"`
}

// Get returns the status recorded for stage.
func (s IngestionStatuses) Get(stage IngestionStage) StageStatus {
	switch stage {
	case IngestParsed:
		return s.Parsed
	case IngestStandardized:
		return s.Standardized
	case IngestEnriched:
		return s.Enriched
	case IngestCompliance:
		return s.Compliance
	case IngestScored:
		return s.Scored
	}
	return ""
}

// Set records status for stage. Unknown stages are ignored.
func (s *IngestionStatuses) Set(stage IngestionStage, status StageStatus) {
	switch stage {
	case IngestParsed:
		s.Parsed = status
	case IngestStandardized:
		s.Standardized = status
	case IngestEnriched:
		s.Enriched = status
	case IngestCompliance:
		s.Compliance = status
	case IngestScored:
		s.Scored = status
	}
}

// Merge copies every non-empty status from other.
func (s *IngestionStatuses) Merge(other IngestionStatuses) {
	for _, stage := range IngestionStages {
		if st := other.Get(stage); st != "" {
			s.Set(stage, st)
		}
	}
}

// AllSucceeded reports whether all five stages report success.
func (s IngestionStatuses) AllSucceeded() bool {
	for _, stage := range IngestionStages {
		if s.Get(stage) != StageSuccess {
			return false
		}
	}
	return true
}

// StageStatusRecord is one append-only row of the ingestion status log.
type StageStatusRecord struct {
	ID          string          `json:"id"`
	JobID       string          `json:"jobId,omitempty"`
	CandidateID string          `json:"candidateId,omitempty"`
	Stage       IngestionStage  `json:"stage"`
	Status      StageStatus     `json:"status"`
	Detail      string          `json:"detail,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// RawCandidate is the loosely shaped input handed to the parse stage.
type RawCandidate struct {
	JobID           string   `json:"job_id"`
	Name            *string  `json:"name"`
	Role            *string  `json:"role"`
	Location        *string  `json:"location"`
	ExperienceYears *float64 `json:"experience_years"`
	Skills          []string `json:"skills"`
	CVObjectKey     string   `json:"cv_object_key,omitempty"`
}
