package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType tags a timeline event or audit entry and selects its payload shape.
type EventType string

const (
	EventStageChange        EventType = "stage_change"
	EventOnboardingStarted  EventType = "onboarding_started"
	EventOfferDrafted       EventType = "offer_drafted"
	EventOfferSent          EventType = "offer_sent"
	EventOfferStatusChanged EventType = "offer_status_changed"
	EventManualOverride     EventType = "manual_override"
	EventCandidateIngested  EventType = "candidate_ingested"
)

// Payload is implemented by every typed event payload.
type Payload interface {
	EventType() EventType
}

type StageChange struct {
	From Stage `json:"from"`
	To   Stage `json:"to"`
}

type OnboardingStarted struct{}

type OfferDrafted struct {
	OfferID string `json:"offerId"`
}

type OfferSentEvent struct {
	OfferID string `json:"offerId"`
}

type OfferStatusChanged struct {
	OfferID string      `json:"offerId"`
	Status  OfferStatus `json:"status"`
}

type ManualOverride struct {
	Step  Step   `json:"step"`
	Value string `json:"value"`
}

type CandidateIngested struct {
	JobID      string `json:"jobId"`
	FinalScore int    `json:"finalScore"`
	Compliant  bool   `json:"compliant"`
}

func (StageChange) EventType() EventType        { return EventStageChange }
func (OnboardingStarted) EventType() EventType  { return EventOnboardingStarted }
func (OfferDrafted) EventType() EventType       { return EventOfferDrafted }
func (OfferSentEvent) EventType() EventType     { return EventOfferSent }
func (OfferStatusChanged) EventType() EventType { return EventOfferStatusChanged }
func (ManualOverride) EventType() EventType     { return EventManualOverride }
func (CandidateIngested) EventType() EventType  { return EventCandidateIngested }

// DecodePayload rebuilds the typed payload stored under t.
func DecodePayload(t EventType, raw []byte) (Payload, error) {
	var p Payload
	switch t {
	case EventStageChange:
		p = &StageChange{}
	case EventOnboardingStarted:
		p = &OnboardingStarted{}
	case EventOfferDrafted:
		p = &OfferDrafted{}
	case EventOfferSent:
		p = &OfferSentEvent{}
	case EventOfferStatusChanged:
		p = &OfferStatusChanged{}
	case EventManualOverride:
		p = &ManualOverride{}
	case EventCandidateIngested:
		p = &CandidateIngested{}
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return deref(p), nil
}

func deref(p Payload) Payload {
	switch v := p.(type) {
	case *StageChange:
		return *v
	case *OnboardingStarted:
		return *v
	case *OfferDrafted:
		return *v
	case *OfferSentEvent:
		return *v
	case *OfferStatusChanged:
		return *v
	case *ManualOverride:
		return *v
	case *CandidateIngested:
		return *v
	}
	return p
}

// TimelineEvent is one append-only, user facing record of an action.
type TimelineEvent struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	Type        EventType `json:"type"`
	Payload     Payload   `json:"payload"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuditEntry mirrors TimelineEvent for compliance purposes.
type AuditEntry struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	Action      EventType `json:"action"`
	Metadata    Payload   `json:"metadata"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UnmarshalJSON decodes the payload according to the event type.
func (e *TimelineEvent) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID          string          `json:"id"`
		CandidateID string          `json:"candidateId"`
		Type        EventType       `json:"type"`
		Payload     json.RawMessage `json:"payload"`
		CreatedAt   time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p, err := DecodePayload(wire.Type, wire.Payload)
	if err != nil {
		return err
	}
	*e = TimelineEvent{ID: wire.ID, CandidateID: wire.CandidateID, Type: wire.Type, Payload: p, CreatedAt: wire.CreatedAt}
	return nil
}

// UnmarshalJSON decodes the metadata according to the action.
func (a *AuditEntry) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID          string          `json:"id"`
		CandidateID string          `json:"candidateId"`
		Action      EventType       `json:"action"`
		Metadata    json.RawMessage `json:"metadata"`
		CreatedAt   time.Time       `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p, err := DecodePayload(wire.Action, wire.Metadata)
	if err != nil {
		return err
	}
	*a = AuditEntry{ID: wire.ID, CandidateID: wire.CandidateID, Action: wire.Action, Metadata: p, CreatedAt: wire.CreatedAt}
	return nil
}
