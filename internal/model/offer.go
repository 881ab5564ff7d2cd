package model

import "time"

// OfferStatus is the lifecycle state of a candidate offer.
type OfferStatus string

const (
	OfferDraft     OfferStatus = "draft"
	OfferSent      OfferStatus = "sent"
	OfferAccepted  OfferStatus = "accepted"
	OfferRejected  OfferStatus = "rejected"
	OfferWithdrawn OfferStatus = "withdrawn"
)

// OfferTransitions lists the statuses each offer status may move to.
var OfferTransitions = map[OfferStatus][]OfferStatus{
	OfferDraft: {OfferSent, OfferWithdrawn},
	OfferSent:  {OfferAccepted, OfferRejected, OfferWithdrawn},
}

// Valid reports whether s is a known offer status.
func (s OfferStatus) Valid() bool {
	switch s {
	case OfferDraft, OfferSent, OfferAccepted, OfferRejected, OfferWithdrawn:
		return true
	}
	return false
}

// CanMoveTo reports whether s may move to next.
func (s OfferStatus) CanMoveTo(next OfferStatus) bool {
	for _, n := range OfferTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// Offer is a row in the candidate_offers table.
type Offer struct {
	ID          string      `json:"id"`
	CandidateID string      `json:"candidateId"`
	Status      OfferStatus `json:"status"`
	Salary      *float64    `json:"salary"`
	StartDate   *string     `json:"startDate"`
	Notes       *string     `json:"notes"`
	Content     *string     `json:"content"`
	Locked      bool        `json:"locked"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// OfferFields carries the editable offer fields. Omitted fields are left as
// they are; an explicit null clears the field.
type OfferFields struct {
	Salary    Optional[float64] `json:"salary"`
	StartDate Optional[string]  `json:"startDate"`
	Notes     Optional[string]  `json:"notes"`
	Content   Optional[string]  `json:"content"`
}

// OfferPatch is the store-level update for an offer row.
type OfferPatch struct {
	Status    *OfferStatus
	Locked    *bool
	Salary    Optional[float64]
	StartDate Optional[string]
	Notes     Optional[string]
	Content   Optional[string]
}

// Apply merges the patch into o.
func (p OfferPatch) Apply(o *Offer) {
	if p.Status != nil {
		o.Status = *p.Status
	}
	if p.Locked != nil {
		o.Locked = *p.Locked
	}
	o.Salary = p.Salary.Apply(o.Salary)
	o.StartDate = p.StartDate.Apply(o.StartDate)
	o.Notes = p.Notes.Apply(o.Notes)
	o.Content = p.Content.Apply(o.Content)
}

// TouchesFields reports whether the patch edits anything besides status.
func (p OfferPatch) TouchesFields() bool {
	return p.Locked != nil || p.Salary.Set || p.StartDate.Set || p.Notes.Set || p.Content.Set
}
