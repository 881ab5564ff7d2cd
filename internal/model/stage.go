// Package model contains the record shapes shared across packages: candidates,
// offers, the event log and ingestion status.
package model

// Stage is a named point in the hiring pipeline. The set and its order are
// process-wide constants.
type Stage string

const (
	StageApplied            Stage = "applied"
	StageScreening          Stage = "screening"
	StageInterview          Stage = "interview"
	StageOffer              Stage = "offer"
	StageOfferSent          Stage = "offer_sent"
	StageOfferAccepted      Stage = "offer_accepted"
	StageOnboardingComplete Stage = "onboarding_complete"
	StageRejected           Stage = "rejected"
	StageWithdrawn          Stage = "withdrawn"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageApplied,
	StageScreening,
	StageInterview,
	StageOffer,
	StageOfferSent,
	StageOfferAccepted,
	StageOnboardingComplete,
	StageRejected,
	StageWithdrawn,
}

// AllowedTransitions maps each non-terminal stage to its valid next stages.
// The first entry is the forward step taken by an "advance".
var AllowedTransitions = map[Stage][]Stage{
	StageApplied:       {StageScreening, StageRejected, StageWithdrawn},
	StageScreening:     {StageInterview, StageRejected, StageWithdrawn},
	StageInterview:     {StageOffer, StageRejected, StageWithdrawn},
	StageOffer:         {StageOfferSent, StageRejected, StageWithdrawn},
	StageOfferSent:     {StageOfferAccepted, StageRejected, StageWithdrawn},
	StageOfferAccepted: {StageOnboardingComplete, StageWithdrawn},
}

// TerminalStages permit no outgoing transition.
var TerminalStages = []Stage{
	StageOnboardingComplete,
	StageRejected,
	StageWithdrawn,
}

// Valid reports whether s belongs to the stage set.
func (s Stage) Valid() bool {
	for _, known := range Stages {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Stage) Terminal() bool {
	for _, t := range TerminalStages {
		if s == t {
			return true
		}
	}
	return false
}

// Next returns a copy of the allow-list for s.
func (s Stage) Next() []Stage {
	allowed := AllowedTransitions[s]
	out := make([]Stage, len(allowed))
	copy(out, allowed)
	return out
}

// CanTransition reports whether moving from s to to is permitted.
func (s Stage) CanTransition(to Stage) bool {
	if !s.Valid() || s.Terminal() || !to.Valid() {
		return false
	}
	for _, next := range AllowedTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
