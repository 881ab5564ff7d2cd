package model

import "time"

// Step names one of the candidate's override-able status triples.
type Step string

const (
	StepReference  Step = "reference"
	StepOffer      Step = "offer"
	StepOnboarding Step = "onboarding"
)

// Steps lists the override-able steps.
var Steps = []Step{StepReference, StepOffer, StepOnboarding}

const (
	SourceManual     = "manual"
	SourceAutomation = "automation"
)

// StatusTriple is the {status, source, locked} shape shared by the reference,
// offer and onboarding fields. A locked triple only changes via a manual
// override.
type StatusTriple struct {
	Status string `json:"status"`
	Source string `json:"source"`
	Locked bool   `json:"locked"`
}

// Candidate is a row in the candidates table.
type Candidate struct {
	ID              string   `json:"id"`
	JobID           string   `json:"jobId"`
	Name            string   `json:"name"`
	Role            string   `json:"role"`
	Location        string   `json:"location"`
	ExperienceYears *int     `json:"experienceYears"`
	Skills          []string `json:"skills"`
	LinkedIn        *string  `json:"linkedin,omitempty"`
	GitHub          *string  `json:"github,omitempty"`

	PreScore   int `json:"preScore"`
	PostScore  int `json:"postScore"`
	FinalScore int `json:"finalScore"`

	Compliant      bool     `json:"compliant"`
	ComplianceTags []string `json:"complianceTags"`
	Tags           []string `json:"tags"`

	Stage          Stage    `json:"stage"`
	InterviewScore *float64 `json:"interviewScore,omitempty"`
	Rating         string   `json:"rating,omitempty"`

	Reference  StatusTriple `json:"reference"`
	Offer      StatusTriple `json:"offer"`
	Onboarding StatusTriple `json:"onboarding"`

	Ingestion IngestionStatuses `json:"ingestion"`

	CVObjectKey         string     `json:"cvObjectKey,omitempty"`
	LastStatusChangedAt *time.Time `json:"lastStatusChangedAt,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// StatusFor returns the triple backing step, or nil for an unknown step.
func (c *Candidate) StatusFor(step Step) *StatusTriple {
	switch step {
	case StepReference:
		return &c.Reference
	case StepOffer:
		return &c.Offer
	case StepOnboarding:
		return &c.Onboarding
	default:
		return nil
	}
}

// Clone returns a deep copy so callers never share slices with a store.
func (c Candidate) Clone() Candidate {
	out := c
	out.Skills = append([]string(nil), c.Skills...)
	out.ComplianceTags = append([]string(nil), c.ComplianceTags...)
	out.Tags = append([]string(nil), c.Tags...)
	if c.ExperienceYears != nil {
		v := *c.ExperienceYears
		out.ExperienceYears = &v
	}
	if c.LinkedIn != nil {
		v := *c.LinkedIn
		out.LinkedIn = &v
	}
	if c.GitHub != nil {
		v := *c.GitHub
		out.GitHub = &v
	}
	if c.InterviewScore != nil {
		v := *c.InterviewScore
		out.InterviewScore = &v
	}
	if c.LastStatusChangedAt != nil {
		v := *c.LastStatusChangedAt
		out.LastStatusChangedAt = &v
	}
	return out
}

// CandidatePatch is a field-level update: nil fields are left untouched.
type CandidatePatch struct {
	Name                *string            `json:"name,omitempty"`
	Role                *string            `json:"role,omitempty"`
	Location            *string            `json:"location,omitempty"`
	Stage               *Stage             `json:"stage,omitempty"`
	InterviewScore      *float64           `json:"interviewScore,omitempty"`
	Rating              *string            `json:"rating,omitempty"`
	Reference           *StatusTriple      `json:"reference,omitempty"`
	Offer               *StatusTriple      `json:"offer,omitempty"`
	Onboarding          *StatusTriple      `json:"onboarding,omitempty"`
	Ingestion           *IngestionStatuses `json:"ingestion,omitempty"`
	CVObjectKey         *string            `json:"cvObjectKey,omitempty"`
	LastStatusChangedAt *time.Time         `json:"lastStatusChangedAt,omitempty"`
}

// SetStatus points the patch field for step at triple.
func (p *CandidatePatch) SetStatus(step Step, triple StatusTriple) {
	switch step {
	case StepReference:
		p.Reference = &triple
	case StepOffer:
		p.Offer = &triple
	case StepOnboarding:
		p.Onboarding = &triple
	}
}

// Empty reports whether the patch changes nothing.
func (p CandidatePatch) Empty() bool {
	return p.Name == nil && p.Role == nil && p.Location == nil && p.Stage == nil &&
		p.InterviewScore == nil && p.Rating == nil && p.Reference == nil &&
		p.Offer == nil && p.Onboarding == nil && p.Ingestion == nil &&
		p.CVObjectKey == nil && p.LastStatusChangedAt == nil
}

// Apply merges the patch into c.
func (p CandidatePatch) Apply(c *Candidate) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Role != nil {
		c.Role = *p.Role
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.Stage != nil {
		c.Stage = *p.Stage
	}
	if p.InterviewScore != nil {
		v := *p.InterviewScore
		c.InterviewScore = &v
	}
	if p.Rating != nil {
		c.Rating = *p.Rating
	}
	if p.Reference != nil {
		c.Reference = *p.Reference
	}
	if p.Offer != nil {
		c.Offer = *p.Offer
	}
	if p.Onboarding != nil {
		c.Onboarding = *p.Onboarding
	}
	if p.Ingestion != nil {
		c.Ingestion.Merge(*p.Ingestion)
	}
	if p.CVObjectKey != nil {
		c.CVObjectKey = *p.CVObjectKey
	}
	if p.LastStatusChangedAt != nil {
		v := *p.LastStatusChangedAt
		c.LastStatusChangedAt = &v
	}
}

// AddTags returns tags with extra appended, skipping duplicates and empty
// strings. Order carries no meaning.
func AddTags(tags []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(tags)+len(extra))
	out := make([]string, 0, len(tags)+len(extra))
	for _, list := range [][]string{tags, extra} {
		for _, t := range list {
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// HasTag reports whether tag is present in tags.
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
