package ingestion

import (
	"math"
	"regexp"
	"strings"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

// Tags added by each stage.
const (
	TagParsed            = "parsed"
	TagStandardized      = "standardized"
	TagEnriched          = "enriched"
	TagComplianceChecked = "compliance_checked"
	TagScored            = "scored"
	TagStrongPre         = "strong_pre"
	TagWeakPre           = "weak_pre"
	TagStrongPost        = "strong_post"
	TagWeakPost          = "weak_post"
)

// Compliance violation tags.
const (
	ViolationMissingName       = "missing_name"
	ViolationMissingRole       = "missing_role"
	ViolationMissingLocation   = "missing_location"
	ViolationInvalidExperience = "invalid_experience"
	ViolationOutOfRange        = "out_of_range_experience"
)

const (
	maxExperienceYears = 60
	handleMaxLen       = 24

	linkedInBase = "https://linkedin.com/in/"
	gitHubBase   = "https://github.com/"
)

// SkillWeights scores known skills; anything else is worth 0.
var SkillWeights = map[string]int{
	"typescript": 10,
	"react":      10,
	"javascript": 8,
	"node":       8,
	"python":     8,
	"postgres":   6,
	"express":    6,
	"sql":        6,
	"pandas":     5,
}

// gitHubSkills gate the synthesized GitHub profile.
var gitHubSkills = []string{"javascript", "typescript", "python"}

type roleGroup struct {
	keywords []string
	skills   []string
}

// roleGroups infer skills from keywords in the standardized role.
var roleGroups = []roleGroup{
	{keywords: []string{"frontend"}, skills: []string{"react", "javascript", "typescript"}},
	{keywords: []string{"backend"}, skills: []string{"node", "express", "postgres"}},
	{keywords: []string{"data", "ml"}, skills: []string{"python", "pandas", "sql"}},
}

var nonWord = regexp.MustCompile(`[^\w]+`)

// Parse turns loosely shaped input into a candidate. Absent input produces an
// empty candidate; it never fails.
func Parse(raw *model.RawCandidate) model.Candidate {
	c := model.Candidate{Tags: []string{TagParsed}, Skills: []string{}}
	if raw == nil {
		return c
	}
	c.JobID = raw.JobID
	c.Name = deref(raw.Name)
	c.Role = deref(raw.Role)
	c.Location = deref(raw.Location)
	c.CVObjectKey = raw.CVObjectKey
	if raw.ExperienceYears != nil {
		years := *raw.ExperienceYears
		if !math.IsNaN(years) && !math.IsInf(years, 0) {
			// Saturate before converting; compliance flags anything past 60.
			years = math.Max(math.Min(math.Floor(years), math.MaxInt32), math.MinInt32)
			v := int(years)
			c.ExperienceYears = &v
		}
	}
	if raw.Skills != nil {
		c.Skills = append([]string(nil), raw.Skills...)
	}
	return c
}

// Standardize normalizes casing and whitespace and floors experience at zero.
// Missing experience stays missing so compliance can report it.
func Standardize(in model.Candidate) model.Candidate {
	c := in.Clone()
	c.Name = strings.TrimSpace(c.Name)
	c.Role = strings.ToLower(strings.TrimSpace(c.Role))
	c.Location = strings.TrimSpace(c.Location)
	skills := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			skills = append(skills, s)
		}
	}
	c.Skills = model.AddTags(nil, skills...)
	if c.ExperienceYears != nil && *c.ExperienceYears < 0 {
		zero := 0
		c.ExperienceYears = &zero
	}
	c.Tags = model.AddTags(c.Tags, TagStandardized)
	return c
}

// Handle derives a profile handle from a name: lowercase, word characters
// only, at most 24 characters.
func Handle(name string) string {
	h := nonWord.ReplaceAllString(strings.ToLower(name), "")
	if len(h) > handleMaxLen {
		h = h[:handleMaxLen]
	}
	return h
}

// Enrich synthesizes profile links and infers skills from the role.
func Enrich(in model.Candidate) model.Candidate {
	c := in.Clone()
	handle := Handle(c.Name)
	c.LinkedIn, c.GitHub = nil, nil
	if handle != "" {
		linkedIn := linkedInBase + handle
		c.LinkedIn = &linkedIn
	}
	for _, s := range gitHubSkills {
		if model.HasTag(c.Skills, s) {
			gitHub := gitHubBase + handle
			c.GitHub = &gitHub
			break
		}
	}
	for _, g := range roleGroups {
		for _, kw := range g.keywords {
			if strings.Contains(c.Role, kw) {
				c.Skills = model.AddTags(c.Skills, g.skills...)
				break
			}
		}
	}
	c.Tags = model.AddTags(c.Tags, TagEnriched)
	return c
}

// CheckCompliance collects violation tags. A non-compliant candidate still
// continues to scoring.
func CheckCompliance(in model.Candidate) model.Candidate {
	c := in.Clone()
	violations := []string{}
	if c.Name == "" {
		violations = append(violations, ViolationMissingName)
	}
	if c.Role == "" {
		violations = append(violations, ViolationMissingRole)
	}
	if c.Location == "" {
		violations = append(violations, ViolationMissingLocation)
	}
	switch {
	case c.ExperienceYears == nil:
		violations = append(violations, ViolationInvalidExperience)
	case *c.ExperienceYears < 0 || *c.ExperienceYears > maxExperienceYears:
		violations = append(violations, ViolationOutOfRange)
	}
	c.ComplianceTags = violations
	c.Compliant = len(violations) == 0
	c.Tags = model.AddTags(c.Tags, TagComplianceChecked)
	return c
}

// Score computes the pre-screen, post-screen and final scores.
func Score(in model.Candidate) model.Candidate {
	c := in.Clone()
	c.PreScore = PreScore(c)
	c.PostScore = PostScore(c)
	c.FinalScore = int(math.Round(float64(c.PreScore)*0.4 + float64(c.PostScore)*0.6))

	preTag, postTag := TagWeakPre, TagWeakPost
	if c.PreScore >= 35 {
		preTag = TagStrongPre
	}
	if c.PostScore >= 65 {
		postTag = TagStrongPost
	}
	c.Tags = model.AddTags(c.Tags, TagScored, preTag, postTag)
	return c
}

// PreScore: name 20, role 20, location 10, skills up to 25; at most 75.
func PreScore(c model.Candidate) int {
	score := 0
	if c.Name != "" {
		score += 20
	}
	if c.Role != "" {
		score += 20
	}
	if c.Location != "" {
		score += 10
	}
	score += min(25, skillSignal(c.Skills))
	return min(75, score)
}

// PostScore: linkedin 20, github 15, compliant 20, experience up to 20,
// skills up to 40; at most 120.
func PostScore(c model.Candidate) int {
	score := 0
	if c.LinkedIn != nil && *c.LinkedIn != "" {
		score += 20
	}
	if c.GitHub != nil && *c.GitHub != "" {
		score += 15
	}
	if c.Compliant {
		score += 20
	}
	if c.ExperienceYears != nil {
		score += min(20, max(0, *c.ExperienceYears))
	}
	score += min(40, skillSignal(c.Skills))
	return min(120, score)
}

func skillSignal(skills []string) int {
	total := 0
	for _, s := range skills {
		total += SkillWeights[s]
	}
	return total
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
