package cvtext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dharsanguruparan/TalentFlow/internal/model"
)

var (
	labelPattern      = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z ]{1,30}?)\s*:\s*(.+?)\s*$`)
	experiencePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)`)
	skillSplit        = regexp.MustCompile(`\s*[,;|/•]\s*`)
	wordPattern       = regexp.MustCompile(`[A-Za-z+#.]+`)
)

var labelAliases = map[string]string{
	"name":             "name",
	"full name":        "name",
	"candidate":        "name",
	"role":             "role",
	"title":            "role",
	"position":         "role",
	"current role":     "role",
	"location":         "location",
	"city":             "location",
	"based in":         "location",
	"experience":       "experience",
	"years":            "experience",
	"years experience": "experience",
	"skills":           "skills",
	"tech stack":       "skills",
	"technologies":     "skills",
}

// knownSkills are picked up anywhere in the text when no Skills line exists.
var knownSkills = []string{
	"typescript", "javascript", "react", "node", "express", "postgres",
	"python", "pandas", "sql", "go", "java", "docker", "kubernetes", "aws",
}

// ParseFields reads labelled lines ("Name: ...", "Role: ...") from CV text.
// Unlabelled CVs fall back to the first non-empty line as the name, an
// "N years" phrase for experience and a keyword scan for skills.
func ParseFields(jobID, text string) *model.RawCandidate {
	raw := &model.RawCandidate{JobID: jobID}
	var firstLine string
	firstLabelled := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		isFirst := firstLine == ""
		if isFirst {
			firstLine = line
		}
		m := labelPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		field, ok := labelAliases[strings.ToLower(strings.TrimSpace(m[1]))]
		if !ok {
			continue
		}
		if isFirst {
			firstLabelled = true
		}
		value := m[2]
		switch field {
		case "name":
			if raw.Name == nil {
				raw.Name = &value
			}
		case "role":
			if raw.Role == nil {
				raw.Role = &value
			}
		case "location":
			if raw.Location == nil {
				raw.Location = &value
			}
		case "experience":
			if raw.ExperienceYears == nil {
				raw.ExperienceYears = parseYears(value)
			}
		case "skills":
			for _, s := range skillSplit.Split(value, -1) {
				if s = strings.TrimSpace(s); s != "" {
					raw.Skills = append(raw.Skills, s)
				}
			}
		}
	}

	if raw.Name == nil && firstLine != "" && !firstLabelled {
		raw.Name = &firstLine
	}
	if raw.ExperienceYears == nil {
		if m := experiencePattern.FindStringSubmatch(text); m != nil {
			raw.ExperienceYears = parseYears(m[1])
		}
	}
	if len(raw.Skills) == 0 {
		raw.Skills = scanSkills(text)
	}
	return raw
}

func parseYears(value string) *float64 {
	if m := experiencePattern.FindStringSubmatch(value); m != nil {
		value = m[1]
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil
	}
	return &v
}

func scanSkills(text string) []string {
	words := map[string]struct{}{}
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		words[strings.TrimSuffix(strings.TrimSuffix(w, "."), ".js")] = struct{}{}
	}
	var out []string
	for _, s := range knownSkills {
		if _, ok := words[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
