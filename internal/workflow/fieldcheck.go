package workflow

import (
	"strings"
)

// PostingFields is the result of inspecting a job-posting email body. Title
// and a requirements signal are the only mandatory fields; everything else is
// optional and, when absent, is listed so the confirmation draft can mention
// it politely.
type PostingFields struct {
	Title           string
	HasRequirements bool
	MissingOptional []string
}

// Sufficient reports whether the posting can be ingested at all. Missing
// optional fields never block ingestion.
func (f PostingFields) Sufficient() bool {
	return f.Title != "" && f.HasRequirements
}

var titleLabels = []string{"job title:", "title:", "role:", "position:"}

var requirementSignals = []string{
	"skill", "requirement", "required", "experience",
	"qualification", "must have", "proficien", "years of",
}

// optionalFields maps a human label to the keywords whose presence satisfies it.
var optionalFields = []struct {
	label    string
	keywords []string
}{
	{"salary range", []string{"salary", "compensation", "pay"}},
	{"location", []string{"location", "remote", "on-site", "onsite", "office", "hybrid"}},
	{"department", []string{"department", "team"}},
	{"education requirements", []string{"education", "degree"}},
}

// InspectPosting extracts the mandatory and optional field signals from a
// job-posting email. The title comes from a labeled line in the body, or from
// the subject when the body never names the role.
func InspectPosting(subject, body string) PostingFields {
	fields := PostingFields{
		Title: titleFromBody(body),
	}

	if fields.Title == "" {
		fields.Title = titleFromSubject(subject)
	}

	lower := strings.ToLower(body)
	for _, signal := range requirementSignals {
		if strings.Contains(lower, signal) {
			fields.HasRequirements = true
			break
		}
	}

	for _, opt := range optionalFields {
		present := false
		for _, kw := range opt.keywords {
			if strings.Contains(lower, kw) {
				present = true
				break
			}
		}
		if !present {
			fields.MissingOptional = append(fields.MissingOptional, opt.label)
		}
	}

	return fields
}

func titleFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		lower := strings.ToLower(line)
		for _, label := range titleLabels {
			if strings.HasPrefix(lower, label) {
				if title := strings.TrimSpace(line[len(label):]); title != "" {
					return title
				}
			}
		}
	}
	return ""
}

func titleFromSubject(subject string) string {
	subject = strings.TrimSpace(subject)
	for {
		lower := strings.ToLower(subject)
		trimmed := false
		for _, prefix := range []string{"re:", "fwd:", "fw:"} {
			if strings.HasPrefix(lower, prefix) {
				subject = strings.TrimSpace(subject[len(prefix):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}

	// Generic subjects carry no role information and cannot serve as a title.
	lower := strings.ToLower(subject)
	for _, vague := range []string{
		"", "hi", "hello", "hiring", "job", "position", "new position",
		"job posting", "open role", "we need someone", "urgent", "help",
	} {
		if lower == vague {
			return ""
		}
	}
	if len(strings.Fields(subject)) < 2 {
		return ""
	}
	return subject
}
