package workflow

import "github.com/hellio/hr-mailroom/internal/hellio"

// TemplateID names one of the canned reply templates.
type TemplateID string

const (
	TemplateRequestCV            TemplateID = "request_cv"
	TemplateStrongMatch          TemplateID = "strong_match"
	TemplatePotentialMatch       TemplateID = "potential_match"
	TemplateWeakWithAlternatives TemplateID = "weak_with_alternatives"
	TemplateWeakNoAlternatives   TemplateID = "weak_no_alternatives"
	TemplateRequestJobInfo       TemplateID = "request_job_info"
	TemplatePositionActive       TemplateID = "position_active"
)

// Similarity thresholds for candidate reply selection. Lower bounds are
// inclusive: a score sitting exactly on a boundary takes the
// higher-confidence template.
const (
	StrongMatchThreshold    = 0.8
	PotentialMatchThreshold = 0.6
)

// SelectTemplate maps a ranked match list to the candidate reply template.
// An empty list selects the neutral potential-match reply: with no positions
// in the system there is nothing to assess match quality against. Below the
// potential threshold, having more than one match means alternatives can be
// offered.
func SelectTemplate(matches []hellio.MatchSuggestion) TemplateID {
	if len(matches) == 0 {
		return TemplatePotentialMatch
	}

	best := matches[0].Similarity
	for _, m := range matches[1:] {
		if m.Similarity > best {
			best = m.Similarity
		}
	}

	switch {
	case best >= StrongMatchThreshold:
		return TemplateStrongMatch
	case best >= PotentialMatchThreshold:
		return TemplatePotentialMatch
	case len(matches) > 1:
		return TemplateWeakWithAlternatives
	default:
		return TemplateWeakNoAlternatives
	}
}
