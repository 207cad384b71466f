package workflow

import (
	"testing"

	"github.com/hellio/hr-mailroom/internal/hellio"
)

func TestSelectTemplate(t *testing.T) {
	tests := []struct {
		name    string
		matches []hellio.MatchSuggestion
		want    TemplateID
	}{
		{
			name:    "empty list is neutral, never strong",
			matches: nil,
			want:    TemplatePotentialMatch,
		},
		{
			name:    "high similarity",
			matches: []hellio.MatchSuggestion{{EntityID: "p1", Similarity: 0.95}},
			want:    TemplateStrongMatch,
		},
		{
			name:    "mid similarity",
			matches: []hellio.MatchSuggestion{{EntityID: "p1", Similarity: 0.7}},
			want:    TemplatePotentialMatch,
		},
		{
			name: "low similarity with alternatives",
			matches: []hellio.MatchSuggestion{
				{EntityID: "p1", Similarity: 0.4},
				{EntityID: "p2", Similarity: 0.35},
				{EntityID: "p3", Similarity: 0.2},
			},
			want: TemplateWeakWithAlternatives,
		},
		{
			name:    "low similarity without alternatives",
			matches: []hellio.MatchSuggestion{{EntityID: "p1", Similarity: 0.4}},
			want:    TemplateWeakNoAlternatives,
		},
		{
			name:    "strong boundary is inclusive",
			matches: []hellio.MatchSuggestion{{EntityID: "p1", Similarity: 0.8}},
			want:    TemplateStrongMatch,
		},
		{
			name:    "potential boundary is inclusive",
			matches: []hellio.MatchSuggestion{{EntityID: "p1", Similarity: 0.6}},
			want:    TemplatePotentialMatch,
		},
		{
			name:    "just below strong",
			matches: []hellio.MatchSuggestion{{EntityID: "p1", Similarity: 0.79999}},
			want:    TemplatePotentialMatch,
		},
		{
			name: "best match decides even when unordered",
			matches: []hellio.MatchSuggestion{
				{EntityID: "p2", Similarity: 0.5},
				{EntityID: "p1", Similarity: 0.85},
			},
			want: TemplateStrongMatch,
		},
	}

	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			if got := SelectTemplate(tc.matches); got != tc.want {
				t.Fatalf("SelectTemplate() = %s, want %s", got, tc.want)
			}
		})
	}
}
