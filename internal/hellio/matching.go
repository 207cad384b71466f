package hellio

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/mitchellh/mapstructure"
)

// MaxCandidateSuggestions bounds candidates-for-position results client-side
// as well as server-side.
const MaxCandidateSuggestions = 3

type positionSuggestion struct {
	PositionID string  `mapstructure:"positionId"`
	ID         string  `mapstructure:"id"`
	Title      string  `mapstructure:"title"`
	Similarity float64 `mapstructure:"similarity"`
}

type candidateSuggestion struct {
	CandidateID string  `mapstructure:"candidateId"`
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	Similarity  float64 `mapstructure:"similarity"`
}

// SuggestPositionsForCandidate returns positions ranked by semantic
// similarity to the candidate, best first. The list may be empty.
func (c *Client) SuggestPositionsForCandidate(ctx context.Context, candidateID string) ([]MatchSuggestion, error) {
	if candidateID == "" {
		return nil, fmt.Errorf("candidate id is required")
	}

	var items []map[string]any
	path := fmt.Sprintf("/api/embeddings/candidates/%s/suggest-positions", candidateID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, fmt.Errorf("suggest positions for candidate %s: %w", candidateID, err)
	}

	matches := make([]MatchSuggestion, 0, len(items))
	for _, item := range items {
		var s positionSuggestion
		if err := mapstructure.Decode(item, &s); err != nil {
			return nil, fmt.Errorf("suggest positions for candidate %s: decoding item: %w", candidateID, err)
		}

		id := s.PositionID
		if id == "" {
			id = s.ID
		}
		matches = append(matches, MatchSuggestion{
			EntityID:   id,
			EntityName: s.Title,
			Similarity: s.Similarity,
		})
	}

	sortBySimilarity(matches)
	return matches, nil
}

// SuggestCandidatesForPosition returns up to MaxCandidateSuggestions
// candidates ranked by semantic similarity to the position, best first.
func (c *Client) SuggestCandidatesForPosition(ctx context.Context, positionID string) ([]MatchSuggestion, error) {
	if positionID == "" {
		return nil, fmt.Errorf("position id is required")
	}

	var items []map[string]any
	path := fmt.Sprintf("/api/embeddings/positions/%s/suggest-candidates", positionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &items); err != nil {
		return nil, fmt.Errorf("suggest candidates for position %s: %w", positionID, err)
	}

	matches := make([]MatchSuggestion, 0, len(items))
	for _, item := range items {
		var s candidateSuggestion
		if err := mapstructure.Decode(item, &s); err != nil {
			return nil, fmt.Errorf("suggest candidates for position %s: decoding item: %w", positionID, err)
		}

		id := s.CandidateID
		if id == "" {
			id = s.ID
		}
		matches = append(matches, MatchSuggestion{
			EntityID:   id,
			EntityName: s.Name,
			Similarity: s.Similarity,
		})
	}

	sortBySimilarity(matches)
	if len(matches) > MaxCandidateSuggestions {
		matches = matches[:MaxCandidateSuggestions]
	}

	return matches, nil
}

func sortBySimilarity(matches []MatchSuggestion) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
}
