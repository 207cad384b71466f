package hellio

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mitchellh/mapstructure"
)

// ListPositions returns all open positions in the system.
func (c *Client) ListPositions(ctx context.Context) ([]*Position, error) {
	var items []map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/positions", nil, nil, &items); err != nil {
		return nil, fmt.Errorf("listing positions: %w", err)
	}

	var positions []*Position
	if err := mapstructure.Decode(items, &positions); err != nil {
		return nil, fmt.Errorf("decoding positions: %w", err)
	}

	return positions, nil
}

// ListCandidates returns all candidates in the system.
func (c *Client) ListCandidates(ctx context.Context) ([]*Candidate, error) {
	var items []map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/candidates", nil, nil, &items); err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}

	var candidates []*Candidate
	if err := mapstructure.Decode(items, &candidates); err != nil {
		return nil, fmt.Errorf("decoding candidates: %w", err)
	}

	return candidates, nil
}

// GetPosition returns the full detail payload for a position.
func (c *Client) GetPosition(ctx context.Context, id string) (map[string]any, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/positions/"+id, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("getting position %s: %w", id, err)
	}
	return raw, nil
}

// GetCandidate returns the full detail payload for a candidate.
func (c *Client) GetCandidate(ctx context.Context, id string) (map[string]any, error) {
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, "/api/candidates/"+id, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("getting candidate %s: %w", id, err)
	}
	return raw, nil
}
