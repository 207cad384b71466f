package ai

import "context"

// DraftFacts carries the specifics a composer may weave into a reply body.
type DraftFacts struct {
	Category     string
	Template     string
	SenderName   string
	EntityName   string
	MatchedNames []string
	Summary      string
}

// Composer optionally rewrites a deterministic template body into a more
// personalized reply. Implementations must preserve the template's meaning;
// callers fall back to the original body on any error.
type Composer interface {
	Polish(ctx context.Context, subject, body string, facts DraftFacts) (string, error)
	// Reset discards any long-lived session state so context cannot grow
	// without bound across poll cycles.
	Reset()
}
