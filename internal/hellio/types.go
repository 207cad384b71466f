package hellio

import "time"

// Category classifies which mailbox a message belonged to.
type Category string

const (
	CategoryCandidate Category = "candidate"
	CategoryPosition  Category = "position"
	CategoryOther     Category = "other"
)

// Action records what the workflow did with a message.
type Action string

const (
	ActionIngested     Action = "ingested"
	ActionDraftCreated Action = "draft_created"
	ActionSkipped      Action = "skipped"
	ActionError        Action = "error"
)

// ProcessedRecord is the per-message idempotency record. Its presence in the
// backend is the sole signal that a message has been durably handled.
type ProcessedRecord struct {
	MessageID   string    `json:"emailId" mapstructure:"emailId"`
	Category    Category  `json:"emailType" mapstructure:"emailType"`
	Action      Action    `json:"actionTaken" mapstructure:"actionTaken"`
	Summary     string    `json:"summary" mapstructure:"summary"`
	CandidateID string    `json:"candidateId,omitempty" mapstructure:"candidateId"`
	PositionID  string    `json:"positionId,omitempty" mapstructure:"positionId"`
	DraftID     string    `json:"draftId,omitempty" mapstructure:"draftId"`
	CreatedAt   time.Time `json:"createdAt,omitempty" mapstructure:"-"`
}

// IngestionResult is the created-entity reference returned by the backend's
// document-understanding pipeline.
type IngestionResult struct {
	EntityID   string
	EntityName string
	Summary    string
	Status     string
}

// MatchSuggestion is one entry of a ranked similarity result, ordered by
// descending similarity. Similarity is in [0.0, 1.0].
type MatchSuggestion struct {
	EntityID   string
	EntityName string
	Similarity float64
}

// NotificationType enumerates the human-review notification kinds.
type NotificationType string

const (
	NotificationNewCandidate NotificationType = "new_candidate"
	NotificationNewPosition  NotificationType = "new_position"
	NotificationMissingInfo  NotificationType = "missing_info"
	NotificationError        NotificationType = "error"
)

// Notification is an alert for the human reviewer.
type Notification struct {
	Type        NotificationType `json:"type"`
	Summary     string           `json:"summary"`
	ActionURL   string           `json:"actionUrl,omitempty"`
	CandidateID string           `json:"candidateId,omitempty"`
	PositionID  string           `json:"positionId,omitempty"`
	DraftID     string           `json:"draftId,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// Position is a directory entry of an open position.
type Position struct {
	ID      string   `mapstructure:"id"`
	Title   string   `mapstructure:"title"`
	Company string   `mapstructure:"company"`
	Skills  []string `mapstructure:"skills"`
	Status  string   `mapstructure:"status"`
}

// Candidate is a directory entry of an ingested candidate.
type Candidate struct {
	ID     string   `mapstructure:"id"`
	Name   string   `mapstructure:"name"`
	Email  string   `mapstructure:"email"`
	Skills []string `mapstructure:"skills"`
	Status string   `mapstructure:"status"`
}
