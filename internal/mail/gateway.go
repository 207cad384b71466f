package mail

import "context"

// Gateway is the narrow mailbox surface the workflow engine depends on.
// It never sends mail; replies only ever become drafts.
type Gateway interface {
	// Search lists messages addressed to recipient, optionally unread only,
	// newest first.
	Search(ctx context.Context, recipient string, unreadOnly bool) ([]MessageSummary, error)
	// Read fetches the full message including body text and attachment refs.
	Read(ctx context.Context, id MessageID) (*InboundMessage, error)
	// Download returns the raw bytes of an attachment.
	Download(ctx context.Context, id MessageID, ref string) ([]byte, error)
	// CreateDraft stores an unsent draft and returns its id.
	CreateDraft(ctx context.Context, d Draft) (string, error)
	// MarkRead removes the message from future unread searches.
	MarkRead(ctx context.Context, id MessageID) error
}
