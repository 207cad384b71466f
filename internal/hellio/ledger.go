package hellio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const processedEmailsPath = "/api/agent/processed-emails"

// RecordExists reports whether a ProcessedRecord for the message is already
// committed. A 404 from the backend means the message has not been durably
// processed, which is the retry signal for the poll loop.
func (c *Client) RecordExists(ctx context.Context, messageID string) (bool, error) {
	if messageID == "" {
		return false, fmt.Errorf("message id is required")
	}

	err := c.doJSON(ctx, http.MethodGet, processedEmailsPath+"/"+messageID, nil, nil, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("checking processed record for %s: %w", messageID, err)
	}

	return true, nil
}

// CommitRecord durably records that a message was handled. Called exactly
// once per message, only after every required side effect has succeeded.
func (c *Client) CommitRecord(ctx context.Context, record *ProcessedRecord) error {
	if record == nil || record.MessageID == "" {
		return fmt.Errorf("record with message id is required")
	}

	if err := c.doJSON(ctx, http.MethodPost, processedEmailsPath, nil, record, nil); err != nil {
		return fmt.Errorf("committing processed record for %s: %w", record.MessageID, err)
	}

	return nil
}
