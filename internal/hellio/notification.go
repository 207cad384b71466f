package hellio

import (
	"context"
	"fmt"
	"net/http"
)

const notificationsPath = "/api/agent/notifications"

// CreateNotification stores an alert for the human reviewer. Every workflow
// outcome, including aborts, must leave one behind.
func (c *Client) CreateNotification(ctx context.Context, n *Notification) error {
	if n == nil || n.Type == "" {
		return fmt.Errorf("notification with type is required")
	}

	if err := c.doJSON(ctx, http.MethodPost, notificationsPath, nil, n, nil); err != nil {
		return fmt.Errorf("creating %s notification: %w", n.Type, err)
	}

	return nil
}
