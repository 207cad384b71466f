package workflow

import (
	"strings"

	"github.com/hellio/hr-mailroom/internal/hellio"
)

// Classify decides the workflow category from the recipient address. The
// recipient may be a full header value ("Jane Doe <jane@example.com>"), so
// matching is by case-insensitive containment of the configured address.
func Classify(recipient, candidatesAddr, positionsAddr string) hellio.Category {
	r := strings.ToLower(recipient)

	switch {
	case candidatesAddr != "" && strings.Contains(r, strings.ToLower(candidatesAddr)):
		return hellio.CategoryCandidate
	case positionsAddr != "" && strings.Contains(r, strings.ToLower(positionsAddr)):
		return hellio.CategoryPosition
	default:
		return hellio.CategoryOther
	}
}

// senderName extracts a display name from a From header, falling back to the
// local part of the address.
func senderName(from string) string {
	from = strings.TrimSpace(from)
	if idx := strings.Index(from, "<"); idx > 0 {
		name := strings.Trim(strings.TrimSpace(from[:idx]), `"`)
		if name != "" {
			return name
		}
	}

	addr := strings.Trim(from, "<>")
	if at := strings.Index(addr, "@"); at > 0 {
		return addr[:at]
	}
	return addr
}
