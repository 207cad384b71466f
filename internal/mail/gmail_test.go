package mail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestCollectPartsMultipart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmail.MessagePart{
					{
						MimeType: "text/plain",
						Body:     &gmail.MessagePartBody{Data: encode("Hello, CV attached.")},
					},
					{
						MimeType: "text/html",
						Body:     &gmail.MessagePartBody{Data: encode("<p>Hello</p>")},
					},
				},
			},
			{
				Filename: "cv.pdf",
				MimeType: "application/pdf",
				Body:     &gmail.MessagePartBody{AttachmentId: "att-1", Size: 2048},
			},
		},
	}

	var msg InboundMessage
	collectParts(payload, &msg)

	if msg.Body != "Hello, CV attached." {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Filename != "cv.pdf" || att.Ref != "att-1" || att.SizeBytes != 2048 {
		t.Fatalf("unexpected attachment %+v", att)
	}
}

func TestCollectPartsPlainBody(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/plain",
		Body:     &gmail.MessagePartBody{Data: encode("just text")},
	}

	var msg InboundMessage
	collectParts(payload, &msg)

	if msg.Body != "just text" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
	if len(msg.Attachments) != 0 {
		t.Fatalf("expected no attachments, got %d", len(msg.Attachments))
	}
}

func TestCollectPartsFirstTextPartWins(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmail.MessagePart{
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("first")}},
			{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: encode("second")}},
		},
	}

	var msg InboundMessage
	collectParts(payload, &msg)

	if msg.Body != "first" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
}

func TestHeaderMap(t *testing.T) {
	payload := &gmail.MessagePart{
		Headers: []*gmail.MessagePartHeader{
			{Name: "From", Value: "jane@example.com"},
			{Name: "Subject", Value: "Application"},
		},
	}

	headers := headerMap(payload)
	if headers["From"] != "jane@example.com" || headers["Subject"] != "Application" {
		t.Fatalf("unexpected headers %v", headers)
	}

	if got := headerMap(nil); len(got) != 0 {
		t.Fatalf("nil payload must yield empty headers, got %v", got)
	}
}

func TestEncodeAddressHeader(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain address", "jane@example.com", "<jane@example.com>"},
		{"ascii display name", "Jane Doe <jane@example.com>", `"Jane Doe" <jane@example.com>`},
		{"non-ascii display name", "Jürgen Müller <jm@example.com>", "=?utf-8?q?J=C3=BCrgen_M=C3=BCller?= <jm@example.com>"},
		{"unparseable input passed through", "not an address", "not an address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeAddressHeader(tt.in)
			if got != tt.want {
				t.Fatalf("encodeAddressHeader(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.ContainsFunc(got, func(r rune) bool { return r > 127 }) {
				t.Fatalf("header value must be ASCII, got %q", got)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, true},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, false},
		{"not found", &googleapi.Error{Code: http.StatusNotFound}, false},
		{"connection fault", errors.New("read: connection reset by peer"), true},
		{"cancelled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"wrapped cancellation", fmt.Errorf("creating draft: %w", context.Canceled), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTransient(tt.err); got != tt.want {
				t.Fatalf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
