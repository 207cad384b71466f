package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	netmail "net/mail"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	gmailUser        = "me"
	searchMaxResults = 25
)

// GmailGateway implements Gateway against the Gmail REST API. On a transient
// transport fault it rebuilds the underlying service once and retries the
// failed call before surfacing the error.
type GmailGateway struct {
	logger          *zap.Logger
	credentialsFile string
	tokenFile       string

	mu  sync.Mutex
	svc *gmail.Service
}

// NewGmailGateway builds a gateway from an OAuth client-secret file and a
// stored token file. The token must already exist; a headless daemon cannot
// run the interactive consent flow.
func NewGmailGateway(ctx context.Context, credentialsFile, tokenFile string, logger *zap.Logger) (*GmailGateway, error) {
	g := &GmailGateway{
		logger:          logger,
		credentialsFile: credentialsFile,
		tokenFile:       tokenFile,
	}

	svc, err := g.buildService(ctx)
	if err != nil {
		return nil, err
	}
	g.svc = svc

	return g, nil
}

func (g *GmailGateway) buildService(ctx context.Context) (*gmail.Service, error) {
	b, err := os.ReadFile(g.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading gmail client secret file: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailModifyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing gmail client secret file: %w", err)
	}

	tok, err := tokenFromFile(g.tokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading gmail token file: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(oauthConfig.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}

	return svc, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}

	return tok, nil
}

// do runs fn against the current service, rebuilding the service and retrying
// exactly once when the failure looks like a transport fault.
func (g *GmailGateway) do(ctx context.Context, op string, fn func(svc *gmail.Service) error) error {
	g.mu.Lock()
	svc := g.svc
	g.mu.Unlock()

	err := fn(svc)
	if err == nil || !isTransient(err) {
		return err
	}

	g.logger.Warn("gmail call failed, rebuilding service and retrying once",
		zap.String("op", op),
		zap.Error(err),
	)

	fresh, buildErr := g.buildService(ctx)
	if buildErr != nil {
		return fmt.Errorf("%s: %w (service rebuild also failed: %v)", op, err, buildErr)
	}

	g.mu.Lock()
	g.svc = fresh
	g.mu.Unlock()

	if err := fn(fresh); err != nil {
		return fmt.Errorf("%s after retry: %w", op, err)
	}

	return nil
}

func isTransient(err error) bool {
	// A cancelled or expired context is terminal; rebuilding the service and
	// retrying with it would be wasted work.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= http.StatusInternalServerError
	}
	// Remaining non-API errors are connection-level faults (reset, TLS, timeout).
	return true
}

func (g *GmailGateway) Search(ctx context.Context, recipient string, unreadOnly bool) ([]MessageSummary, error) {
	query := fmt.Sprintf("to:%s", recipient)
	if unreadOnly {
		query += " is:unread"
	}

	var summaries []MessageSummary
	err := g.do(ctx, "search", func(svc *gmail.Service) error {
		list, err := svc.Users.Messages.List(gmailUser).Q(query).MaxResults(searchMaxResults).Context(ctx).Do()
		if err != nil {
			return err
		}

		summaries = summaries[:0]
		for _, m := range list.Messages {
			meta, err := svc.Users.Messages.Get(gmailUser, m.Id).
				Format("metadata").
				MetadataHeaders("Subject", "From", "To").
				Context(ctx).Do()
			if err != nil {
				return err
			}

			headers := headerMap(meta.Payload)
			summaries = append(summaries, MessageSummary{
				ID:        MessageID(m.Id),
				Recipient: headers["To"],
				Sender:    headers["From"],
				Subject:   headers["Subject"],
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("searching messages for %s: %w", recipient, err)
	}

	return summaries, nil
}

func (g *GmailGateway) Read(ctx context.Context, id MessageID) (*InboundMessage, error) {
	var msg *InboundMessage
	err := g.do(ctx, "read", func(svc *gmail.Service) error {
		full, err := svc.Users.Messages.Get(gmailUser, string(id)).Format("full").Context(ctx).Do()
		if err != nil {
			return err
		}

		headers := headerMap(full.Payload)
		msg = &InboundMessage{
			ID:        id,
			ThreadID:  full.ThreadId,
			Recipient: headers["To"],
			Sender:    headers["From"],
			Subject:   headers["Subject"],
		}

		collectParts(full.Payload, msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading message %s: %w", id, err)
	}

	return msg, nil
}

func (g *GmailGateway) Download(ctx context.Context, id MessageID, ref string) ([]byte, error) {
	var data []byte
	err := g.do(ctx, "download", func(svc *gmail.Service) error {
		att, err := svc.Users.Messages.Attachments.Get(gmailUser, string(id), ref).Context(ctx).Do()
		if err != nil {
			return err
		}

		decoded, err := base64.URLEncoding.DecodeString(att.Data)
		if err != nil {
			return fmt.Errorf("decoding attachment data: %w", err)
		}

		data = decoded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("downloading attachment of %s: %w", id, err)
	}

	return data, nil
}

func (g *GmailGateway) CreateDraft(ctx context.Context, d Draft) (string, error) {
	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", encodeAddressHeader(d.To))
	fmt.Fprintf(&raw, "Subject: %s\r\n", mime.QEncoding.Encode("UTF-8", d.Subject))
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(d.Body)

	draft := &gmail.Draft{
		Message: &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString([]byte(raw.String())),
		},
	}

	// Threading: prefer the real thread id, fall back to the original message
	// id which Gmail accepts when the message opened the thread.
	switch {
	case d.ThreadID != "":
		draft.Message.ThreadId = d.ThreadID
	case d.InReplyTo != "":
		draft.Message.ThreadId = string(d.InReplyTo)
	}

	var draftID string
	err := g.do(ctx, "create_draft", func(svc *gmail.Service) error {
		created, err := svc.Users.Drafts.Create(gmailUser, draft).Context(ctx).Do()
		if err != nil {
			return err
		}
		draftID = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("creating draft to %s: %w", d.To, err)
	}

	return draftID, nil
}

func (g *GmailGateway) MarkRead(ctx context.Context, id MessageID) error {
	err := g.do(ctx, "mark_read", func(svc *gmail.Service) error {
		_, err := svc.Users.Messages.Modify(gmailUser, string(id), &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{"UNREAD"},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("marking message %s as read: %w", id, err)
	}

	return nil
}

// encodeAddressHeader re-serializes an address header value so a non-ASCII
// display name comes out RFC 2047 encoded. Unparseable input is passed through.
func encodeAddressHeader(raw string) string {
	addr, err := netmail.ParseAddress(raw)
	if err != nil {
		return raw
	}
	return addr.String()
}

func headerMap(payload *gmail.MessagePart) map[string]string {
	headers := make(map[string]string)
	if payload == nil {
		return headers
	}
	for _, h := range payload.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

// collectParts walks the MIME tree extracting the plain-text body and any
// attachments carrying a filename.
func collectParts(payload *gmail.MessagePart, msg *InboundMessage) {
	if payload == nil {
		return
	}

	if payload.Filename != "" && payload.Body != nil {
		msg.Attachments = append(msg.Attachments, Attachment{
			Filename:  payload.Filename,
			MimeType:  payload.MimeType,
			Ref:       payload.Body.AttachmentId,
			SizeBytes: payload.Body.Size,
		})
	} else if msg.Body == "" && payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			msg.Body = string(data)
		}
	}

	for _, part := range payload.Parts {
		collectParts(part, msg)
	}
}
