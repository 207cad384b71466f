package workflow

import (
	"context"
	"fmt"

	"github.com/hellio/hr-mailroom/internal/ai"
	"github.com/hellio/hr-mailroom/internal/hellio"
	"github.com/hellio/hr-mailroom/internal/mail"
	"go.uber.org/zap"
)

const postingFilename = "job_posting.txt"

// runPosition handles a message to the positions address: validate the
// mandatory fields, ingest the body as the posting document, rank candidates
// for the new position and draft a confirmation for the hiring manager.
func (e *Engine) runPosition(ctx context.Context, log *zap.Logger, msg *mail.InboundMessage) error {
	name := senderName(msg.Sender)
	fields := InspectPosting(msg.Subject, msg.Body)

	if !fields.Sufficient() {
		return e.requestJobInfo(ctx, log, msg, name, fields)
	}

	result, err := e.backend.IngestJob(ctx, []byte(msg.Body), postingFilename)
	if err != nil {
		return err
	}

	title := result.EntityName
	if title == "" {
		title = fields.Title
	}

	matches, err := e.backend.SuggestCandidatesForPosition(ctx, result.EntityID)
	if err != nil {
		return err
	}

	log.Info("position ingested",
		zap.String("position_id", result.EntityID),
		zap.String("title", title),
		zap.Int("match_count", len(matches)),
		zap.Strings("missing_optional_fields", fields.MissingOptional),
	)

	data := replyData{
		SenderName:        name,
		Position:          title,
		MatchedCandidates: matchNames(matches),
		MissingFields:     fields.MissingOptional,
	}
	body, err := renderReply(TemplatePositionActive, data)
	if err != nil {
		return err
	}

	draftID, err := e.createDraft(ctx, log, msg, replySubject(TemplatePositionActive, data), body, ai.DraftFacts{
		Category:     string(hellio.CategoryPosition),
		Template:     string(TemplatePositionActive),
		SenderName:   name,
		EntityName:   title,
		MatchedNames: data.MatchedCandidates,
		Summary:      result.Summary,
	})
	if err != nil {
		return err
	}

	notification := &hellio.Notification{
		Type:       hellio.NotificationNewPosition,
		Summary:    fmt.Sprintf("New position: %s. %d candidates matched. Action: Review draft in Gmail and send.", title, len(matches)),
		ActionURL:  "/positions/" + result.EntityID,
		PositionID: result.EntityID,
		DraftID:    draftID,
		Metadata: map[string]any{
			"match_count":    len(matches),
			"missing_fields": fields.MissingOptional,
		},
	}
	if err := e.backend.CreateNotification(ctx, notification); err != nil {
		return err
	}

	record := &hellio.ProcessedRecord{
		MessageID:  string(msg.ID),
		Category:   hellio.CategoryPosition,
		Action:     hellio.ActionIngested,
		Summary:    fmt.Sprintf("Ingested position %q, %d candidates matched", title, len(matches)),
		PositionID: result.EntityID,
		DraftID:    draftID,
	}
	return e.finalize(ctx, log, msg.ID, record)
}

// requestJobInfo drafts a reply asking for the details a posting cannot be
// ingested without. Legitimate branch, not a failure: the message is
// committed as draft_created and marked read.
func (e *Engine) requestJobInfo(ctx context.Context, log *zap.Logger, msg *mail.InboundMessage, name string, fields PostingFields) error {
	var missing []string
	if fields.Title == "" {
		missing = append(missing, "the job title or a clear role description")
	}
	if !fields.HasRequirements {
		missing = append(missing, "the key skills or requirements for the role")
	}

	data := replyData{SenderName: name, MissingFields: missing}
	body, err := renderReply(TemplateRequestJobInfo, data)
	if err != nil {
		return err
	}

	draftID, err := e.createDraft(ctx, log, msg, replySubject(TemplateRequestJobInfo, data), body, ai.DraftFacts{
		Category:   string(hellio.CategoryPosition),
		Template:   string(TemplateRequestJobInfo),
		SenderName: name,
	})
	if err != nil {
		return err
	}

	notification := &hellio.Notification{
		Type:    hellio.NotificationMissingInfo,
		Summary: fmt.Sprintf("Job posting from %s is missing %s. Action: Review draft requesting details in Gmail.", msg.Sender, joinAnd(missing)),
		DraftID: draftID,
	}
	if err := e.backend.CreateNotification(ctx, notification); err != nil {
		return err
	}

	record := &hellio.ProcessedRecord{
		MessageID: string(msg.ID),
		Category:  hellio.CategoryPosition,
		Action:    hellio.ActionDraftCreated,
		Summary:   fmt.Sprintf("Posting lacked mandatory fields; drafted an information request to %s", msg.Sender),
		DraftID:   draftID,
	}
	return e.finalize(ctx, log, msg.ID, record)
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return "details"
	case 1:
		return items[0]
	default:
		return items[0] + " and " + items[1]
	}
}
