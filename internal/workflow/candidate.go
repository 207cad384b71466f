package workflow

import (
	"context"
	"fmt"

	"github.com/hellio/hr-mailroom/internal/ai"
	"github.com/hellio/hr-mailroom/internal/hellio"
	"github.com/hellio/hr-mailroom/internal/mail"
	"go.uber.org/zap"
)

// runCandidate handles a message to the candidates address: ingest the CV
// attachment, rank positions for the new candidate, pick a reply template by
// similarity tier, draft the reply and notify the reviewer. Without an
// attachment the path short-circuits to a CV request draft.
func (e *Engine) runCandidate(ctx context.Context, log *zap.Logger, msg *mail.InboundMessage) error {
	name := senderName(msg.Sender)

	if len(msg.Attachments) == 0 {
		return e.requestCV(ctx, log, msg, name)
	}

	// The first attachment is the CV; download and ingest as one unit.
	att := msg.Attachments[0]
	fileBytes, err := e.mailbox.Download(ctx, msg.ID, att.Ref)
	if err != nil {
		return err
	}

	result, err := e.backend.IngestCV(ctx, fileBytes, att.Filename)
	if err != nil {
		return err
	}
	if result.EntityName != "" {
		name = result.EntityName
	}

	matches, err := e.backend.SuggestPositionsForCandidate(ctx, result.EntityID)
	if err != nil {
		return err
	}

	templateID := SelectTemplate(matches)
	log.Info("selected reply template",
		zap.String("candidate_id", result.EntityID),
		zap.String("template", string(templateID)),
		zap.Int("match_count", len(matches)),
	)

	data := candidateReplyData(templateID, name, matches)
	body, err := renderReply(templateID, data)
	if err != nil {
		return err
	}

	draftID, err := e.createDraft(ctx, log, msg, replySubject(templateID, data), body, ai.DraftFacts{
		Category:     string(hellio.CategoryCandidate),
		Template:     string(templateID),
		SenderName:   name,
		EntityName:   data.Position,
		MatchedNames: matchNames(matches),
		Summary:      result.Summary,
	})
	if err != nil {
		return err
	}

	notification := &hellio.Notification{
		Type:        hellio.NotificationNewCandidate,
		Summary:     fmt.Sprintf("New candidate: %s. Action: Review draft email in Gmail and send.", name),
		ActionURL:   "/candidates/" + result.EntityID,
		CandidateID: result.EntityID,
		DraftID:     draftID,
		Metadata: map[string]any{
			"template":    string(templateID),
			"match_count": len(matches),
		},
	}
	if err := e.backend.CreateNotification(ctx, notification); err != nil {
		return err
	}

	record := &hellio.ProcessedRecord{
		MessageID:   string(msg.ID),
		Category:    hellio.CategoryCandidate,
		Action:      hellio.ActionIngested,
		Summary:     fmt.Sprintf("Ingested CV for %s, replied with %s template", name, templateID),
		CandidateID: result.EntityID,
		DraftID:     draftID,
	}
	return e.finalize(ctx, log, msg.ID, record)
}

// requestCV drafts a reply asking for the missing CV. No ingestion is
// attempted; the message is committed as draft_created and marked read.
func (e *Engine) requestCV(ctx context.Context, log *zap.Logger, msg *mail.InboundMessage, name string) error {
	data := replyData{SenderName: name}
	body, err := renderReply(TemplateRequestCV, data)
	if err != nil {
		return err
	}

	draftID, err := e.createDraft(ctx, log, msg, replySubject(TemplateRequestCV, data), body, ai.DraftFacts{
		Category:   string(hellio.CategoryCandidate),
		Template:   string(TemplateRequestCV),
		SenderName: name,
	})
	if err != nil {
		return err
	}

	notification := &hellio.Notification{
		Type:    hellio.NotificationMissingInfo,
		Summary: fmt.Sprintf("Missing CV from %s. Action: Review draft requesting CV in Gmail.", msg.Sender),
		DraftID: draftID,
	}
	if err := e.backend.CreateNotification(ctx, notification); err != nil {
		return err
	}

	record := &hellio.ProcessedRecord{
		MessageID: string(msg.ID),
		Category:  hellio.CategoryCandidate,
		Action:    hellio.ActionDraftCreated,
		Summary:   fmt.Sprintf("No CV attached; drafted a request to %s", msg.Sender),
		DraftID:   draftID,
	}
	return e.finalize(ctx, log, msg.ID, record)
}

// candidateReplyData fills the template slots the selected tier needs: the
// best match's name for strong/potential/weak replies, the remaining match
// names as alternatives for the weak-with-alternatives reply.
func candidateReplyData(id TemplateID, name string, matches []hellio.MatchSuggestion) replyData {
	data := replyData{SenderName: name}

	if len(matches) > 0 {
		data.Position = matches[0].EntityName
	}
	if id == TemplateWeakWithAlternatives && len(matches) > 1 {
		data.Alternatives = matchNames(matches[1:])
	}

	return data
}

func matchNames(matches []hellio.MatchSuggestion) []string {
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.EntityName)
	}
	return names
}
