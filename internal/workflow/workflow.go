package workflow

import (
	"context"
	"fmt"

	"github.com/hellio/hr-mailroom/internal/ai"
	"github.com/hellio/hr-mailroom/internal/hellio"
	"github.com/hellio/hr-mailroom/internal/mail"
	"go.uber.org/zap"
)

// Backend is the Hellio surface the engine depends on. *hellio.Client
// implements it.
type Backend interface {
	RecordExists(ctx context.Context, messageID string) (bool, error)
	CommitRecord(ctx context.Context, record *hellio.ProcessedRecord) error
	CreateNotification(ctx context.Context, n *hellio.Notification) error
	IngestCV(ctx context.Context, fileBytes []byte, filename string) (*hellio.IngestionResult, error)
	IngestJob(ctx context.Context, textBytes []byte, filename string) (*hellio.IngestionResult, error)
	SuggestPositionsForCandidate(ctx context.Context, candidateID string) ([]hellio.MatchSuggestion, error)
	SuggestCandidatesForPosition(ctx context.Context, positionID string) ([]hellio.MatchSuggestion, error)
}

// Engine drives one message at a time through classification, ingestion,
// matching, drafting, notification and commit. Strictly sequential; the
// ledger check-then-commit is race-free because exactly one engine runs.
type Engine struct {
	mailbox        mail.Gateway
	backend        Backend
	composer       ai.Composer // nil disables LLM polish
	candidatesAddr string
	positionsAddr  string
	logger         *zap.Logger
}

// NewEngine wires the workflow engine. composer may be nil.
func NewEngine(mailbox mail.Gateway, backend Backend, composer ai.Composer, candidatesAddr, positionsAddr string, logger *zap.Logger) *Engine {
	return &Engine{
		mailbox:        mailbox,
		backend:        backend,
		composer:       composer,
		candidatesAddr: candidatesAddr,
		positionsAddr:  positionsAddr,
		logger:         logger,
	}
}

// ProcessNext lists unread messages for both monitored addresses and runs the
// workflow for the first one without a ledger record. At most one message is
// handled per call so each ingestion/matching run stays small and auditable.
// Returns whether a message was dispatched.
func (e *Engine) ProcessNext(ctx context.Context) (bool, error) {
	for _, addr := range []string{e.candidatesAddr, e.positionsAddr} {
		summaries, err := e.mailbox.Search(ctx, addr, true)
		if err != nil {
			return false, fmt.Errorf("searching unread messages: %w", err)
		}

		for _, summary := range summaries {
			exists, err := e.backend.RecordExists(ctx, string(summary.ID))
			if err != nil {
				return false, err
			}
			if exists {
				e.logger.Debug("message already processed, skipping",
					zap.String("message_id", string(summary.ID)),
				)
				continue
			}

			if err := e.Process(ctx, summary); err != nil {
				// The message stays unread and uncommitted; next cycle
				// retries it. The abort already left an audit trail.
				return true, err
			}
			return true, nil
		}
	}

	return false, nil
}

// Process runs the full workflow for a single message. On any failure before
// commit it emits an error notification and returns without committing or
// marking read, leaving the message retryable.
func (e *Engine) Process(ctx context.Context, summary mail.MessageSummary) error {
	msg, err := e.mailbox.Read(ctx, summary.ID)
	if err != nil {
		return e.abort(ctx, summary.Sender, err)
	}

	category := Classify(msg.Recipient, e.candidatesAddr, e.positionsAddr)
	log := e.logger.With(
		zap.String("message_id", string(msg.ID)),
		zap.String("category", string(category)),
		zap.String("sender", msg.Sender),
	)
	log.Info("processing message", zap.String("subject", msg.Subject))

	switch category {
	case hellio.CategoryCandidate:
		err = e.runCandidate(ctx, log, msg)
	case hellio.CategoryPosition:
		err = e.runPosition(ctx, log, msg)
	default:
		err = e.runOther(ctx, log, msg)
	}

	if err != nil {
		return e.abort(ctx, msg.Sender, err)
	}

	return nil
}

// runOther handles mail to an unmonitored recipient: record it as skipped and
// mark it read. No ingestion, matching, or draft.
func (e *Engine) runOther(ctx context.Context, log *zap.Logger, msg *mail.InboundMessage) error {
	record := &hellio.ProcessedRecord{
		MessageID: string(msg.ID),
		Category:  hellio.CategoryOther,
		Action:    hellio.ActionSkipped,
		Summary:   fmt.Sprintf("Not an HR email: addressed to %s", msg.Recipient),
	}

	return e.finalize(ctx, log, msg.ID, record)
}

// abort is the single failure exit: log, leave an error notification for the
// human reviewer, and surface the original error. Never commits.
func (e *Engine) abort(ctx context.Context, sender string, cause error) error {
	e.logger.Error("workflow aborted", zap.String("sender", sender), zap.Error(cause))

	n := &hellio.Notification{
		Type:    hellio.NotificationError,
		Summary: fmt.Sprintf("Failed to process email from %s: %v", sender, cause),
	}
	if err := e.backend.CreateNotification(ctx, n); err != nil {
		e.logger.Error("could not record error notification", zap.Error(err))
	}

	return cause
}

// finalize performs the terminal success pair: commit the ledger record, then
// mark the message read. Commit failure after completed side effects is a
// known inconsistency risk (the next cycle would repeat drafts), so it is
// flagged loudly for manual reconciliation. A mark-read failure after commit
// is the opposite, accepted skew: the record wins and the message is simply
// left unread.
func (e *Engine) finalize(ctx context.Context, log *zap.Logger, id mail.MessageID, record *hellio.ProcessedRecord) error {
	if err := e.backend.CommitRecord(ctx, record); err != nil {
		log.Error("commit failed after side effects completed; manual reconciliation required to avoid duplicate drafts",
			zap.String("action", string(record.Action)),
			zap.Error(err),
		)
		return err
	}

	if err := e.mailbox.MarkRead(ctx, id); err != nil {
		log.Error("message committed but could not be marked read; it will not be retried",
			zap.Error(err),
		)
		return nil
	}

	log.Info("message processed",
		zap.String("action", string(record.Action)),
		zap.String("candidate_id", record.CandidateID),
		zap.String("position_id", record.PositionID),
	)
	return nil
}

// createDraft renders the reply into a Gmail draft threaded to the original
// message, optionally passing the body through the composer first. Polish
// failures degrade to the deterministic template body.
func (e *Engine) createDraft(ctx context.Context, log *zap.Logger, msg *mail.InboundMessage, subject, body string, facts ai.DraftFacts) (string, error) {
	if e.composer != nil {
		polished, err := e.composer.Polish(ctx, subject, body, facts)
		if err != nil {
			log.Warn("composer failed, keeping template body", zap.Error(err))
		} else {
			body = polished
		}
	}

	return e.mailbox.CreateDraft(ctx, mail.Draft{
		To:        msg.Sender,
		Subject:   subject,
		Body:      body,
		InReplyTo: msg.ID,
		ThreadID:  msg.ThreadID,
	})
}
