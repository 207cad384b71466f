package mail

// MessageID is the provider-assigned message identifier.
type MessageID string

// MessageSummary is the lightweight listing form of a message, enough to
// decide whether it needs processing without fetching the full payload.
type MessageSummary struct {
	ID        MessageID
	Recipient string
	Sender    string
	Subject   string
}

// Attachment describes a single file attached to an inbound message. Ref is
// the opaque provider handle used to download the content.
type Attachment struct {
	Filename  string
	MimeType  string
	Ref       string
	SizeBytes int64
}

// InboundMessage is a fully read message. Immutable once read.
type InboundMessage struct {
	ID          MessageID
	ThreadID    string
	Recipient   string
	Sender      string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Draft is an unsent reply prepared for human review. InReplyTo carries the
// originating message id so the reply lands in the same conversation thread.
type Draft struct {
	To        string
	Subject   string
	Body      string
	InReplyTo MessageID
	ThreadID  string
}
