package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/hellio/hr-mailroom/internal/ai"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

func init() {
	// Disable retry backoff in tests.
	sleep = func(time.Duration) {}
}

type fakeSession struct {
	responses []*genai.GenerateContentResponse
	errs      []error
	calls     int
}

func (f *fakeSession) SendMessage(_ context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		return nil, errors.New("no more responses scripted")
	}
	return f.responses[i], f.errs[i]
}

type fakeChats struct {
	session   *fakeSession
	createErr error
	creates   int
}

func (f *fakeChats) Create(_ context.Context, _ string, _ *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.session, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func newTestComposer(chats chatCreator) *Composer {
	return &Composer{
		chats:      chats,
		model:      defaultModel,
		maxRetries: defaultMaxRetries,
		maxLogLen:  defaultMaxLogLength,
		logger:     zap.NewNop(),
	}
}

func TestPolish(t *testing.T) {
	session := &fakeSession{
		responses: []*genai.GenerateContentResponse{textResponse("Dear Jane,\n\nWarm regards")},
		errs:      []error{nil},
	}
	composer := newTestComposer(&fakeChats{session: session})

	got, err := composer.Polish(context.Background(), "Your Application", "Dear Jane,", ai.DraftFacts{
		Template:   "strong_match",
		SenderName: "Jane",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Dear Jane,\n\nWarm regards" {
		t.Fatalf("unexpected body: %q", got)
	}
	if session.calls != 1 {
		t.Fatalf("expected 1 send, got %d", session.calls)
	}
}

func TestPolishStripsCodeFences(t *testing.T) {
	session := &fakeSession{
		responses: []*genai.GenerateContentResponse{textResponse("```text\nDear Jane,\n```")},
		errs:      []error{nil},
	}
	composer := newTestComposer(&fakeChats{session: session})

	got, err := composer.Polish(context.Background(), "s", "b", ai.DraftFacts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Dear Jane," {
		t.Fatalf("fences not stripped: %q", got)
	}
}

func TestPolishRetriesTemporaryError(t *testing.T) {
	session := &fakeSession{
		responses: []*genai.GenerateContentResponse{nil, textResponse("recovered")},
		errs:      []error{genai.APIError{Code: http.StatusServiceUnavailable}, nil},
	}
	chats := &fakeChats{session: session}
	composer := newTestComposer(chats)

	got, err := composer.Polish(context.Background(), "s", "b", ai.DraftFacts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "recovered" {
		t.Fatalf("unexpected body: %q", got)
	}
	// The failed session is dropped; the retry creates a fresh one.
	if chats.creates != 2 {
		t.Fatalf("expected 2 session creates, got %d", chats.creates)
	}
}

func TestPolishPermanentErrorFailsFast(t *testing.T) {
	session := &fakeSession{
		responses: []*genai.GenerateContentResponse{nil},
		errs:      []error{genai.APIError{Code: http.StatusBadRequest}},
	}
	composer := newTestComposer(&fakeChats{session: session})

	_, err := composer.Polish(context.Background(), "s", "b", ai.DraftFacts{})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if session.calls != 1 {
		t.Fatalf("a permanent error must not be retried, got %d sends", session.calls)
	}
}

func TestPolishGivesUpAfterMaxRetries(t *testing.T) {
	tempErr := genai.APIError{Code: http.StatusTooManyRequests}
	session := &fakeSession{
		responses: []*genai.GenerateContentResponse{nil, nil, nil},
		errs:      []error{tempErr, tempErr, tempErr},
	}
	composer := newTestComposer(&fakeChats{session: session})

	_, err := composer.Polish(context.Background(), "s", "b", ai.DraftFacts{})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResetRecreatesSession(t *testing.T) {
	session := &fakeSession{
		responses: []*genai.GenerateContentResponse{textResponse("one"), textResponse("two")},
		errs:      []error{nil, nil},
	}
	chats := &fakeChats{session: session}
	composer := newTestComposer(chats)

	if _, err := composer.Polish(context.Background(), "s", "b", ai.DraftFacts{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	composer.Reset()
	if _, err := composer.Polish(context.Background(), "s", "b", ai.DraftFacts{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chats.creates != 2 {
		t.Fatalf("reset must force a new session, got %d creates", chats.creates)
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain body", "plain body"},
		{"```\nfenced\n```", "fenced"},
		{"```text\nfenced\n```", "fenced"},
		{"  \n  padded  \n", "padded"},
	}

	for _, tt := range tests {
		if got := stripFences(tt.in); got != tt.want {
			t.Fatalf("stripFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
