package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	_ "embed"

	"github.com/hellio/hr-mailroom/internal/ai"
	"github.com/hellio/hr-mailroom/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

//go:embed prompt.md
var promptTemplate string

const (
	defaultModel        = "gemini-2.5-flash"
	defaultMaxRetries   = 2
	defaultMaxLogLength = 200
)

// sleep is a variable so tests can disable retry backoff.
var sleep = time.Sleep

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (g *genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return g.client.Chats.Create(ctx, model, config, history)
}

// Composer rewrites template reply bodies via the Gemini API. It holds one
// chat session at a time; Reset discards it so the next request starts clean.
type Composer struct {
	chats      chatCreator
	model      string
	maxRetries int
	maxLogLen  int
	logger     *zap.Logger

	mu      sync.Mutex
	session chatSession
}

// NewComposer creates a Gemini-backed composer.
func NewComposer(ctx context.Context, apiKey, model string, maxRetries, maxLogLength int, log *zap.Logger) (*Composer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Composer{
		chats:      &genaiChats{client: client},
		model:      model,
		maxRetries: maxRetries,
		maxLogLen:  maxLogLength,
		logger:     log,
	}, nil
}

// Polish sends the draft body and facts to Gemini and returns the rewritten
// body. Callers keep the original body when an error is returned.
func (c *Composer) Polish(ctx context.Context, subject, body string, facts ai.DraftFacts) (string, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal draft facts: %w", err)
	}

	prompt := strings.ReplaceAll(promptTemplate, "{{SUBJECT}}", subject)
	prompt = strings.ReplaceAll(prompt, "{{BODY}}", body)
	prompt = strings.ReplaceAll(prompt, "{{FACTS_JSON}}", string(factsJSON))

	c.logger.Debug("gemini polish request",
		zap.String("template", facts.Template),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.send(ctx, prompt)
	if err != nil {
		return "", err
	}

	c.logger.Debug("gemini polish response",
		zap.String("template", facts.Template),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, c.maxLogLen)),
	)

	polished := stripFences(raw)
	if polished == "" {
		return "", errors.New("gemini returned an empty body")
	}

	return polished, nil
}

// Reset drops the current chat session. The poll scheduler calls this on its
// cycle watermark to bound context growth.
func (c *Composer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.logger.Debug("discarding gemini chat session")
	}
	c.session = nil
}

func (c *Composer) send(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			sleep(time.Duration(attempt) * time.Second)
		}

		session, err := c.currentSession(ctx)
		if err != nil {
			return "", err
		}

		resp, err := session.SendMessage(ctx, genai.Part{Text: prompt})
		if err != nil {
			lastErr = err
			if !isTemporary(err) {
				return "", fmt.Errorf("gemini send: %w", err)
			}
			// A failed session is not worth keeping.
			c.Reset()
			continue
		}

		text := responseText(resp)
		if text == "" {
			lastErr = errors.New("gemini api returned empty response")
			continue
		}

		return text, nil
	}

	return "", fmt.Errorf("gemini send after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Composer) currentSession(ctx context.Context) (chatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}

	session, err := c.chats.Create(ctx, c.model, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create gemini chat: %w", err)
	}

	c.session = session
	return session, nil
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
