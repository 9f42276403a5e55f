package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"google.golang.org/genai"

	"github/vikram-s/docchat/models"
)

// minContextChars filters out retrieval noise: a context shorter than this is
// treated as no context at all.
const minContextChars = 40

// DefaultRetryAttempts caps total completion attempts, including the first.
const DefaultRetryAttempts = 3

// ChatCompleter is the narrow boundary to the chat-completion service.
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// RetryPolicy bounds completion attempts. Backoff, when set, returns the
// delay before the given 1-based retry attempt; nil means immediate retry.
type RetryPolicy struct {
	Attempts int
	Backoff  func(attempt int) time.Duration
}

// DefaultRetryPolicy retries immediately with no delay. Callers that talk to
// a struggling service should set Backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: DefaultRetryAttempts}
}

// Responder produces a single grounded (or generic) assistant reply.
type Responder interface {
	Answer(ctx context.Context, docContext, userMessage string) (*models.ChatResponse, error)
}

type responderImpl struct {
	completer ChatCompleter
	retry     RetryPolicy
}

func NewResponder(completer ChatCompleter, retry RetryPolicy) Responder {
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &responderImpl{completer: completer, retry: retry}
}

// Answer implements Responder. The grounded/generic branch is reported back
// through HasContext so callers and tests can observe it.
func (r *responderImpl) Answer(ctx context.Context, docContext, userMessage string) (*models.ChatResponse, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, fmt.Errorf("%w: missing user message", ErrInvalidRequest)
	}

	hasContext := len(strings.TrimSpace(docContext)) >= minContextChars
	systemPrompt := GenericSystemPrompt
	if hasContext {
		systemPrompt = GroundedSystemPrompt(docContext)
	}

	var lastErr error
	for attempt := 1; attempt <= r.retry.Attempts; attempt++ {
		if attempt > 1 && r.retry.Backoff != nil {
			select {
			case <-time.After(r.retry.Backoff(attempt - 1)):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGeneration, ctx.Err())
			}
		}

		raw, err := r.completer.Complete(ctx, systemPrompt, userMessage)
		if err != nil {
			lastErr = err
			log.Printf("RESPOND WARN: completion attempt %d/%d failed: %v", attempt, r.retry.Attempts, err)
			continue
		}

		parsed := ParseReply(raw, "answer")
		return &models.ChatResponse{Answer: parsed.Value(), HasContext: hasContext}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrGeneration, r.retry.Attempts, lastErr)
}

// ParsedReply is the explicit result of the dual-mode reply parse: either a
// JSON object or plain text, never an error.
type ParsedReply struct {
	JSON  map[string]interface{}
	Text  string
	field string
}

// ParseReply leniently interprets a raw model reply. If it parses as a JSON
// object containing the requested field with a string value, that field is
// the answer; anything else is returned verbatim as plain text.
func ParseReply(raw, field string) ParsedReply {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			return ParsedReply{JSON: obj, Text: raw, field: field}
		}
	}
	return ParsedReply{Text: raw, field: field}
}

// IsJSON reports whether the reply parsed as a JSON object.
func (p ParsedReply) IsJSON() bool { return p.JSON != nil }

// Value returns the designated field for JSON replies, falling back to the
// raw text when the field is absent or not a string.
func (p ParsedReply) Value() string {
	if p.JSON != nil {
		if v, ok := p.JSON[p.field].(string); ok {
			return v
		}
	}
	return p.Text
}

// completionCallTimeout caps a single Gemini round trip; the retry loop in
// Answer handles what the deadline cuts off.
const completionCallTimeout = 30 * time.Second

// GeminiCompleter implements ChatCompleter against Google Gemini.
type GeminiCompleter struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGeminiCompleter(client *genai.Client, model string, temperature float32) *GeminiCompleter {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiCompleter{client: client, model: model, temperature: temperature}
}

// Complete implements ChatCompleter with a single-turn generation call.
func (g *GeminiCompleter) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, completionCallTimeout)
	defer cancel()

	temp := g.temperature
	config := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if contents := genai.Text(systemPrompt); len(contents) > 0 {
		config.SystemInstruction = contents[0]
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userMessage), config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini api call failed: %v", ErrGeneration, err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini returned no candidates", ErrGeneration)
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	return responseText.String(), nil
}
