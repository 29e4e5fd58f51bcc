package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hermes-crm/hermes/config"
	"github.com/hermes-crm/hermes/models"
)

// Content is the produced greeting text.
type Content struct {
	Tone    string
	Subject string
	Body    string
}

// ContentRequest carries the facts a producer may use. Contact details
// (email, phone) are deliberately not part of the allowed facts.
type ContentRequest struct {
	Client *models.Client
	Event  *models.Event
}

// ContentError signals that a producer returned output violating the
// content contract.
type ContentError struct {
	Stage string
	Err   error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content %s: %v", e.Stage, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// Content contract bounds, in runes.
const (
	subjectMinLen = 6
	subjectMaxLen = 80
	bodyMinLen    = 100
	bodyMaxLen    = 2000
)

// forbiddenSubstrings is a lightweight content safety list. Matches are
// checked case-insensitively against both subject and body.
var forbiddenSubstrings = []string{
	"passport",
	"card number",
	"cvv",
	"cvc",
	"pin code",
}

// ContentService produces greeting subject and body for an event.
type ContentService interface {
	Produce(ctx context.Context, req ContentRequest) (Content, error)
}

// TemplateContentService is the deterministic producer. It renders a
// fixed template chosen by client segment and event type plus a short
// personalization line built from allowed facts only.
type TemplateContentService struct{}

// NewTemplateContentService creates the deterministic template producer
func NewTemplateContentService() ContentService {
	return &TemplateContentService{}
}

// Produce renders the template for the request
func (s *TemplateContentService) Produce(ctx context.Context, req ContentRequest) (Content, error) {
	if req.Client == nil || req.Event == nil {
		return Content{}, &ContentError{Stage: "template", Err: errors.New("client and event are required")}
	}

	c := chooseTemplate(req.Client.Segment, req.Event.EventType, req.Client, req.Event.Title)
	c.Body += personalizationLine(req.Client)

	if err := checkForbidden(c.Subject); err != nil {
		return Content{}, &ContentError{Stage: "guardrail", Err: err}
	}
	if err := checkForbidden(c.Body); err != nil {
		return Content{}, &ContentError{Stage: "guardrail", Err: err}
	}

	return c, nil
}

func chooseTemplate(segment models.ClientSegment, eventType models.EventType, client *models.Client, title string) Content {
	firstName := client.FirstName
	fullName := client.FullName()

	if eventType == models.EventTypeBirthday {
		if segment == models.ClientSegmentVIP {
			return Content{
				Tone:    models.ToneOfficial,
				Subject: fmt.Sprintf("Happy birthday, %s!", firstName),
				Body: fmt.Sprintf(
					"%s,\n\nPlease accept our sincere congratulations on your birthday. "+
						"We wish you good health, confident decisions and new achievements in the year ahead.\n\n"+
						"With respect,\nThe Hermes team", fullName),
			}
		}
		return Content{
			Tone:    models.ToneWarm,
			Subject: fmt.Sprintf("%s, happy birthday!", firstName),
			Body: fmt.Sprintf(
				"%s,\n\nHappy birthday! May this year bring you inspiration, bright successes "+
					"and plenty of good reasons to celebrate.\n\n"+
					"With warm regards,\nThe Hermes team", firstName),
		}
	}

	if segment == models.ClientSegmentVIP {
		return Content{
			Tone:    models.ToneOfficial,
			Subject: fmt.Sprintf("Congratulations: %s", title),
			Body: fmt.Sprintf(
				"%s,\n\nWe congratulate you on the occasion of %q. "+
					"We wish you steady growth, reliable partners and successful delivery of your plans.\n\n"+
					"With respect,\nThe Hermes team", fullName, title),
		}
	}

	return Content{
		Tone:    models.ToneWarm,
		Subject: fmt.Sprintf("Congratulations on %s", title),
		Body: fmt.Sprintf(
			"%s,\n\nCongratulations on %q! May the road ahead hold more strong projects, "+
				"good decisions and pleasant occasions.\n\n"+
				"With warm regards,\nThe Hermes team", firstName, title),
	}
}

// personalizationLine builds an optional closing line from allowed facts.
// Contact data and interaction history are never surfaced here.
func personalizationLine(client *models.Client) string {
	var bits []string
	if client.CompanyName != nil && *client.CompanyName != "" {
		bits = append(bits, fmt.Sprintf("Best wishes to your team at %s.", *client.CompanyName))
	}
	if client.Position != nil && *client.Position != "" {
		bits = append(bits, fmt.Sprintf("May your work as %s keep bringing strong results.", *client.Position))
	}
	bits = append(bits, "Thank you for staying with us.")
	return "\n\n" + strings.Join(bits, " ")
}

func checkForbidden(text string) error {
	low := strings.ToLower(text)
	for _, bad := range forbiddenSubstrings {
		if strings.Contains(low, bad) {
			return fmt.Errorf("forbidden substring detected: %s", bad)
		}
	}
	return nil
}

// LLMContentService asks an OpenAI-compatible chat completions endpoint
// for strict JSON output and falls back to the deterministic template
// producer on any provider, parse or contract failure.
type LLMContentService struct {
	cfg      config.LLM
	client   *http.Client
	fallback ContentService
	logger   *log.Logger
}

// NewLLMContentService creates the LLM-backed producer
func NewLLMContentService(cfg config.LLM, fallback ContentService, logger *log.Logger) ContentService {
	return &LLMContentService{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		fallback: fallback,
		logger:   logger,
	}
}

// Produce asks the LLM for content and falls back to templates on any failure
func (s *LLMContentService) Produce(ctx context.Context, req ContentRequest) (Content, error) {
	if !s.cfg.Enabled || s.cfg.BaseURL == "" || s.cfg.APIKey == "" {
		return s.fallback.Produce(ctx, req)
	}

	content, err := s.produceLLM(ctx, req)
	if err != nil {
		if s.logger != nil {
			s.logger.Printf("llm content generation failed, using template fallback: %v", err)
		}
		return s.fallback.Produce(ctx, req)
	}
	return content, nil
}

func (s *LLMContentService) produceLLM(ctx context.Context, req ContentRequest) (Content, error) {
	if req.Client == nil || req.Event == nil {
		return Content{}, &ContentError{Stage: "request", Err: errors.New("client and event are required")}
	}

	raw, err := s.complete(ctx, systemPrompt(), userPrompt(req))
	if err != nil {
		return Content{}, err
	}

	payload, err := parseContentJSON(raw)
	if err != nil {
		return Content{}, err
	}

	content, err := payload.toContent()
	if err != nil {
		return Content{}, err
	}

	if err := checkForbidden(content.Subject); err != nil {
		return Content{}, &ContentError{Stage: "guardrail", Err: err}
	}
	if err := checkForbidden(content.Body); err != nil {
		return Content{}, &ContentError{Stage: "guardrail", Err: err}
	}

	return content, nil
}

func systemPrompt() string {
	return "You are an assistant preparing personal client greetings.\n" +
		"Critical rules:\n" +
		"- Use ONLY the facts from the FACTS block. Never invent companies, achievements or projects.\n" +
		"- Never add or request sensitive data (passport, card numbers, PIN/CVV and similar).\n" +
		"- Tone: businesslike or warm, never overly familiar, no political or controversial topics.\n" +
		"- Output EXACTLY one JSON object, no markdown and no extra text.\n"
}

func userPrompt(req ContentRequest) string {
	facts := map[string]string{
		"first_name": req.Client.FirstName,
		"last_name":  req.Client.LastName,
		"segment":    req.Client.Segment.String(),
	}
	if req.Client.CompanyName != nil {
		facts["company"] = *req.Client.CompanyName
	}
	if req.Client.Position != nil {
		facts["position"] = *req.Client.Position
	}
	factsJSON, _ := json.Marshal(facts)

	return fmt.Sprintf(
		"Generate a greeting.\n\n"+
			"FACTS (only this may be used):\n%s\n\n"+
			"CONTEXT:\n- event_type: %s\n- event_title: %s\n- event_date: %s\n- client_segment: %s\n\n"+
			"REQUIREMENTS:\n"+
			"- subject: %d..%d characters\n"+
			"- body: %d..%d characters, 2-4 paragraphs, no lists\n"+
			"- Add 1-2 personalization phrases based on FACTS (skip when data is missing)\n"+
			"- Never mention AI, models, prompts or internal processes\n\n"+
			"OUTPUT JSON schema:\n{\n  \"tone\": \"official|warm\",\n  \"subject\": \"string\",\n  \"body\": \"string\"\n}\n",
		factsJSON,
		req.Event.EventType.String(), req.Event.Title,
		req.Event.EventDate.Format("2006-01-02"), req.Client.Segment.String(),
		subjectMinLen, subjectMaxLen, bodyMinLen, bodyMaxLen,
	)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete calls the chat completions endpoint with bounded retries and
// exponential backoff.
func (s *LLMContentService) complete(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model:       s.cfg.Model,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := strings.TrimRight(s.cfg.BaseURL, "/") + "/chat/completions"

	attempts := s.cfg.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		content, err := s.completeOnce(ctx, url, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("llm request failed after %d attempts: %w", attempts, lastErr)
}

func (s *LLMContentService) completeOnce(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("llm endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("llm response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// contentPayload is the raw decoded LLM output before contract checks.
type contentPayload struct {
	Tone    string `json:"tone"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (p contentPayload) toContent() (Content, error) {
	tone := strings.TrimSpace(p.Tone)
	if tone != models.ToneOfficial && tone != models.ToneWarm {
		// Tolerate a missing or garbage tone, the text checks below
		// are the real contract.
		tone = models.ToneWarm
	}

	subject := strings.TrimSpace(p.Subject)
	body := strings.TrimSpace(p.Body)

	if n := utf8.RuneCountInString(subject); n < subjectMinLen || n > subjectMaxLen {
		return Content{}, &ContentError{Stage: "validate", Err: fmt.Errorf("subject length %d out of bounds", n)}
	}
	if n := utf8.RuneCountInString(body); n < bodyMinLen || n > bodyMaxLen {
		return Content{}, &ContentError{Stage: "validate", Err: fmt.Errorf("body length %d out of bounds", n)}
	}

	return Content{Tone: tone, Subject: subject, Body: body}, nil
}

// parseContentJSON decodes near-JSON model output. Stages are tried in
// order: strict parse, markdown fence stripping, raw newline escaping
// inside string literals, bounded brace-matching extraction.
func parseContentJSON(raw string) (contentPayload, error) {
	candidates := []string{
		raw,
		stripMarkdownFence(raw),
		escapeRawNewlines(stripMarkdownFence(raw)),
	}
	if extracted := extractJSONObject(raw); extracted != "" {
		candidates = append(candidates, extracted, escapeRawNewlines(extracted))
	}

	var lastErr error
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		var payload contentPayload
		dec := json.NewDecoder(strings.NewReader(candidate))
		if err := dec.Decode(&payload); err != nil {
			lastErr = err
			continue
		}
		if payload.Subject == "" && payload.Body == "" {
			lastErr = errors.New("json object has no subject or body")
			continue
		}
		return payload, nil
	}

	if lastErr == nil {
		lastErr = errors.New("empty output")
	}
	return contentPayload{}, &ContentError{Stage: "parse", Err: lastErr}
}

// stripMarkdownFence removes a surrounding ``` or ```json fence.
func stripMarkdownFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag on the opening fence line.
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// escapeRawNewlines replaces literal newlines inside JSON string
// literals with \n so multi-paragraph bodies survive decoding.
func escapeRawNewlines(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))

	inString := false
	escaped := false
	for _, r := range raw {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			b.WriteRune(r)
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
			b.WriteRune(r)
		case '\n':
			if inString {
				b.WriteString(`\n`)
			} else {
				b.WriteRune(r)
			}
		case '\r':
			if !inString {
				b.WriteRune(r)
			}
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}

// extractJSONObject returns the first balanced {...} block, ignoring
// braces inside string literals. Returns "" when no balanced object
// exists.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return raw[start : i+1]
				}
			}
		}
	}

	return ""
}
