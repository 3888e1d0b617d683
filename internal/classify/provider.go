package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider calls a Gemini-style generateContent endpoint. Every method
// returns an explicit error; the Classifier facade decides whether to
// substitute the keyword stub.
type Provider struct {
	apiURL  string
	apiKey  string
	timeout time.Duration
	client  *http.Client
}

var ErrNotConfigured = errors.New("generative provider not configured")

func NewProvider(apiURL, apiKey string, timeout time.Duration) *Provider {
	return &Provider{
		apiURL:  apiURL,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Configured() bool {
	return p != nil && p.apiKey != "" && p.apiURL != ""
}

const classifyPrompt = `Classify this civic grievance. Respond with JSON only:
{"category": one of ["Sanitation","Roads","Water Supply","Electricity","Law & Order","Health","Other"],
"severity_score": number between 0 and 1,
"is_spam": boolean,
"sentiment_score": number between 0 and 1,
"summary": one-sentence summary}

Title: %s
Description: %s`

// Classify asks the provider to tag the grievance text. The call is bounded
// by the configured timeout on top of whatever deadline ctx carries.
func (p *Provider) Classify(ctx context.Context, title, description string) (Result, error) {
	if !p.Configured() {
		return Result{}, ErrNotConfigured
	}

	text, err := p.generate(ctx, fmt.Sprintf(classifyPrompt, title, description))
	if err != nil {
		return Result{}, err
	}

	var result Result
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
		return Result{}, fmt.Errorf("malformed provider response: %w", err)
	}
	if result.Category == "" || result.SeverityScore < 0 || result.SeverityScore > 1 {
		return Result{}, fmt.Errorf("provider response out of range")
	}
	if result.Summary == "" {
		result.Summary = summarize(description)
	}
	return result, nil
}

const chatPrompt = `You are a helpful assistant for the CivicPulse grievance
redressal system. Help citizens submit grievances, track their status and
understand civic services. Be friendly and concise; keep responses under 200
words.

User: %s
Assistant:`

// Chat answers a citizen-portal assistant message.
func (p *Provider) Chat(ctx context.Context, message string) (string, error) {
	if !p.Configured() {
		return "", ErrNotConfigured
	}
	text, err := p.generate(ctx, fmt.Sprintf(chatPrompt, message))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content generateContent `json:"content"`
	} `json:"candidates"`
}

func (p *Provider) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := json.Marshal(generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"?key="+p.apiKey, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("provider status %d", resp.StatusCode)
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode provider response: %w", err)
	}
	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty provider response")
	}
	return body.Candidates[0].Content.Parts[0].Text, nil
}

// extractJSON strips markdown fences and surrounding prose the provider
// sometimes wraps around its JSON payload.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
