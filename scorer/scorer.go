// Package scorer submits an evidence bundle to the scoring model and parses
// its reply under the fixed "<integer 0-100>:<explanation>" contract.
package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bouncer/apperrors"
	"bouncer/config"
	"bouncer/httpclient"
	"bouncer/models"
)

const anthropicVersion = "2023-06-01"

const scoringInstruction = `You are an expert analyst reviewing the trustworthiness of a person based on the search results below, where 0 is most trustworthy and 100 is least trustworthy.
You MUST reply with exactly one line of the form <integer 0-100>:<2-3 sentence explanation> and no other text.
As for strict guidelines, you must base your output number on the User's Analysis Request based on what the user deems more risky and less risky pieces of information.`

// Scorer calls the Anthropic messages API.
type Scorer struct {
	base        *httpclient.BaseClient
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
}

func NewScorer(cfg config.ScorerConfig, creds config.Credentials) *Scorer {
	return &Scorer{
		base:        httpclient.NewBaseClient(cfg.BaseURL, 2*time.Minute),
		apiKey:      creds.AnthropicAPIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Score serializes the bundle and the caller's risk-weighting prompt into
// the scoring prompt, submits it, and parses the reply.
func (s *Scorer) Score(ctx context.Context, prompt string, bundle *models.EvidenceBundle) (*models.ScoreResult, error) {
	const op = "scorer.Score"

	if s.apiKey == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, op,
			"anthropic API key is not configured (ANTHROPIC_API_KEY)")
	}

	reply, err := s.complete(ctx, BuildPrompt(prompt, bundle))
	if err != nil {
		return nil, err
	}

	score, explanation, err := ParseVerdict(reply)
	if err != nil {
		return nil, err
	}
	return &models.ScoreResult{Score: score, Explanation: explanation}, nil
}

// BuildPrompt produces the deterministic context block listing every
// summary record, followed by the caller's analysis request.
func BuildPrompt(prompt string, bundle *models.EvidenceBundle) string {
	var b strings.Builder
	for i, r := range bundle.Summaries {
		fmt.Fprintf(&b, `
Result %d (Source: %s):
- Title: %s
- Link: %s
- Original Snippet: %s
- AI Summary: %s
---
`, i+1, valueOr(string(r.Source), "unknown"), valueOr(r.Title, "N/A"), valueOr(r.Link, "N/A"),
			valueOr(r.Snippet, "N/A"), valueOr(r.Summary, "N/A"))
	}

	fmt.Fprintf(&b, "\nUser's Analysis Request:\n%s\n", prompt)
	return b.String()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func (s *Scorer) complete(ctx context.Context, userPrompt string) (string, error) {
	const op = "scorer.complete"

	payload, err := json.Marshal(messagesRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		System:      scoringInstruction,
		Messages:    []message{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := s.base.NewRequest(ctx, http.MethodPost, "/v1/messages", nil, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := s.base.Do(req)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "scoring model request failed", err)
	}
	defer resp.Body.Close()

	const maxBodySize = 5 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "scoring model response read failed", err)
	}

	var out messagesResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "scoring model response decode failed", err)
	}
	if out.Error != nil {
		return "", apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("scoring model error: %s (%s)", out.Error.Message, out.Error.Type))
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.New(apperrors.CodeUpstream, op,
			fmt.Sprintf("scoring model returned status %d", resp.StatusCode))
	}

	var reply strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			reply.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(reply.String()), nil
}

// ParseVerdict enforces the reply contract: the segment before the first
// ':' must parse as an integer in [0,100]; everything after it is the
// explanation, taken verbatim.
func ParseVerdict(reply string) (int, string, error) {
	const op = "scorer.ParseVerdict"

	idx := strings.Index(reply, ":")
	if idx < 0 {
		return 0, "", apperrors.New(apperrors.CodeProtocol, op,
			fmt.Sprintf("scoring reply has no score separator: %q", reply))
	}

	score, err := strconv.Atoi(strings.TrimSpace(reply[:idx]))
	if err != nil {
		return 0, "", apperrors.New(apperrors.CodeProtocol, op,
			fmt.Sprintf("scoring reply score is not an integer: %q", reply[:idx]))
	}
	if score < 0 || score > 100 {
		return 0, "", apperrors.New(apperrors.CodeProtocol, op,
			fmt.Sprintf("scoring reply score %d is outside 0-100", score))
	}

	return score, reply[idx+1:], nil
}
