package summarizer

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"bouncer/apperrors"
	"bouncer/config"
)

// Summarizer turns a page excerpt into a one-paragraph summary.
type Summarizer interface {
	Summarize(ctx context.Context, excerpt string) (string, error)
}

const SYSTEM_INSTRUCTION = `
You are a summarization assistant for a background-check service. The user
message contains the visible text content of a web page. Write a concise,
one-paragraph summary of that content.
The response must contain ONLY the summary paragraph: no preamble, no
headings, no markdown formatting.
`

// Gemini summarizes page content with a Gemini model.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(cfg config.SummarizerConfig, creds config.Credentials) *Gemini {
	return &Gemini{
		apiKey: creds.GeminiAPIKey,
		model:  cfg.GeminiModel,
	}
}

// Summarize asks the model for a one-paragraph summary of excerpt. An empty
// reply is returned as an empty string; the caller decides the placeholder.
func (g *Gemini) Summarize(ctx context.Context, excerpt string) (string, error) {
	const op = "summarizer.Summarize"

	if g.apiKey == "" {
		return "", apperrors.New(apperrors.CodeConfiguration, op,
			"gemini API key is not configured (GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: g.apiKey,
	})
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "gemini client init failed", err)
	}

	result, err := client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(excerpt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: SYSTEM_INSTRUCTION}}},
		},
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeUpstream, op, "gemini generate failed", err)
	}

	return strings.TrimSpace(result.Text()), nil
}
