package message

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leakstopper/leakstopper-cli/pkg/gemini"
)

// GeminiGenerator writes messages with the Gemini API.
type GeminiGenerator struct {
	client gemini.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(client gemini.Client, model string) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model}
}

func (g *GeminiGenerator) Name() string { return "gemini" }

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	profile := resolveProfile(req)

	resp, err := g.client.GenerateText(ctx, gemini.TextRequest{
		Model:     g.model,
		System:    SectorSystemPrompt(profile, req.CompanyName, req.MaxChars),
		Prompt:    CustomerPrompt(req.Customer),
		MaxTokens: 1024,
	})
	if err != nil {
		return nil, Classify(err, gemini.StatusCode(err))
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return nil, eris.New("gemini: empty message response")
	}

	subjectResp, err := g.client.GenerateText(ctx, gemini.TextRequest{
		Model:     g.model,
		Prompt:    BuildSubjectPrompt(text),
		MaxTokens: 64,
	})
	if err != nil {
		return nil, Classify(err, gemini.StatusCode(err))
	}

	return &Response{
		Message:      text,
		Subject:      strings.TrimSpace(subjectResp.Text),
		CallToAction: profile.CallToAction,
	}, nil
}
