package message

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leakstopper/leakstopper-cli/pkg/openai"
)

// OpenAIGenerator writes messages with an OpenAI-compatible chat API.
type OpenAIGenerator struct {
	client openai.Client
	model  string
}

// NewOpenAIGenerator creates an OpenAI-backed generator.
func NewOpenAIGenerator(client openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	profile := resolveProfile(req)

	text, err := g.complete(ctx, BuildPrompt(req, profile))
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, eris.New("openai: empty message response")
	}

	subject, err := g.complete(ctx, BuildSubjectPrompt(text))
	if err != nil {
		return nil, err
	}

	return &Response{
		Message:      text,
		Subject:      subject,
		CallToAction: profile.CallToAction,
	}, nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: []openai.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", Classify(err, openaiStatusCode(err))
	}
	return strings.TrimSpace(resp.Text()), nil
}

func openaiStatusCode(err error) int {
	var statusErr *openai.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
