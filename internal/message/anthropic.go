package message

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leakstopper/leakstopper-cli/pkg/anthropic"
)

// AnthropicGenerator writes messages with the Claude API. The sector
// framing goes in a cached system block so bulk runs pay for it once.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator creates a Claude-backed generator.
func NewAnthropicGenerator(client anthropic.Client, model string) *AnthropicGenerator {
	return &AnthropicGenerator{client: client, model: model}
}

func (g *AnthropicGenerator) Name() string { return "anthropic" }

func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	profile := resolveProfile(req)

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(SectorSystemPrompt(profile, req.CompanyName, req.MaxChars)),
		Messages:  []anthropic.Message{{Role: "user", Content: CustomerPrompt(req.Customer)}},
	})
	if err != nil {
		return nil, Classify(err, anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(g.model, "message_generation")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, eris.New("anthropic: empty message response")
	}

	subject, err := g.subjectLine(ctx, text)
	if err != nil {
		return nil, err
	}

	return &Response{
		Message:      text,
		Subject:      subject,
		CallToAction: profile.CallToAction,
	}, nil
}

func (g *AnthropicGenerator) subjectLine(ctx context.Context, messageText string) (string, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: 64,
		Messages:  []anthropic.Message{{Role: "user", Content: BuildSubjectPrompt(messageText)}},
	})
	if err != nil {
		return "", Classify(err, anthropic.StatusCode(err))
	}
	return strings.TrimSpace(resp.Text()), nil
}
