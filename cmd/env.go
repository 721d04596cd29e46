package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/leakstopper/leakstopper-cli/internal/ingest"
	"github.com/leakstopper/leakstopper-cli/internal/message"
	"github.com/leakstopper/leakstopper-cli/internal/model"
	"github.com/leakstopper/leakstopper-cli/internal/store"
	"github.com/leakstopper/leakstopper-cli/pkg/anthropic"
	"github.com/leakstopper/leakstopper-cli/pkg/gemini"
	"github.com/leakstopper/leakstopper-cli/pkg/openai"
)

// openStore opens the configured persistence backend and runs migrations.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		s, err = store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		poolCfg := &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		}
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolCfg)
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// newGenerator builds the message generator for the named provider.
func newGenerator(ctx context.Context, provider string) (message.Generator, error) {
	switch provider {
	case "anthropic", "":
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("anthropic API key is required (LEAKSTOPPER_ANTHROPIC_KEY)")
		}
		return message.NewAnthropicGenerator(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model), nil
	case "openai":
		if cfg.OpenAI.Key == "" {
			return nil, eris.New("openai API key is required (LEAKSTOPPER_OPENAI_KEY)")
		}
		client := openai.NewClient(cfg.OpenAI.Key,
			openai.WithBaseURL(cfg.OpenAI.BaseURL),
			openai.WithModel(cfg.OpenAI.Model),
		)
		return message.NewOpenAIGenerator(client, cfg.OpenAI.Model), nil
	case "gemini":
		if cfg.Gemini.Key == "" {
			return nil, eris.New("gemini API key is required (LEAKSTOPPER_GEMINI_KEY)")
		}
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key)
		if err != nil {
			return nil, err
		}
		return message.NewGeminiGenerator(client, cfg.Gemini.Model), nil
	default:
		return nil, eris.Errorf("unknown provider: %s (want anthropic, openai or gemini)", provider)
	}
}

// parseCSV reads a customer export, optionally using the Anthropic model
// to map unrecognized column names.
func parseCSV(ctx context.Context, path string, smartMapping bool) (*ingest.ParseResult, error) {
	opts := ingest.ParseOptions{}
	if smartMapping {
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("smart mapping needs an anthropic API key (LEAKSTOPPER_ANTHROPIC_KEY)")
		}
		opts.AI = anthropic.NewClient(cfg.Anthropic.Key)
		opts.Model = cfg.Anthropic.Model
	}
	return ingest.ParseCustomerCSV(ctx, path, opts)
}

// loadCustomers resolves the customer set for a command that accepts either
// a CSV path or a stored dataset id. Exactly one must be given.
func loadCustomers(ctx context.Context, csvPath, datasetID string, smartMapping bool) ([]model.Customer, error) {
	switch {
	case csvPath != "" && datasetID != "":
		return nil, eris.New("give either --csv or --dataset, not both")
	case csvPath != "":
		result, err := parseCSV(ctx, csvPath, smartMapping)
		if err != nil {
			return nil, err
		}
		return result.Customers, nil
	case datasetID != "":
		s, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer s.Close()
		_, customers, err := s.GetDataset(ctx, datasetID)
		return customers, err
	default:
		return nil, eris.New("either --csv or --dataset is required")
	}
}
