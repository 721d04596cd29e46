package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leakstopper/leakstopper-cli/internal/engine"
	"github.com/leakstopper/leakstopper-cli/internal/message"
	"github.com/leakstopper/leakstopper-cli/internal/model"
	"github.com/leakstopper/leakstopper-cli/internal/store"
)

var (
	messagesCSVPath      string
	messagesDatasetID    string
	messagesProvider     string
	messagesSector       string
	messagesCompany      string
	messagesLimit        int
	messagesConcurrency  int
	messagesRPS          float64
	messagesSmartMapping bool
	messagesSave         bool
)

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Draft reclamation messages for the top leaked customers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		customers, err := loadCustomers(ctx, messagesCSVPath, messagesDatasetID, messagesSmartMapping)
		if err != nil {
			return err
		}

		result := engine.Analyze(customers, model.DefaultFilters(), time.Now())
		if result == nil || len(result.TopLeakedCustomers) == 0 {
			cmd.Println("No leaked customers to write to.")
			return nil
		}

		if !cmd.Flags().Changed("sector") && cfg.Message.Sector != "" {
			messagesSector = cfg.Message.Sector
		}
		sector, err := model.ParseSector(messagesSector)
		if err != nil {
			return err
		}

		provider := messagesProvider
		if provider == "" {
			provider = cfg.Message.Provider
		}
		if !cmd.Flags().Changed("concurrency") && cfg.Message.Concurrency > 0 {
			messagesConcurrency = cfg.Message.Concurrency
		}
		if !cmd.Flags().Changed("rps") && cfg.Message.RequestsPerSecond > 0 {
			messagesRPS = cfg.Message.RequestsPerSecond
		}
		gen, err := newGenerator(ctx, provider)
		if err != nil {
			return err
		}

		company := messagesCompany
		if company == "" {
			company = cfg.Message.CompanyName
		}

		var profile *message.SectorProfile
		if cfg.Message.ProfileFile != "" {
			profiles, err := message.Profiles(cfg.Message.ProfileFile)
			if err != nil {
				return err
			}
			p := profiles[sector]
			profile = &p
		}

		responses, err := message.GenerateBulk(ctx, gen, result.TopLeakedCustomers, message.BulkOptions{
			Sector:            sector,
			CompanyName:       company,
			MaxChars:          cfg.Message.MaxChars,
			Limit:             messagesLimit,
			Concurrency:       messagesConcurrency,
			RequestsPerSecond: messagesRPS,
			Profile:           profile,
		})
		if err != nil {
			return describeGenerationFailure(err, gen.Name())
		}

		if messagesSave {
			if err := saveMessages(cmd, responses, result.TopLeakedCustomers, gen.Name(), sector); err != nil {
				return err
			}
		}

		formatMessages(cmd.OutOrStdout(), result.TopLeakedCustomers, responses)
		return nil
	},
}

// describeGenerationFailure maps the environment-failure sentinels to
// actionable CLI errors.
func describeGenerationFailure(err error, provider string) error {
	switch {
	case errors.Is(err, message.ErrQuotaExceeded):
		return fmt.Errorf("%s quota or rate limit exhausted, try again later or lower --rps: %w", provider, err)
	case errors.Is(err, message.ErrInvalidCredential):
		return fmt.Errorf("%s API key is invalid or expired, check your configuration: %w", provider, err)
	case errors.Is(err, message.ErrModelNotFound):
		return fmt.Errorf("configured %s model does not exist, check the model name: %w", provider, err)
	default:
		return err
	}
}

func saveMessages(cmd *cobra.Command, responses map[string]*message.Response, customers []model.LeakedCustomer, provider string, sector model.Sector) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, c := range customers {
		resp, ok := responses[c.ID]
		if !ok {
			continue
		}
		_, err := s.SaveMessage(ctx, store.SavedMessage{
			DatasetID:    messagesDatasetID,
			CustomerID:   c.ID,
			CustomerName: c.Name,
			Provider:     provider,
			Sector:       sector,
			Subject:      resp.Subject,
			Body:         resp.Message,
			CallToAction: resp.CallToAction,
		})
		if err != nil {
			return err
		}
	}
	zap.L().Info("messages saved", zap.Int("count", len(responses)))
	return nil
}

func formatMessages(out io.Writer, customers []model.LeakedCustomer, responses map[string]*message.Response) {
	for _, c := range customers {
		resp, ok := responses[c.ID]
		if !ok {
			continue
		}
		_, _ = fmt.Fprintf(out, "--- %s (score %d, %s risk)\n", c.Name, c.LeakScore, c.RiskLevel)
		if resp.Subject != "" {
			_, _ = fmt.Fprintf(out, "Subject: %s\n", resp.Subject)
		}
		_, _ = fmt.Fprintln(out, resp.Message)
		if resp.CallToAction != "" {
			_, _ = fmt.Fprintf(out, "CTA: %s\n", resp.CallToAction)
		}
		_, _ = fmt.Fprintln(out)
	}
}

func init() {
	messagesCmd.Flags().StringVar(&messagesCSVPath, "csv", "", "path to customer CSV export")
	messagesCmd.Flags().StringVar(&messagesDatasetID, "dataset", "", "stored dataset id")
	messagesCmd.Flags().StringVar(&messagesProvider, "provider", "", "AI provider (anthropic, openai, gemini; default from config)")
	messagesCmd.Flags().StringVar(&messagesSector, "sector", "SaaS", "business sector (Pharma, ECommerce, SaaS)")
	messagesCmd.Flags().StringVar(&messagesCompany, "company", "", "sender company name")
	messagesCmd.Flags().IntVar(&messagesLimit, "limit", 10, "max customers to write to (0 = all ranked)")
	messagesCmd.Flags().IntVar(&messagesConcurrency, "concurrency", 3, "parallel generation requests")
	messagesCmd.Flags().Float64Var(&messagesRPS, "rps", 1, "request rate limit per second (0 = unlimited)")
	messagesCmd.Flags().BoolVar(&messagesSmartMapping, "smart-mapping", false, "use the Anthropic model to map unrecognized CSV columns")
	messagesCmd.Flags().BoolVar(&messagesSave, "save", false, "persist generated messages")
	rootCmd.AddCommand(messagesCmd)
}
