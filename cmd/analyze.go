package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/leakstopper/leakstopper-cli/internal/engine"
	"github.com/leakstopper/leakstopper-cli/internal/model"
)

var (
	analyzeCSVPath       string
	analyzeDatasetID     string
	analyzeThresholdDays int
	analyzeMinSpending   float64
	analyzeRisk          string
	analyzeSmartMapping  bool
	analyzeFormat        string
	analyzeOutput        string
	analyzeSave          bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score a customer export for leaked revenue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		customers, err := loadCustomers(ctx, analyzeCSVPath, analyzeDatasetID, analyzeSmartMapping)
		if err != nil {
			return err
		}

		// Flags win over config; config covers flags left at defaults.
		if !cmd.Flags().Changed("threshold-days") && cfg.Engine.ThresholdDays > 0 {
			analyzeThresholdDays = cfg.Engine.ThresholdDays
		}
		if !cmd.Flags().Changed("min-spending") {
			analyzeMinSpending = cfg.Engine.MinSpending
		}
		if !cmd.Flags().Changed("risk") && cfg.Engine.RiskLevel != "" {
			analyzeRisk = cfg.Engine.RiskLevel
		}

		riskFilter, err := model.ParseRiskFilter(analyzeRisk)
		if err != nil {
			return err
		}
		opts := model.FilterOptions{
			ThresholdDays: analyzeThresholdDays,
			MinSpending:   analyzeMinSpending,
			RiskLevel:     riskFilter,
		}

		result := engine.Analyze(customers, opts, time.Now())
		if result == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No customers to analyze.")
			return nil
		}

		if analyzeSave {
			if analyzeDatasetID == "" {
				return eris.New("--save needs --dataset (import the csv first)")
			}
			s, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			id, err := s.SaveAnalysis(ctx, analyzeDatasetID, result)
			if err != nil {
				return err
			}
			zap.L().Info("analysis saved",
				zap.String("analysis_id", id),
				zap.String("dataset_id", analyzeDatasetID),
			)
		}

		out := cmd.OutOrStdout()
		if analyzeOutput != "" {
			f, err := os.Create(analyzeOutput)
			if err != nil {
				return eris.Wrap(err, "create output file")
			}
			defer f.Close()
			out = f
		}

		switch analyzeFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(result), "encode result")
		case "table", "":
			formatAnalysis(out, result)
			return nil
		default:
			return eris.Errorf("unknown format: %s (want table or json)", analyzeFormat)
		}
	},
}

// formatAnalysis writes the summary and the ranked leak table to out.
func formatAnalysis(out io.Writer, r *model.AnalysisResult) {
	p := message.NewPrinter(language.English)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = p.Fprintf(w, "Total customers:\t%d\n", r.TotalCustomers)
	_, _ = p.Fprintf(w, "Active:\t%d\n", r.ActiveCustomers)
	_, _ = p.Fprintf(w, "Leaked:\t%d\n", r.LeakedCustomers)
	_, _ = p.Fprintf(w, "Leak rate:\t%.1f%%\n", r.LeakRate)
	_, _ = p.Fprintf(w, "Bucket health:\t%d/100\n", r.BucketHealth)
	_, _ = p.Fprintf(w, "Total revenue:\t$%.2f\n", r.TotalRevenue)
	_, _ = p.Fprintf(w, "Lost revenue:\t$%.2f\n", r.LostRevenue)
	_, _ = p.Fprintf(w, "Leak velocity:\t$%.2f/mo\n", r.LeakVelocity)
	_ = w.Flush()

	if len(r.TopLeakedCustomers) == 0 {
		_, _ = fmt.Fprintln(out, "\nNo leaked customers match the filters.")
		return
	}

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SCORE\tRISK\tNAME\tDAYS\tREVENUE\tEST. LOST")
	_, _ = fmt.Fprintln(w, "-----\t----\t----\t----\t-------\t---------")
	for _, c := range r.TopLeakedCustomers {
		name := c.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = p.Fprintf(w, "%d\t%s\t%s\t%d\t$%.2f\t$%.2f\n",
			c.LeakScore,
			c.RiskLevel,
			name,
			c.DaysSinceLastPurchase,
			c.TotalRevenue,
			c.EstimatedLostRevenue,
		)
	}
	_ = w.Flush()
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCSVPath, "csv", "", "path to customer CSV export")
	analyzeCmd.Flags().StringVar(&analyzeDatasetID, "dataset", "", "stored dataset id")
	analyzeCmd.Flags().IntVar(&analyzeThresholdDays, "threshold-days", 90, "days of inactivity before a customer counts as leaked")
	analyzeCmd.Flags().Float64Var(&analyzeMinSpending, "min-spending", 0, "minimum total revenue for the ranked table")
	analyzeCmd.Flags().StringVar(&analyzeRisk, "risk", "all", "risk level filter (all, low, medium, high, critical)")
	analyzeCmd.Flags().BoolVar(&analyzeSmartMapping, "smart-mapping", false, "use the Anthropic model to map unrecognized CSV columns")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "table", "output format (table or json)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write output to file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the analysis snapshot (needs --dataset)")
	rootCmd.AddCommand(analyzeCmd)
}
