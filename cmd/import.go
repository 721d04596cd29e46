package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	importCSVPath      string
	importName         string
	importSmartMapping bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a customer CSV export as a stored dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		result, err := parseCSV(ctx, importCSVPath, importSmartMapping)
		if err != nil {
			return err
		}

		name := importName
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(importCSVPath), filepath.Ext(importCSVPath))
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		ds, err := s.CreateDataset(ctx, name, result.Customers)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("dataset_id", ds.ID),
			zap.String("name", ds.Name),
			zap.Int("customers", ds.CustomerCount),
			zap.Int("skipped", result.Skipped),
		)
		cmd.Printf("Imported %d customers into dataset %s\n", ds.CustomerCount, ds.ID)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importName, "name", "", "dataset name (default: file name)")
	importCmd.Flags().BoolVar(&importSmartMapping, "smart-mapping", false, "use the Anthropic model to map unrecognized CSV columns")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
