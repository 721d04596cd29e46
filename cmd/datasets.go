package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leakstopper/leakstopper-cli/internal/store"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List stored datasets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		datasets, err := s.ListDatasets(ctx)
		if err != nil {
			return err
		}
		if len(datasets) == 0 {
			cmd.Println("No datasets imported yet.")
			return nil
		}

		formatDatasets(cmd.OutOrStdout(), datasets)
		return nil
	},
}

func formatDatasets(out io.Writer, datasets []store.Dataset) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCUSTOMERS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t-------")
	for _, ds := range datasets {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			ds.ID,
			ds.Name,
			ds.CustomerCount,
			ds.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
