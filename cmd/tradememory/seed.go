package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-memory/internal/pipeline"
)

var seedWeekStart string

func init() {
	seedCmd.Flags().StringVar(&seedWeekStart, "week-start", "", "First day of the demo week, YYYY-MM-DD (default Monday of last week)")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo journal into the configured trade store",
	Long: `Insert a demo week of trades. The week is shaped so pattern discovery
finds weak and strong segments and every adjustment rule fires once.

Seeding the same week twice fails with a duplicate key error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		weekStart := lastWeekStart(time.Now().UTC())
		if seedWeekStart != "" {
			d, err := time.Parse("2006-01-02", seedWeekStart)
			if err != nil {
				return fmt.Errorf("parse --week-start: %w", err)
			}
			weekStart = d
		}

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := pipeline.LoadFixtures(cmd.Context(), a.stores.Trades, weekStart)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "inserted %d trades for the week of %s\n", n, weekStart.Format("2006-01-02"))
		return nil
	},
}
