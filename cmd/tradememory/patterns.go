package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trade-memory/internal/api"
	"trade-memory/internal/domain"
	"trade-memory/internal/idhash"
)

var discoverDimensions []string

func init() {
	patternsCmd.AddCommand(patternsDiscoverCmd)
	patternsCmd.AddCommand(patternsLatestCmd)

	patternsDiscoverCmd.Flags().StringSliceVar(&discoverDimensions, "dimension", nil,
		"Dimensions to segment by (session, strategy, confidence_band, symbol, strategy_direction); default all but symbol")
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Discover and inspect trading patterns",
}

var patternsDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Classify segments of the recent journal as HIGH_EDGE, WEAK or NEUTRAL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dims := make([]domain.Dimension, 0, len(discoverDimensions))
		for _, name := range discoverDimensions {
			d, ok := domain.ParseDimension(name)
			if !ok {
				return fmt.Errorf("unknown dimension %q", name)
			}
			dims = append(dims, d)
		}

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		found, err := a.svc.DiscoverPatterns(cmd.Context(), dims)
		if err != nil {
			return err
		}
		return printPatterns(cmd, found)
	},
}

var patternsLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent discovery run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		latest, err := a.svc.LatestPatterns(cmd.Context())
		if err != nil {
			return err
		}
		return printPatterns(cmd, latest)
	},
}

func printPatterns(cmd *cobra.Command, patterns []domain.Pattern) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, api.NewPatternResponses(patterns))
	}
	if len(patterns) == 0 {
		fmt.Fprintln(out, "No segment has enough closed trades.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDIMENSION\tSEGMENT\tTRADES\tWIN RATE\tNET P&L\tEDGE\tCONFIDENCE")
	for _, p := range patterns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f%%\t%.2f\t%s\t%.2f\n",
			idhash.ShortID(p.PatternID), p.Dimension, p.Segment, p.SampleSize, p.WinRate*100, p.NetPnL, p.Edge, p.Confidence)
	}
	return w.Flush()
}
