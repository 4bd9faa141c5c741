package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trade-memory/internal/api"
	"trade-memory/internal/domain"
	"trade-memory/internal/storage"
)

var (
	adjStatus string
	adjType   string
	adjLimit  int
)

func init() {
	adjustmentsCmd.AddCommand(adjustmentsGenerateCmd)
	adjustmentsCmd.AddCommand(adjustmentsListCmd)
	adjustmentsCmd.AddCommand(newTransitionCmd("approve", "Approve a proposed adjustment", (*app).approve))
	adjustmentsCmd.AddCommand(newTransitionCmd("reject", "Reject a proposed adjustment", (*app).reject))
	adjustmentsCmd.AddCommand(newTransitionCmd("apply", "Mark an approved adjustment as applied", (*app).apply))

	adjustmentsListCmd.Flags().StringVar(&adjStatus, "status", "", "Filter by status (proposed, approved, applied, rejected)")
	adjustmentsListCmd.Flags().StringVar(&adjType, "type", "", "Filter by adjustment type")
	adjustmentsListCmd.Flags().IntVar(&adjLimit, "limit", 50, "Maximum number of adjustments to list")
}

var adjustmentsCmd = &cobra.Command{
	Use:   "adjustments",
	Short: "Propose and review strategy adjustments",
	Long: `Propose strategy adjustments from the latest discovered patterns and move
them through review: proposed, then approved or rejected, then applied.

Examples:
  tradememory patterns discover
  tradememory adjustments generate
  tradememory adjustments list --status proposed
  tradememory adjustments approve 5f0c...`,
}

var adjustmentsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the adjustment rules over the latest patterns",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if loadDemo {
			if _, err := a.svc.DiscoverPatterns(cmd.Context(), nil); err != nil {
				return err
			}
		}

		proposals, err := a.svc.GenerateAdjustments(cmd.Context())
		if err != nil {
			return err
		}
		return printAdjustments(cmd, proposals)
	},
}

var adjustmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored adjustments, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := storage.AdjustmentFilter{Limit: adjLimit}
		if adjStatus != "" {
			st, ok := domain.ParseAdjustmentStatus(adjStatus)
			if !ok {
				return fmt.Errorf("unknown status %q", adjStatus)
			}
			f.Status = st
		}
		if adjType != "" {
			at, ok := domain.ParseAdjustmentType(adjType)
			if !ok {
				return fmt.Errorf("unknown adjustment type %q", adjType)
			}
			f.Type = at
		}

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.svc.Adjustments(cmd.Context(), f)
		if err != nil {
			return err
		}
		return printAdjustments(cmd, list)
	},
}

type transitionFunc func(a *app, ctx context.Context, id string) (*domain.StrategyAdjustment, error)

func (a *app) approve(ctx context.Context, id string) (*domain.StrategyAdjustment, error) {
	return a.svc.Approve(ctx, id)
}

func (a *app) reject(ctx context.Context, id string) (*domain.StrategyAdjustment, error) {
	return a.svc.Reject(ctx, id)
}

func (a *app) apply(ctx context.Context, id string) (*domain.StrategyAdjustment, error) {
	return a.svc.Apply(ctx, id)
}

func newTransitionCmd(use, short string, fn transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <adjustment-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			adj, err := fn(a, cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), api.NewAdjustmentResponse(adj))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", adj.AdjustmentID, adj.TargetKey(), adj.Status)
			return nil
		},
	}
}

func printAdjustments(cmd *cobra.Command, list []*domain.StrategyAdjustment) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, api.NewAdjustmentResponses(list))
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No adjustments.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTARGET\tCHANGE\tSTATUS")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s: %s -> %s\t%s\n",
			a.AdjustmentID, a.Type, a.TargetKey(), a.Parameter, a.OldValue, a.NewValue, a.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, a := range list {
		fmt.Fprintf(out, "\n%s\n  %s\n", a.AdjustmentID, a.Justification)
	}
	return nil
}
