package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"trade-memory/internal/api"
	"trade-memory/internal/domain"
	"trade-memory/internal/pipeline"
)

var reflectCmd = &cobra.Command{
	Use:   "reflect",
	Short: "Generate reflection reports",
	Long: `Generate a reflection report for a day, a week or a month.

The report is stored, printed and, when an output directory is configured,
written as text, markdown and a segment CSV.

Examples:
  # Reflect on yesterday
  tradememory reflect daily

  # Reflect on the week ending 2026-02-22
  tradememory reflect weekly 2026-02-22

  # Reflect on February with the demo journal
  tradememory --demo reflect monthly 2026-02`,
}

func init() {
	reflectCmd.AddCommand(newReflectCmd(domain.PeriodDaily, "daily [YYYY-MM-DD]", "Reflect on one UTC day (default yesterday)"))
	reflectCmd.AddCommand(newReflectCmd(domain.PeriodWeekly, "weekly [YYYY-MM-DD]", "Reflect on the seven days ending on a date (default yesterday)"))
	reflectCmd.AddCommand(newReflectCmd(domain.PeriodMonthly, "monthly [YYYY-MM]", "Reflect on a calendar month (default last month)"))
}

func newReflectCmd(kind domain.PeriodKind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			p, err := resolvePeriod(kind, ref, time.Now().UTC())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Reflect(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printReflection(cmd, res)
		},
	}
}

// resolvePeriod parses ref, defaulting to the last complete period of kind.
func resolvePeriod(kind domain.PeriodKind, ref string, now time.Time) (domain.Period, error) {
	if ref != "" {
		return domain.ParsePeriod(kind, ref)
	}
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	switch kind {
	case domain.PeriodDaily:
		return domain.DailyPeriod(yesterday), nil
	case domain.PeriodWeekly:
		return domain.WeeklyPeriod(yesterday), nil
	default:
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		return domain.MonthlyPeriod(prev.Year(), prev.Month()), nil
	}
}

func printReflection(cmd *cobra.Command, res *pipeline.Reflection) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, api.ReflectionResponse{
			Report: api.NewReportResponse(res.Report),
			Files:  res.Files,
		})
	}

	fmt.Fprint(out, res.Report.Narrative)
	if res.Report.UsedFallback {
		fmt.Fprintf(out, "\n(template report: %s)\n", res.Report.FallbackReason)
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return nil
}
