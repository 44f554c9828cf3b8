package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print per-course KPIs and the verdict distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := opts.environment("warn")
			if err != nil {
				return err
			}

			ov, err := c.Report.Overview(cmd.Context())
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), ov)
			}
			return printOverview(cmd.OutOrStdout(), ov)
		},
	}
}

func printOverview(w io.Writer, ov *domain.Overview) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tLATEST\tSTUDENTS\tPASSED\tPASS RATE\tAVG HOURS\tMEDIAN HOURS\tAVG GRADE\tINACTIVE")
	for _, k := range ov.Courses {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%d\n",
			k.Course, formatDate(ov.LatestByCourse[k.Course]), k.Students, k.Passed,
			formatPercent(k.PassRate), formatFloat(k.AvgHours), formatFloat(k.MedianHours), formatFloat(k.AvgGrade), k.Inactive)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\ncertified students passed: %d\n", ov.TotalPassed)

	verdicts := make([]string, 0, len(ov.VerdictDistribution))
	for v := range ov.VerdictDistribution {
		verdicts = append(verdicts, v)
	}
	sort.Strings(verdicts)
	for _, v := range verdicts {
		fmt.Fprintf(w, "  %-10s %d\n", v, ov.VerdictDistribution[v])
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}
