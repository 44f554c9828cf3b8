package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/pkg/contracts/domain"
)

func newStudentCmd(opts *rootOptions) *cobra.Command {
	var course string

	cmd := &cobra.Command{
		Use:   "student <email|student-id>",
		Short: "Show a student's status across the tracked courses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := opts.environment("warn")
			if err != nil {
				return err
			}

			st, err := c.Report.SearchStudent(cmd.Context(), args[0], course)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), st)
			}
			return printStudent(cmd.OutOrStdout(), st)
		},
	}

	cmd.Flags().StringVar(&course, "course", "", "restrict the timeline to one course code")
	return cmd
}

func printStudent(w io.Writer, st *domain.StudentStatus) error {
	if st.NeedsReview {
		_, err := fmt.Fprintf(w, "%s: needs review (%s), %d matching rows\n", st.Query, st.Reason, st.MatchedRows)
		return err
	}

	if id := st.Identity; id != nil {
		fmt.Fprintf(w, "%s %s\n", id.FirstName, id.LastName)
		fmt.Fprintf(w, "  student id: %s\n", id.StudentID)
		fmt.Fprintf(w, "  email:      %s\n", id.EmailNorm)
	}
	if x := st.Extra; x != nil {
		fmt.Fprintf(w, "  campus:     %s\n", x.Campus)
		fmt.Fprintf(w, "  program:    %s %s\n", x.Program, x.Promotion)
	}
	fmt.Fprintf(w, "  certified:  %t\n", st.Certified)
	if len(st.Enrollment) > 0 {
		fmt.Fprintf(w, "  enrolled:   %s\n", strings.Join(st.Enrollment, ", "))
	}
	if st.Situation != "" {
		fmt.Fprintf(w, "  situation:  %s\n", st.Situation)
	}
	if st.Outcome != "" {
		fmt.Fprintf(w, "  outcome:    %s\n", st.Outcome)
	}
	for _, c := range st.Conflicts {
		fmt.Fprintf(w, "  conflict:   %s\n", c)
	}

	if len(st.Courses) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COURSE\tLABEL\tLATEST FILE\tIN LATEST\tVERDICT")
		for _, c := range st.Courses {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", c.Code, c.Label, formatDate(c.LatestDate), c.InLatest, c.LatestVerdict)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(st.Timeline) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tCOURSE\tHOURS\tGRADE\tVERDICT")
		for _, p := range st.Timeline {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				p.ExtractedAt.Format("2006-01-02"), p.CourseType, formatFloat(p.Hours), formatFloat(p.Grade), p.Verdict)
		}
		return tw.Flush()
	}
	return nil
}
