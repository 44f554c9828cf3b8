package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/validation"
)

type mergeOptions struct {
	gradebook   string
	hours       string
	course      string
	targetSheet string
	output      string
	outDir      string
}

func newMergeCmd(opts *rootOptions) *cobra.Command {
	m := &mergeOptions{}

	cmd := &cobra.Command{
		Use:   "merge --gradebook FILE --hours FILE",
		Short: "Merge a gradebook export with an hours report into a new extraction",
		Long: `merge writes the hours and verdicts from the hours report into the
gradebook's target sheet. Students are matched by student ID first, then
by first and last name. The output directory must lie outside
data/extractions; the exports there are never modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, logger, err := opts.environment("info")
			if err != nil {
				return err
			}

			v := validation.NewFileValidator(logger)
			for _, path := range []string{m.gradebook, m.hours} {
				if err := v.ValidateWorkbook(path); err != nil {
					return err
				}
			}
			if err := v.ValidateOutputDirectory(m.outDir); err != nil {
				return err
			}

			gradebook, err := os.ReadFile(m.gradebook)
			if err != nil {
				return fmt.Errorf("failed to read gradebook: %w", err)
			}
			hours, err := os.ReadFile(m.hours)
			if err != nil {
				return fmt.Errorf("failed to read hours report: %w", err)
			}

			res, err := c.Extraction.Generate(cmd.Context(), services.ExtractionRequest{
				Course:        m.course,
				GradebookName: filepath.Base(m.gradebook),
				Gradebook:     gradebook,
				HoursName:     filepath.Base(m.hours),
				Hours:         hours,
				TargetSheet:   m.targetSheet,
				OutputName:    m.output,
			})
			if err != nil {
				return err
			}

			dest, err := c.Files.SaveExtraction(m.outDir, res.FileName, res.Content)
			if err != nil {
				return err
			}

			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"file": dest,
					"rows": res.RowCount,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d rows)\n", dest, res.RowCount)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&m.gradebook, "gradebook", "", "gradebook .xlsx exported from Blackboard")
	f.StringVar(&m.hours, "hours", "", "hours report .xlsx")
	f.StringVar(&m.course, "course", "", "course code selecting the sheet and file name presets")
	f.StringVar(&m.targetSheet, "sheet", "", "override the gradebook sheet to write into")
	f.StringVarP(&m.output, "output", "o", "", "output file name")
	f.StringVar(&m.outDir, "out-dir", ".", "directory for the output file")
	_ = cmd.MarkFlagRequired("gradebook")
	_ = cmd.MarkFlagRequired("hours")
	return cmd
}
