package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/services"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "export [snapshot|kpis]...",
		Short:     "Write snapshot and KPI CSVs to the reports directory",
		ValidArgs: []string{services.ExportSnapshot, services.ExportKPIs},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := opts.environment("warn")
			if err != nil {
				return err
			}

			kinds := args
			if len(kinds) == 0 {
				kinds = []string{services.ExportSnapshot, services.ExportKPIs}
			}

			written := make(map[string]string, len(kinds))
			for _, kind := range kinds {
				path, err := c.Report.Export(cmd.Context(), kind)
				if err != nil {
					return err
				}
				written[kind] = path
				if !opts.jsonOutput {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kind, path)
				}
			}
			if opts.jsonOutput {
				return printJSON(cmd.OutOrStdout(), written)
			}
			return nil
		},
	}
}
