package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/app"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port  int
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket and metrics endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("watch") {
				cfg.Ingest.Watch = watch
			}
			if opts.verbose {
				cfg.Logging.Level = "debug"
			}

			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			application, err := app.NewApplication(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Run()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload the snapshot when extraction files change")
	return cmd
}
