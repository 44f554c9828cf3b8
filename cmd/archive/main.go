// Command archive serves and queries the Blackboard extraction archive.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/app"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/config"
	"github.com/genai-ESCP/Backoffice-DataAnalytics/internal/infrastructure"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dataDir    string
	jsonOutput bool
	verbose    bool
}

func main() {
	err := newRootCmd().Execute()
	infrastructure.CloseLogFile()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "archive",
		Short: "Query and serve the Blackboard extraction archive",
		Long: `archive loads every gradebook extraction below data/extractions/<course>/,
answers student status questions, computes course statistics and
merges a gradebook with an hours report into a new extraction.

Configuration is read from config.yaml (or ARCHIVE_CONFIG) and
ARCHIVE_* environment variables.`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(infrastructure.EnsureTraceID(cmd.Context()))
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config.yaml")
	flags.StringVar(&opts.dataDir, "data-dir", "", "override paths.data_dir")
	flags.BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of text")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newStudentCmd(opts),
		newStatsCmd(opts),
		newMergeCmd(opts),
		newExportCmd(opts),
	)
	return rootCmd
}

// loadConfig applies the shared flags on top of the layered configuration.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.Paths.DataDir = o.dataDir
		// Reports follow the data dir unless configured elsewhere.
		if cfg.Paths.ReportsDir == config.DefaultReportsDir {
			cfg.Paths.ReportsDir = ""
		}
	}
	return cfg, nil
}

// environment loads the configuration and logger and builds the archive
// components without the HTTP layer.
func (o *rootOptions) environment(cliLevel string) (*config.Config, *app.ServiceContainer, *slog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	} else if cliLevel != "" {
		cfg.Logging.Level = cliLevel
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, nil, nil, err
	}

	container, err := app.NewServiceContainer(cfg, paths, logger, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, container, logger, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
