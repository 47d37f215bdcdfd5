package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storydesk/internal/config"
	"storydesk/internal/logger"
	"storydesk/internal/persistence"
	"storydesk/internal/pipeline"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "storydesk",
		Short: "Cluster incoming news into stories and select what to cover",
		Long: `storydesk ingests news articles, drops duplicates, groups articles about the
same real-world event into stories, and selects the most important stories per
category for downstream content generation.

Ingestion:
  storydesk ingest --file articles.json     Ingest a JSON array of articles
  storydesk worker --source redis|kafka     Consume the intake queue
  storydesk poll                            Poll configured RSS feeds on a schedule

Selection:
  storydesk select --subcategories "AI & Machine Learning,Markets"
  storydesk select --categories Technology,Business --total 15
  storydesk select top
  storydesk catalog

Operations:
  storydesk migrate up|status|down
  storydesk serve`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.storydesk.yaml or $HOME/.storydesk.yaml)")

	rootCmd.AddCommand(NewIngestCmd())
	rootCmd.AddCommand(NewWorkerCmd())
	rootCmd.AddCommand(NewPollCmd())
	rootCmd.AddCommand(NewSelectCmd())
	rootCmd.AddCommand(NewCatalogCmd())
	rootCmd.AddCommand(NewMigrateCmd())
	rootCmd.AddCommand(NewServeCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)
	if cfg.App.ConfigFile != "" {
		logger.Debug("Using config file", "path", cfg.App.ConfigFile)
	}
}

// openDatabase connects to the configured store without migrating it
func openDatabase(ctx context.Context) (persistence.Database, error) {
	cfg := config.Get()
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	db, err := persistence.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// buildService wires the full ingestion service; the caller closes it
func buildService(ctx context.Context) (*pipeline.Service, error) {
	cfg := config.Get()
	if err := cfg.ValidateIngestion(); err != nil {
		return nil, err
	}
	return pipeline.NewBuilder(cfg).Build(ctx)
}
