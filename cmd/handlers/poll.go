package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storydesk/internal/categorization"
	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/feeds"
	"storydesk/internal/logger"
	"storydesk/internal/pipeline"
)

// NewPollCmd creates the poll command
func NewPollCmd() *cobra.Command {
	var (
		once   bool
		direct bool
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Poll configured RSS feeds and hand new items to the intake queue",
		Long: `Poll every feed listed in the taxonomy on feeds.schedule (cron syntax) and push
the items onto the Redis intake queue. Each item carries the category of the
feed it came from.

Examples:
  storydesk poll                  # run on schedule until interrupted
  storydesk poll --once           # one pass, then exit
  storydesk poll --once --direct  # ingest in-process instead of enqueueing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runPoll(ctx, once, direct)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "poll a single time and exit")
	cmd.Flags().BoolVar(&direct, "direct", false, "ingest items in-process instead of enqueueing them")
	return cmd
}

// batchSink ingests polled items in-process
type batchSink struct {
	pipeline *pipeline.Pipeline
}

func (s batchSink) Enqueue(ctx context.Context, articles ...core.IncomingArticle) error {
	summary := s.pipeline.ProcessBatch(ctx, articles)
	logger.Info("Ingested polled items",
		"new", summary.New,
		"appended", summary.Appended,
		"duplicates", summary.Duplicates,
		"errors", summary.Errors)
	return nil
}

func runPoll(ctx context.Context, once, direct bool) error {
	cfg := config.Get()
	log := logger.Get()

	taxonomy := categorization.DefaultTaxonomy()
	if cfg.Adjudicator.TaxonomyFile != "" {
		t, err := categorization.LoadTaxonomy(cfg.Adjudicator.TaxonomyFile)
		if err != nil {
			return err
		}
		taxonomy = t
	}
	sources := taxonomy.Feeds()
	if len(sources) == 0 {
		return fmt.Errorf("no feeds configured in the taxonomy")
	}

	var sink feeds.Sink
	if direct {
		svc, err := buildService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()
		sink = batchSink{pipeline: svc.Pipeline}
	} else {
		q, err := openEnqueuer(ctx, "redis")
		if err != nil {
			return err
		}
		defer q.Close()
		sink = q
	}

	poller := feeds.NewPoller(feeds.NewFeedManager(cfg.Feeds), sources, sink)
	if once {
		stats, err := poller.PollOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Polled %d feeds: %d items, %d not modified, %d failed\n",
			stats.Feeds, stats.Items, stats.NotModified, stats.Failed)
		return nil
	}

	scheduler, err := poller.Schedule(ctx, cfg.Feeds.Schedule)
	if err != nil {
		return err
	}
	log.Info("Feed poller started", "feeds", len(sources), "schedule", cfg.Feeds.Schedule)

	if _, err := poller.PollOnce(ctx); err != nil {
		log.Error("Initial poll failed", "error", err)
	}
	scheduler.Start()
	<-ctx.Done()

	log.Info("Stopping feed poller")
	<-scheduler.Stop().Done()
	return nil
}
