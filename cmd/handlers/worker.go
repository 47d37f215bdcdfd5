package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"storydesk/internal/config"
	"storydesk/internal/logger"
	"storydesk/internal/queue"
)

// NewWorkerCmd creates the worker command
func NewWorkerCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume the intake queue and ingest each article",
		Long: `Run a long-lived ingestion worker.

Sources:
  redis   BRPOP from redis.queue_key; failures go to redis.dead_letter_key
  kafka   join kafka.group_id and consume kafka.topic

Examples:
  storydesk worker --source redis
  KAFKA_BROKERS=localhost:9092 storydesk worker --source kafka`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx, source)
		},
	}

	cmd.Flags().StringVar(&source, "source", "redis", "intake source: redis or kafka")
	return cmd
}

func runWorker(ctx context.Context, source string) error {
	cfg := config.Get()
	log := logger.Get()

	svc, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	switch strings.ToLower(source) {
	case "redis":
		q, err := queue.NewRedisQueue(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer q.Close()
		return q.Run(ctx, svc.Pipeline)

	case "kafka":
		consumer, err := queue.NewKafkaConsumer(cfg.Kafka, svc.Pipeline)
		if err != nil {
			return err
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				log.Warn("Failed to close Kafka consumer", "error", err)
			}
		}()
		return consumer.Run(ctx)

	default:
		return fmt.Errorf("unknown source %q (expected redis or kafka)", source)
	}
}
