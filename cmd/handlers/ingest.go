package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
	"storydesk/internal/queue"
)

// NewIngestCmd creates the ingest command
func NewIngestCmd() *cobra.Command {
	var (
		file    string
		enqueue string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest articles from a JSON file",
		Long: `Ingest articles from a file containing a JSON array of articles or one JSON
object per line. Use "-" to read from stdin.

Each article needs at least a title and a url:
  {"title": "...", "url": "...", "summary": "...", "source_name": "...",
   "feed_category": "Technology", "published_date": "2024-05-01T12:00:00Z"}

By default articles are processed in-process and a batch summary is printed.
With --enqueue the records are handed to the Redis or Kafka intake instead.

Examples:
  storydesk ingest --file articles.json
  cat articles.jsonl | storydesk ingest --file -
  storydesk ingest --file articles.json --enqueue redis`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), cmd.OutOrStdout(), file, enqueue)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file of articles (- for stdin)")
	cmd.Flags().StringVar(&enqueue, "enqueue", "", "hand records to an intake queue instead: redis or kafka")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runIngest(ctx context.Context, out io.Writer, file, enqueue string) error {
	articles, err := readArticlesFile(file)
	if err != nil {
		return err
	}
	if len(articles) == 0 {
		fmt.Fprintln(out, "No articles to ingest")
		return nil
	}

	if enqueue != "" {
		q, err := openEnqueuer(ctx, enqueue)
		if err != nil {
			return err
		}
		defer q.Close()

		if err := q.Enqueue(ctx, articles...); err != nil {
			return fmt.Errorf("failed to enqueue articles: %w", err)
		}
		fmt.Fprintf(out, "Enqueued %d articles to %s\n", len(articles), enqueue)
		return nil
	}

	svc, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	logger.Info("Ingesting articles", "count", len(articles), "file", file)
	summary := svc.Pipeline.ProcessBatch(ctx, articles)
	return printJSON(out, summary)
}

// openEnqueuer connects to the named intake
func openEnqueuer(ctx context.Context, name string) (queue.Enqueuer, error) {
	cfg := config.Get()
	switch strings.ToLower(name) {
	case "redis":
		return queue.NewRedisQueue(ctx, cfg.Redis)
	case "kafka":
		return queue.NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown queue %q (expected redis or kafka)", name)
	}
}

func readArticlesFile(path string) ([]core.IncomingArticle, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseArticles(data)
}

// parseArticles accepts a JSON array, {"articles": [...]}, or JSON lines
func parseArticles(data []byte) ([]core.IncomingArticle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var articles []core.IncomingArticle
		if err := json.Unmarshal(trimmed, &articles); err != nil {
			return nil, fmt.Errorf("invalid article array: %w", err)
		}
		return articles, nil
	}

	var wrapped struct {
		Articles []core.IncomingArticle `json:"articles"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err == nil && wrapped.Articles != nil {
		return wrapped.Articles, nil
	}

	var articles []core.IncomingArticle
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var a core.IncomingArticle
		if err := json.Unmarshal([]byte(text), &a); err != nil {
			return nil, fmt.Errorf("invalid article on line %d: %w", line, err)
		}
		articles = append(articles, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read articles: %w", err)
	}
	return articles, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
