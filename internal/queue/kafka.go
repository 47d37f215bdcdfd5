package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
)

// ArticleHandler adapts a Processor to Kafka messages
type ArticleHandler struct {
	Processor   Processor
	DeadLetters DeadLetterSink
	log         *slog.Logger
}

// NewArticleHandler creates a handler around p. deadLetters may be nil.
func NewArticleHandler(p Processor, deadLetters DeadLetterSink) *ArticleHandler {
	return &ArticleHandler{Processor: p, DeadLetters: deadLetters, log: logger.Get()}
}

// HandleMessage processes one message and reports whether its offset may be marked.
// Failed records are marked once they are dead-lettered. Malformed payloads are marked
// even when dead-lettering fails. An ingestion failure that could not be dead-lettered
// is left unmarked and returned.
func (h *ArticleHandler) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	_, err := dispatch(ctx, h.Processor, message)
	if err == nil {
		return true, nil
	}

	if h.DeadLetters != nil {
		dlErr := h.DeadLetters.DeadLetter(ctx, message, err)
		if dlErr == nil {
			h.log.Warn("Article moved to dead letter topic", "error", err)
			return true, nil
		}
		h.log.Error("Failed to dead-letter article", "error", dlErr)
	}

	if errors.Is(err, ErrMalformed) {
		h.log.Warn("Skipping malformed message", "error", err)
		return true, nil
	}
	return false, err
}

// KafkaConsumer reads intake records from a consumer group
type KafkaConsumer struct {
	group       sarama.ConsumerGroup
	handler     *ArticleHandler
	deadLetters *KafkaPublisher
	topic       string
	groupID     string
	log         *slog.Logger
}

func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	cfg.Consumer.Return.Errors = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	return cfg
}

// NewKafkaConsumer joins the configured consumer group. Failed records go to
// cfg.DeadLetterTopic when it is set.
func NewKafkaConsumer(cfg config.Kafka, p Processor) (*KafkaConsumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	var deadLetters *KafkaPublisher
	if cfg.DeadLetterTopic != "" {
		var err error
		deadLetters, err = NewKafkaPublisher(config.Kafka{Brokers: cfg.Brokers, Topic: cfg.DeadLetterTopic})
		if err != nil {
			return nil, fmt.Errorf("failed to create dead letter producer: %w", err)
		}
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, newSaramaConfig())
	if err != nil {
		if deadLetters != nil {
			_ = deadLetters.Close()
		}
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	c := &KafkaConsumer{
		group:       group,
		deadLetters: deadLetters,
		topic:       cfg.Topic,
		groupID:     cfg.GroupID,
		log:         logger.Get(),
	}
	// a nil *KafkaPublisher must not become a non-nil DeadLetterSink
	if deadLetters != nil {
		c.handler = NewArticleHandler(p, deadLetters)
	} else {
		c.handler = NewArticleHandler(p, nil)
	}
	return c, nil
}

// Run consumes until ctx is cancelled, rejoining the group after each rebalance
func (c *KafkaConsumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.log.Error("Kafka consumer error", "error", err)
		}
	}()

	c.log.Info("Kafka consumer started", "group", c.groupID, "topic", c.topic)
	handler := &groupHandler{handler: c.handler, log: c.log}
	for {
		err := c.group.Consume(ctx, []string{c.topic}, handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) || ctx.Err() != nil {
			return nil
		}
		if err != nil {
			c.log.Error("Error from Kafka consumer", "error", err)
		}
		// A session also ends when a claim stops on an unhandled record.
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Second):
		}
	}
}

// Close leaves the consumer group
func (c *KafkaConsumer) Close() error {
	c.log.Info("Closing Kafka consumer")
	err := c.group.Close()
	if c.deadLetters != nil {
		err = errors.Join(err, c.deadLetters.Close())
	}
	return err
}

// groupHandler implements sarama.ConsumerGroupHandler
type groupHandler struct {
	handler *ArticleHandler
	log     *slog.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	return h.consume(session.Context(), claim.Messages(), func(msg *sarama.ConsumerMessage) {
		session.MarkMessage(msg, "")
	})
}

// consume handles messages in order until one cannot be handled. Returning stops the
// claim, which ends the session, so the group resumes from the last marked offset and
// the failed record is delivered again.
func (h *groupHandler) consume(ctx context.Context, messages <-chan *sarama.ConsumerMessage, mark func(*sarama.ConsumerMessage)) error {
	for {
		select {
		case message, ok := <-messages:
			if !ok || message == nil {
				return nil
			}
			h.log.Debug("Received Kafka message",
				"partition", message.Partition,
				"offset", message.Offset,
				"key", string(message.Key))

			handled, err := h.handler.HandleMessage(ctx, message.Value)
			if !handled {
				h.log.Warn("Stopping claim on unhandled message",
					"partition", message.Partition,
					"offset", message.Offset,
					"error", err)
				return fmt.Errorf("message at offset %d not handled: %w", message.Offset, err)
			}
			mark(message)

		case <-ctx.Done():
			return nil
		}
	}
}

// KafkaPublisher writes intake records to the topic, keyed by URL
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaPublisher connects a synchronous producer
func NewKafkaPublisher(cfg config.Kafka) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return &KafkaPublisher{producer: producer, topic: cfg.Topic}, nil
}

// Enqueue publishes articles as one batch
func (p *KafkaPublisher) Enqueue(ctx context.Context, articles ...core.IncomingArticle) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(articles))
	for _, a := range articles {
		data, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to encode article %s: %w", a.URL, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(a.URL),
			Value: sarama.ByteEncoder(data),
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.producer.SendMessages(msgs)
}

// Close flushes and closes the producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// DeadLetter publishes a failed record to the publisher's topic
func (p *KafkaPublisher) DeadLetter(ctx context.Context, payload []byte, cause error) error {
	data, err := encodeFailed(payload, cause)
	if err != nil {
		return fmt.Errorf("failed to encode dead letter: %w", err)
	}
	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("failed to publish dead letter to %s: %w", p.topic, err)
	}
	return nil
}
