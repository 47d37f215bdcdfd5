// Package queue feeds intake records to the ingestion pipeline from Redis or Kafka.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"storydesk/internal/core"
)

// ErrMalformed marks payloads that can never be ingested
var ErrMalformed = errors.New("malformed article payload")

// Processor ingests one article
type Processor interface {
	Process(ctx context.Context, article core.IncomingArticle) core.IngestResult
}

// Enqueuer hands intake records to a worker
type Enqueuer interface {
	Enqueue(ctx context.Context, articles ...core.IncomingArticle) error
	Close() error
}

// DeadLetterSink parks records that could not be ingested
type DeadLetterSink interface {
	DeadLetter(ctx context.Context, payload []byte, cause error) error
}

// Failed is a dead-lettered intake record
type Failed struct {
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

// Decode parses one intake record
func Decode(payload []byte) (core.IncomingArticle, error) {
	var article core.IncomingArticle
	if err := json.Unmarshal(payload, &article); err != nil {
		return article, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if article.URL == "" || article.Title == "" {
		return article, fmt.Errorf("%w: url and title are required", ErrMalformed)
	}
	return article, nil
}

// dispatch decodes and processes one message. The returned error is non-nil when the
// message should be dead-lettered or left unacknowledged.
func dispatch(ctx context.Context, p Processor, payload []byte) (core.IngestResult, error) {
	article, err := Decode(payload)
	if err != nil {
		return core.IngestResult{Status: core.StatusError, Err: err, Error: err.Error()}, err
	}
	result := p.Process(ctx, article)
	if result.Status == core.StatusError {
		return result, result.Err
	}
	return result, nil
}

// encodeFailed wraps payload and cause as a Failed record. Payloads that are not JSON are
// kept as a string.
func encodeFailed(payload []byte, cause error) ([]byte, error) {
	raw := json.RawMessage(payload)
	if !json.Valid(payload) {
		raw, _ = json.Marshal(string(payload))
	}
	return json.Marshal(Failed{Payload: raw, Error: cause.Error()})
}
