// Package archive keeps raw copies of accepted intake records in S3.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"storydesk/internal/config"
	"storydesk/internal/core"
	"storydesk/internal/logger"
)

// objectPutter is the slice of the S3 API the archive uses
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes one JSON object per accepted article
type S3Archive struct {
	client objectPutter
	bucket string
	prefix string
	log    *slog.Logger
	now    func() time.Time
}

// record is the archived form of an intake article
type record struct {
	Fingerprint string               `json:"fingerprint"`
	ArchivedAt  time.Time            `json:"archived_at"`
	Article     core.IncomingArticle `json:"article"`
}

// NewS3Archive loads AWS credentials from the default chain
func NewS3Archive(ctx context.Context, cfg config.Archive) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return newS3Archive(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
}

func newS3Archive(client objectPutter, bucket, prefix string) *S3Archive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archive{
		client: client,
		bucket: bucket,
		prefix: prefix,
		log:    logger.Get(),
		now:    time.Now,
	}
}

// ObjectKey partitions archived records by UTC day
func ObjectKey(prefix, fingerprint string, t time.Time) string {
	return prefix + path.Join(t.UTC().Format("2006/01/02"), fingerprint+".json")
}

// ArchiveArticle uploads the raw record under its fingerprint
func (a *S3Archive) ArchiveArticle(ctx context.Context, fingerprint string, article core.IncomingArticle) error {
	now := a.now()
	body, err := json.Marshal(record{Fingerprint: fingerprint, ArchivedAt: now.UTC(), Article: article})
	if err != nil {
		return fmt.Errorf("failed to encode archive record: %w", err)
	}

	key := ObjectKey(a.prefix, fingerprint, now)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object to S3: %w", err)
	}

	a.log.Debug("Archived article", "bucket", a.bucket, "key", key)
	return nil
}
