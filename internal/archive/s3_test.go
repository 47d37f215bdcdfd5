package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"storydesk/internal/core"
)

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakePutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(params.Body)
	f.inputs = append(f.inputs, params)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	ts := time.Date(2024, 3, 9, 23, 30, 0, 0, time.FixedZone("X", -2*3600))
	got := ObjectKey("incoming/", "abc123", ts)
	want := "incoming/2024/03/10/abc123.json"
	if got != want {
		t.Errorf("ObjectKey() = %q, want %q", got, want)
	}
}

func TestArchiveArticle(t *testing.T) {
	putter := &fakePutter{}
	a := newS3Archive(putter, "news-bucket", "raw")
	a.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	in := core.IncomingArticle{Title: "Rates held", URL: "https://example.com/a"}
	if err := a.ArchiveArticle(context.Background(), "fp1", in); err != nil {
		t.Fatalf("ArchiveArticle() error = %v", err)
	}

	if len(putter.inputs) != 1 {
		t.Fatalf("expected 1 upload, got %d", len(putter.inputs))
	}
	input := putter.inputs[0]
	if aws.ToString(input.Bucket) != "news-bucket" {
		t.Errorf("bucket = %q", aws.ToString(input.Bucket))
	}
	if aws.ToString(input.Key) != "raw/2024/01/02/fp1.json" {
		t.Errorf("key = %q", aws.ToString(input.Key))
	}

	var rec record
	if err := json.Unmarshal(putter.bodies[0], &rec); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if rec.Fingerprint != "fp1" || rec.Article.Title != "Rates held" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestArchiveArticleError(t *testing.T) {
	a := newS3Archive(&fakePutter{err: errors.New("denied")}, "b", "")
	if err := a.ArchiveArticle(context.Background(), "fp", core.IncomingArticle{}); err == nil {
		t.Fatal("expected upload error")
	}
}
