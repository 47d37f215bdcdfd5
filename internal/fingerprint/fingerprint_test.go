package fingerprint

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/News/Item", "https://example.com/News/Item"},
		{"drops fragment", "https://example.com/a#comments", "https://example.com/a"},
		{"drops tracking params", "https://example.com/a?utm_source=x&id=7&fbclid=abc&GCLID=q", "https://example.com/a?id=7"},
		{"trims trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"trims whitespace", "  https://example.com/a  ", "https://example.com/a"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompute(t *testing.T) {
	a, err := Compute("https://Example.com/story/?utm_campaign=feed")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	b, err := Compute("https://example.com/story")
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if a != b {
		t.Errorf("expected equivalent URLs to share a fingerprint: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}

	c, _ := Compute("https://example.com/other")
	if c == a {
		t.Error("expected different URLs to have different fingerprints")
	}

	if _, err := Compute(""); !errors.Is(err, ErrEmptyURL) {
		t.Errorf("Compute(\"\") error = %v, want ErrEmptyURL", err)
	}
}

type fakeLookup struct {
	stored map[string]bool
	err    error
	calls  int
}

func (f *fakeLookup) ExistsFingerprint(ctx context.Context, fp string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.stored[fp], nil
}

type fakeFilter struct {
	items map[string]bool
	err   error
}

func (f *fakeFilter) MightContain(ctx context.Context, fp string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.items[fp], nil
}

func (f *fakeFilter) Add(ctx context.Context, fp string) error {
	if f.err != nil {
		return f.err
	}
	f.items[fp] = true
	return nil
}

func TestGateWithoutFilter(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{stored: map[string]bool{"seen": true}}
	gate := NewGate(lookup, nil)

	dup, err := gate.IsDuplicate(ctx, "seen")
	if err != nil || !dup {
		t.Errorf("IsDuplicate(seen) = (%v, %v), want (true, nil)", dup, err)
	}
	dup, err = gate.IsDuplicate(ctx, "fresh")
	if err != nil || dup {
		t.Errorf("IsDuplicate(fresh) = (%v, %v), want (false, nil)", dup, err)
	}

	lookup.err = errors.New("connection refused")
	if _, err := gate.IsDuplicate(ctx, "fresh"); err == nil {
		t.Error("expected lookup error to propagate")
	}
}

func TestGateFilterShortCircuits(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{stored: map[string]bool{"seen": true}}
	filter := &fakeFilter{items: map[string]bool{}}
	gate := NewGate(lookup, filter)

	dup, err := gate.IsDuplicate(ctx, "fresh")
	if err != nil || dup {
		t.Fatalf("IsDuplicate(fresh) = (%v, %v)", dup, err)
	}
	if lookup.calls != 0 {
		t.Errorf("expected definite miss to skip the store, got %d lookups", lookup.calls)
	}

	gate.Remember(ctx, "seen")
	dup, err = gate.IsDuplicate(ctx, "seen")
	if err != nil || !dup {
		t.Fatalf("IsDuplicate(seen) = (%v, %v)", dup, err)
	}
	if lookup.calls != 1 {
		t.Errorf("expected filter hit to be confirmed by the store, got %d lookups", lookup.calls)
	}
}

func TestGateFilterFalsePositive(t *testing.T) {
	lookup := &fakeLookup{stored: map[string]bool{}}
	filter := &fakeFilter{items: map[string]bool{"collision": true}}
	gate := NewGate(lookup, filter)

	dup, err := gate.IsDuplicate(context.Background(), "collision")
	if err != nil || dup {
		t.Errorf("store should override filter false positive, got (%v, %v)", dup, err)
	}
}

func TestGateFilterErrorFallsBack(t *testing.T) {
	lookup := &fakeLookup{stored: map[string]bool{"seen": true}}
	filter := &fakeFilter{items: map[string]bool{}, err: errors.New("BF module not loaded")}
	gate := NewGate(lookup, filter)

	dup, err := gate.IsDuplicate(context.Background(), "seen")
	if err != nil || !dup {
		t.Errorf("IsDuplicate = (%v, %v), want store answer", dup, err)
	}
	gate.Remember(context.Background(), "seen") // must not panic
}

func TestRedisBloom(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set")
	}
	ctx := context.Background()
	key := "storydesk:test:bloom:" + time.Now().Format("150405.000000")

	rb, err := NewRedisBloom(ctx, BloomConfig{URL: redisURL, Key: key, TTL: time.Minute, Capacity: 1000, ErrorRate: 0.01})
	if err != nil {
		t.Fatalf("NewRedisBloom() error = %v", err)
	}
	defer rb.Close()
	defer rb.client.Del(ctx, key)

	if ok, err := rb.MightContain(ctx, "abc"); err != nil {
		t.Skipf("RedisBloom module unavailable: %v", err)
	} else if ok {
		t.Fatal("expected empty filter to report absent")
	}
	if err := rb.Add(ctx, "abc"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if ok, err := rb.MightContain(ctx, "abc"); err != nil || !ok {
		t.Errorf("MightContain after Add = (%v, %v)", ok, err)
	}
}
