package fingerprint

import (
	"context"
	"fmt"
	"log/slog"

	"storydesk/internal/logger"
)

// FingerprintLookup is an exact check against fingerprints already in the store
type FingerprintLookup interface {
	ExistsFingerprint(ctx context.Context, fp string) (bool, error)
}

// Filter is a probabilistic pre-filter in front of the store lookup
type Filter interface {
	MightContain(ctx context.Context, fp string) (bool, error)
	Add(ctx context.Context, fp string) error
}

// Gate rejects articles whose fingerprint is already stored
type Gate struct {
	lookup FingerprintLookup
	filter Filter
	log    *slog.Logger
}

// NewGate creates a gate backed by the store. filter may be nil.
func NewGate(lookup FingerprintLookup, filter Filter) *Gate {
	return &Gate{lookup: lookup, filter: filter, log: logger.Get()}
}

// IsDuplicate reports whether fp is already stored. The store is authoritative;
// the filter only short-circuits definite misses.
func (g *Gate) IsDuplicate(ctx context.Context, fp string) (bool, error) {
	if g.filter != nil {
		maybe, err := g.filter.MightContain(ctx, fp)
		switch {
		case err != nil:
			g.log.Warn("Bloom filter check failed, falling back to store lookup", "fingerprint", fp, "error", err)
		case !maybe:
			return false, nil
		}
	}

	exists, err := g.lookup.ExistsFingerprint(ctx, fp)
	if err != nil {
		return false, fmt.Errorf("fingerprint lookup failed: %w", err)
	}
	return exists, nil
}

// Remember records a committed fingerprint in the filter. Failures are logged only.
func (g *Gate) Remember(ctx context.Context, fp string) {
	if g.filter == nil {
		return
	}
	if err := g.filter.Add(ctx, fp); err != nil {
		g.log.Warn("Failed to add fingerprint to Bloom filter", "fingerprint", fp, "error", err)
	}
}
