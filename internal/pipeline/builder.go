package pipeline

import (
	"context"
	"errors"
	"fmt"

	"storydesk/internal/adjudicator"
	"storydesk/internal/archive"
	"storydesk/internal/categorization"
	"storydesk/internal/config"
	"storydesk/internal/embedding"
	"storydesk/internal/fingerprint"
	"storydesk/internal/llm"
	"storydesk/internal/logger"
	"storydesk/internal/persistence"
	"storydesk/internal/selection"
	"storydesk/internal/similarity"
	"storydesk/internal/vectorstore"
)

// Service is a built pipeline together with the read side and the resources it holds open
type Service struct {
	DB       persistence.Database
	Pipeline *Pipeline
	Selector *selection.Selector
	Catalog  *selection.Catalog
	Taxonomy *categorization.Taxonomy
	Vectors  vectorstore.VectorStore

	closers []func() error
}

// Close releases everything the builder opened, in reverse order
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Builder provides a fluent interface for constructing the ingestion service.
// Anything not supplied explicitly is built from configuration.
type Builder struct {
	cfg      *config.Config
	db       persistence.Database
	embedder Embedder
	gen      llm.TextGenerator
	taxonomy *categorization.Taxonomy
	archiver Archiver
}

// NewBuilder creates a new builder over cfg
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithDatabase uses an already opened and migrated database. The caller keeps ownership.
func (b *Builder) WithDatabase(db persistence.Database) *Builder {
	b.db = db
	return b
}

// WithEmbedder sets the embedder
func (b *Builder) WithEmbedder(e Embedder) *Builder {
	b.embedder = e
	return b
}

// WithTextGenerator sets the model used for adjudication
func (b *Builder) WithTextGenerator(gen llm.TextGenerator) *Builder {
	b.gen = gen
	return b
}

// WithTaxonomy sets the category taxonomy
func (b *Builder) WithTaxonomy(t *categorization.Taxonomy) *Builder {
	b.taxonomy = t
	return b
}

// WithArchiver sets the intake archiver
func (b *Builder) WithArchiver(a Archiver) *Builder {
	b.archiver = a
	return b
}

// Build wires the stages together
func (b *Builder) Build(ctx context.Context) (_ *Service, err error) {
	cfg := b.cfg
	svc := &Service{}
	defer func() {
		if err != nil {
			_ = svc.Close()
		}
	}()

	db := b.db
	if db == nil {
		db, err = persistence.OpenAndMigrate(ctx, cfg.Database, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, db.Close)
	}
	svc.DB = db

	var store vectorstore.VectorStore
	if db.Dialect() == persistence.DialectSQLite {
		store = vectorstore.NewSQLiteStore(db.SQL())
	} else {
		store = vectorstore.NewPgVectorStore(db.SQL())
	}
	svc.Vectors = store

	embedder := b.embedder
	if embedder == nil {
		embedder, err = embedding.NewFromConfig(ctx, cfg.Embedding)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding provider: %w", err)
		}
	}

	gen := b.gen
	if gen == nil {
		gen, err = llm.New(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
	}

	taxonomy := b.taxonomy
	if taxonomy == nil {
		if cfg.Adjudicator.TaxonomyFile != "" {
			taxonomy, err = categorization.LoadTaxonomy(cfg.Adjudicator.TaxonomyFile)
			if err != nil {
				return nil, err
			}
		} else {
			taxonomy = categorization.DefaultTaxonomy()
		}
	}
	svc.Taxonomy = taxonomy

	var gate *fingerprint.Gate
	if cfg.Redis.Bloom.Enabled {
		bloom, err := fingerprint.NewRedisBloom(ctx, fingerprint.BloomConfig{
			URL:       cfg.Redis.URL,
			Key:       cfg.Redis.Bloom.Key,
			TTL:       cfg.Redis.Bloom.TTL,
			Capacity:  cfg.Redis.Bloom.Capacity,
			ErrorRate: cfg.Redis.Bloom.ErrorRate,
		})
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, bloom.Close)
		gate = fingerprint.NewGate(db.Articles(), bloom)
	} else {
		gate = fingerprint.NewGate(db.Articles(), nil)
	}

	judge := adjudicator.New(gen, taxonomy, adjudicator.Options{
		Timeout:             cfg.LLM.Timeout,
		StrictSubcategories: cfg.Adjudicator.StrictSubcategories,
		MaxCandidates:       cfg.Adjudicator.MaxCandidates,
	})

	svc.Pipeline = NewPipeline(
		gate,
		embedder,
		similarity.NewSearcher(store, cfg.Similarity),
		judge,
		persistence.NewPersister(db),
		&Config{Concurrency: cfg.Pipeline.Concurrency},
	)

	archiver := b.archiver
	if archiver == nil && cfg.Archive.Enabled {
		archiver, err = archive.NewS3Archive(ctx, cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive: %w", err)
		}
	}
	if archiver != nil {
		svc.Pipeline.WithArchiver(archiver)
	}

	svc.Selector = selection.NewSelector(db.Selection())
	svc.Catalog = selection.NewCatalog(db.Selection())

	logger.Info("Ingestion pipeline ready",
		"database", db.Dialect(),
		"embedding_provider", cfg.Embedding.Provider,
		"llm_provider", cfg.LLM.Provider,
		"bloom", cfg.Redis.Bloom.Enabled,
		"archive", archiver != nil)
	return svc, nil
}
