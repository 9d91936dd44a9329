package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/pose-check/internal/ai"
	"github.com/kozaktomas/pose-check/internal/checker"
	"github.com/kozaktomas/pose-check/internal/config"
	"github.com/kozaktomas/pose-check/internal/embedding"
	"github.com/kozaktomas/pose-check/internal/store/postgres"
)

// backends bundles everything a command needs to evaluate images.
type backends struct {
	cfg   *config.Config
	pool  *postgres.Pool
	store *postgres.Store
	index *postgres.EmbeddingIndex
}

// openBackends connects to PostgreSQL, runs migrations and optionally builds
// the in-memory HNSW index. The caller must Close the pool.
func openBackends(ctx context.Context) (*backends, error) {
	cfg := config.Load()

	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	index := postgres.NewEmbeddingIndex(pool, cfg.Embedding.Model)
	if cfg.Database.HNSWEnabled {
		fmt.Printf("Building in-memory HNSW index for image embeddings...\n")
		if err := index.EnableHNSW(ctx); err != nil {
			fmt.Printf("Warning: Failed to build HNSW index: %v\n", err)
			fmt.Printf("Similarity search will use PostgreSQL queries (slower)\n")
		} else {
			fmt.Printf("HNSW index built with %d embeddings (in-memory only)\n", index.HNSWCount())
		}
	}

	return &backends{
		cfg:   cfg,
		pool:  pool,
		store: postgres.NewStore(pool),
		index: index,
	}, nil
}

func (b *backends) close() {
	if err := b.pool.Close(); err != nil {
		fmt.Printf("Warning: closing database pool: %v\n", err)
	}
}

// newChecker wires the evaluator with the embedding client and the optional
// caption provider.
func (b *backends) newChecker(ctx context.Context) (*checker.Checker, error) {
	captioner, err := ai.NewProvider(ctx, b.cfg.Caption.Provider, b.cfg.Caption.OpenAIToken, b.cfg.Caption.GeminiKey)
	if err != nil {
		return nil, fmt.Errorf("creating caption provider: %w", err)
	}
	if captioner != nil {
		fmt.Printf("Captioning enabled via %s\n", captioner.Name())
	}

	embedder := embedding.NewClient(b.cfg.Embedding.URL, b.cfg.Embedding.Model)
	fmt.Printf("Embedding service at %s (model %s)\n", b.cfg.Embedding.URL, embedder.Model())

	opts := checker.Options{
		DistanceThreshold: b.cfg.Defaults.Thresholds.PHashDistance,
		ScoreThreshold:    b.cfg.Defaults.Thresholds.VectorScore,
		TopK:              b.cfg.Defaults.Thresholds.VectorTopK,
		ReferenceOwnerID:  b.cfg.Reference.OwnerID,
	}
	if captioner != nil {
		opts.Captioner = captioner
	}

	return checker.New(b.store, b.index, embedder, opts), nil
}
