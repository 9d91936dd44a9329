package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/pose-check/internal/vector"
)

// EmbeddingIndex is the similarity index: the embeddings table is the
// durable system of record, with an optional in-memory HNSW graph kept in
// lockstep for fast queries. Insert-only; the graph is rebuilt from the
// table at startup.
type EmbeddingIndex struct {
	pool  *Pool
	model string

	mu          sync.RWMutex
	graph       *vector.Graph
	hnswEnabled bool
}

// NewEmbeddingIndex creates a new PostgreSQL-backed similarity index.
func NewEmbeddingIndex(pool *Pool, model string) *EmbeddingIndex {
	return &EmbeddingIndex{pool: pool, model: model}
}

// EnableHNSW builds the in-memory HNSW graph from the embeddings table.
// Should be called once at startup; queries fall back to pgvector when
// disabled.
func (ix *EmbeddingIndex) EnableHNSW(ctx context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	graph := vector.NewGraph()

	rows, err := ix.pool.Query(ctx, "SELECT image_id, embedding FROM embeddings ORDER BY image_id")
	if err != nil {
		return fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return fmt.Errorf("scan embedding: %w", err)
		}
		if err := graph.Add(id, vec.Slice()); err != nil {
			return fmt.Errorf("index embedding %s: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate embeddings: %w", err)
	}

	ix.graph = graph
	ix.hnswEnabled = true
	return nil
}

// Upsert stores an embedding with opaque metadata. The table write and the
// graph update happen together so queries through either path agree.
func (ix *EmbeddingIndex) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]string) error {
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	vec := pgvector.NewVector(embedding)
	_, err = ix.pool.Exec(ctx, `
		INSERT INTO embeddings (image_id, embedding, metadata, model, dim)
		VALUES ($1, $2::vector, $3, $4, $5)
		ON CONFLICT (image_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			model = EXCLUDED.model,
			dim = EXCLUDED.dim
	`, id, vec, meta, ix.model, len(embedding))
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}

	ix.mu.RLock()
	graph, enabled := ix.graph, ix.hnswEnabled
	ix.mu.RUnlock()

	if enabled {
		if err := graph.Add(id, embedding); err != nil {
			return fmt.Errorf("index embedding %s: %w", id, err)
		}
	}
	return nil
}

// Query returns up to topK matches ordered by descending cosine similarity.
func (ix *EmbeddingIndex) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	ix.mu.RLock()
	graph, enabled := ix.graph, ix.hnswEnabled
	ix.mu.RUnlock()

	if enabled {
		return graph.Search(embedding, topK), nil
	}
	return ix.queryPgvector(ctx, embedding, topK)
}

// queryPgvector runs the nearest-neighbor query on the pgvector index.
// <=> is cosine distance; similarity = 1 - distance.
func (ix *EmbeddingIndex) queryPgvector(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	vec := pgvector.NewVector(embedding)
	rows, err := ix.pool.Query(ctx, `
		SELECT image_id, embedding <=> $1::vector AS distance
		FROM embeddings
		ORDER BY distance
		LIMIT $2
	`, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("query similar embeddings: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var m vector.Match
		var distance float64
		if err := rows.Scan(&m.ID, &distance); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		m.Score = 1 - distance
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

// Count returns the number of stored embeddings.
func (ix *EmbeddingIndex) Count(ctx context.Context) (int, error) {
	var count int
	if err := ix.pool.QueryRow(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&count); err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// HasEmbedding reports whether an embedding row exists for the given id.
func (ix *EmbeddingIndex) HasEmbedding(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := ix.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM embeddings WHERE image_id = $1)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check embedding %s: %w", id, err)
	}
	return exists, nil
}

// HNSWCount returns the number of embeddings in the in-memory graph.
func (ix *EmbeddingIndex) HNSWCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.graph == nil {
		return 0
	}
	return ix.graph.Count()
}

// IsHNSWEnabled returns whether the in-memory graph is serving queries.
func (ix *EmbeddingIndex) IsHNSWEnabled() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.hnswEnabled
}

// Verify interface compliance.
var _ vector.Index = (*EmbeddingIndex)(nil)
