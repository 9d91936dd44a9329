// Package vector defines the similarity index used for semantic duplicate
// detection: embeddings go in, nearest neighbors with similarity scores come
// out. The index is insert-only.
package vector

import (
	"context"
	"math"
)

const (
	// DefaultScoreThreshold is the minimum cosine similarity for a semantic
	// duplicate. Strict greater-than: a score of exactly this value is not
	// a match.
	DefaultScoreThreshold = 0.96

	// DefaultTopK is the number of neighbors requested per query.
	DefaultTopK = 10
)

// HNSW graph parameters for image embeddings.
const (
	// MaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	MaxNeighbors = 16
)

// Match is one nearest-neighbor result.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"` // cosine similarity, higher is closer
}

// Index stores embeddings and answers nearest-neighbor queries. It is the
// system of record for embeddings; fingerprints and identities live in the
// relational store.
type Index interface {
	// Upsert stores an embedding under the given id with opaque metadata.
	Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]string) error

	// Query returns up to topK matches ordered by descending similarity.
	Query(ctx context.Context, embedding []float32, topK int) ([]Match, error)

	// Count returns the number of stored embeddings.
	Count(ctx context.Context) (int, error)
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical; 0 for invalid
// or zero-magnitude input.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp to [-1, 1] to handle floating point errors.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return similarity
}
