package vector

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// Graph wraps an HNSW graph for embedding search. Safe for concurrent use.
// Nodes are never removed; the index is rebuilt from the durable store at
// startup.
type Graph struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[string]
	ids   map[string]struct{}
}

// NewGraph creates an empty HNSW graph with cosine distance.
func NewGraph() *Graph {
	g := hnsw.NewGraph[string]()
	g.M = MaxNeighbors
	g.Ml = 1.0 / float64(MaxNeighbors) // standard HNSW formula
	g.Distance = hnsw.CosineDistance
	return &Graph{
		graph: g,
		ids:   make(map[string]struct{}),
	}
}

// Add inserts or replaces an embedding under the given id.
func (g *Graph) Add(id string, embedding []float32) error {
	if len(embedding) == 0 {
		return errors.New("empty embedding")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.graph.Add(hnsw.MakeNode(id, embedding))
	g.ids[id] = struct{}{}
	return nil
}

// Search returns up to k matches ordered by descending cosine similarity.
func (g *Graph) Search(query []float32, k int) []Match {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(g.ids) == 0 {
		return nil
	}

	neighbors := g.graph.Search(query, k)

	matches := make([]Match, 0, len(neighbors))
	for _, n := range neighbors {
		// Recompute similarity from the node's own embedding; the graph
		// search already orders by distance but does not expose it.
		matches = append(matches, Match{
			ID:    n.Key,
			Score: CosineSimilarity(query, n.Value),
		})
	}
	return matches
}

// Count returns the number of indexed embeddings.
func (g *Graph) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.ids)
}
