package vector

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"length mismatch", []float32{1, 2}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.expected) > 1e-9 {
				t.Errorf("CosineSimilarity = %v; want %v", got, tc.expected)
			}
		})
	}
}

func TestGraph_AddAndSearch(t *testing.T) {
	g := NewGraph()

	embeddings := map[string][]float32{
		"1": {1, 0, 0},
		"2": {0.9, 0.1, 0},
		"3": {0, 1, 0},
		"4": {0, 0, 1},
	}
	for id, emb := range embeddings {
		if err := g.Add(id, emb); err != nil {
			t.Fatalf("Add(%s) failed: %v", id, err)
		}
	}

	if g.Count() != 4 {
		t.Errorf("expected count 4, got %d", g.Count())
	}

	matches := g.Search([]float32{1, 0, 0}, 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "1" {
		t.Errorf("expected exact match first, got %s", matches[0].ID)
	}
	if matches[0].Score < matches[1].Score {
		t.Errorf("matches not ordered by descending score: %v", matches)
	}
	if math.Abs(matches[0].Score-1) > 1e-6 {
		t.Errorf("expected exact match score 1, got %v", matches[0].Score)
	}
}

func TestGraph_EmptySearch(t *testing.T) {
	g := NewGraph()
	if matches := g.Search([]float32{1, 0}, 5); len(matches) != 0 {
		t.Errorf("expected no matches on empty graph, got %v", matches)
	}
}

func TestGraph_AddEmptyEmbedding(t *testing.T) {
	g := NewGraph()
	if err := g.Add("1", nil); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestGraph_UpsertSameID(t *testing.T) {
	g := NewGraph()
	if err := g.Add("1", []float32{1, 0}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := g.Add("1", []float32{0, 1}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if g.Count() != 1 {
		t.Errorf("expected count 1 after re-adding same id, got %d", g.Count())
	}
}
