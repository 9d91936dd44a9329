// Package mock provides in-memory implementations of the record store and
// the similarity index for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/pose-check/internal/store"
	"github.com/kozaktomas/pose-check/internal/vector"
)

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	images []store.Image
	scans  []store.Scan

	// Error injection
	CreateImageError   error
	ListImagesError    error
	RecordScanError    error
	SubmittersForError error
	SetCaptionError    error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{nextID: 1}
}

// SeedImage adds an image record directly, bypassing bind semantics.
func (m *Store) SeedImage(phash string) *store.Image {
	m.mu.Lock()
	defer m.mu.Unlock()
	img := store.Image{
		ID:        m.nextID,
		PHash:     phash,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.images = append(m.images, img)
	return &img
}

// SeedScan adds a scan record directly.
func (m *Store) SeedScan(imageID int64, submitterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addScanLocked(imageID, submitterID)
}

func (m *Store) addScanLocked(imageID int64, submitterID string) bool {
	for _, s := range m.scans {
		if s.ImageID == imageID && s.SubmitterID == submitterID {
			return false
		}
	}
	m.scans = append(m.scans, store.Scan{
		ID:          int64(len(m.scans) + 1),
		ImageID:     imageID,
		SubmitterID: submitterID,
		CreatedAt:   time.Now(),
	})
	return true
}

// CreateImage inserts a new image, rolling back if bind fails.
func (m *Store) CreateImage(ctx context.Context, phash string, bind func(id int64) error) (*store.Image, error) {
	if m.CreateImageError != nil {
		return nil, m.CreateImageError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	img := store.Image{
		ID:        m.nextID,
		PHash:     phash,
		CreatedAt: time.Now(),
	}

	if bind != nil {
		if err := bind(img.ID); err != nil {
			return nil, err
		}
	}

	m.nextID++
	m.images = append(m.images, img)
	return &img, nil
}

// GetImage returns an image by id, or nil if not found.
func (m *Store) GetImage(ctx context.Context, id int64) (*store.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.images {
		if m.images[i].ID == id {
			img := m.images[i]
			return &img, nil
		}
	}
	return nil, nil
}

// ListImages returns all images in creation order.
func (m *Store) ListImages(ctx context.Context) ([]store.Image, error) {
	if m.ListImagesError != nil {
		return nil, m.ListImagesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Image, len(m.images))
	copy(out, m.images)
	return out, nil
}

// RecordScan inserts a scan unless the pair already exists.
func (m *Store) RecordScan(ctx context.Context, imageID int64, submitterID string) (bool, error) {
	if m.RecordScanError != nil {
		return false, m.RecordScanError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addScanLocked(imageID, submitterID), nil
}

// SubmittersFor returns submitters of scans for the given images in
// submission order, duplicates preserved.
func (m *Store) SubmittersFor(ctx context.Context, imageIDs []int64) ([]string, error) {
	if m.SubmittersForError != nil {
		return nil, m.SubmittersForError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(imageIDs))
	for _, id := range imageIDs {
		wanted[id] = struct{}{}
	}

	matching := make([]store.Scan, 0)
	for _, s := range m.scans {
		if _, ok := wanted[s.ImageID]; ok {
			matching = append(matching, s)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		if !matching[i].CreatedAt.Equal(matching[j].CreatedAt) {
			return matching[i].CreatedAt.Before(matching[j].CreatedAt)
		}
		return matching[i].ID < matching[j].ID
	})

	submitters := make([]string, 0, len(matching))
	for _, s := range matching {
		submitters = append(submitters, s.SubmitterID)
	}
	return submitters, nil
}

// SetImageCaption writes the caption for an image.
func (m *Store) SetImageCaption(ctx context.Context, id int64, caption string) error {
	if m.SetCaptionError != nil {
		return m.SetCaptionError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.images {
		if m.images[i].ID == id {
			m.images[i].Caption = caption
			return nil
		}
	}
	return nil
}

// CountImages returns the number of image records.
func (m *Store) CountImages(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images), nil
}

// CountScans returns the number of scan records.
func (m *Store) CountScans(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scans), nil
}

// Scans returns a copy of all scan records, for assertions.
func (m *Store) Scans() []store.Scan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Scan, len(m.scans))
	copy(out, m.scans)
	return out
}

// Images returns a copy of all image records, for assertions.
func (m *Store) Images() []store.Image {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Image, len(m.images))
	copy(out, m.images)
	return out
}

// Index is an in-memory brute-force implementation of vector.Index with
// exact cosine scores.
type Index struct {
	mu      sync.RWMutex
	order   []string
	vectors map[string][]float32

	// Error injection
	UpsertError error
	QueryError  error
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

// Upsert stores an embedding under the given id.
func (m *Index) Upsert(ctx context.Context, id string, embedding []float32, metadata map[string]string) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vectors[id]; !ok {
		m.order = append(m.order, id)
	}
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	m.vectors[id] = vec
	return nil
}

// Query returns up to topK matches ordered by descending similarity,
// insertion order as tiebreak.
func (m *Index) Query(ctx context.Context, embedding []float32, topK int) ([]vector.Match, error) {
	if m.QueryError != nil {
		return nil, m.QueryError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]vector.Match, 0, len(m.order))
	for _, id := range m.order {
		matches = append(matches, vector.Match{
			ID:    id,
			Score: vector.CosineSimilarity(embedding, m.vectors[id]),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of stored embeddings.
func (m *Index) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors), nil
}

// Has reports whether an embedding exists for the given id, for assertions.
func (m *Index) Has(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vectors[id]
	return ok
}

// Verify interface compliance.
var _ store.Store = (*Store)(nil)
var _ vector.Index = (*Index)(nil)
