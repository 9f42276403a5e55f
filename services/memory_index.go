package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github/vikram-s/docchat/models"
)

// MemoryIndex is an in-process VectorIndex using brute-force cosine
// similarity. It backs tests and Chroma-less development runs.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]models.IndexEntry
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string]map[string]models.IndexEntry)}
}

// Upsert implements VectorIndex. Entries with a known id overwrite in place.
func (m *MemoryIndex) Upsert(_ context.Context, namespace string, entries []models.IndexEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns := m.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]models.IndexEntry)
		m.namespaces[namespace] = ns
	}
	dimension := m.dimensionLocked(ns)
	for _, entry := range entries {
		if len(entry.Vector) == 0 {
			return fmt.Errorf("%w: entry %q has an empty vector", ErrVectorIndex, entry.ID)
		}
		if dimension == 0 {
			dimension = len(entry.Vector)
		}
		if len(entry.Vector) != dimension {
			return fmt.Errorf("%w: vector dimension %d does not match namespace dimension %d", ErrVectorIndex, len(entry.Vector), dimension)
		}
		ns[entry.ID] = entry
	}
	return nil
}

// Query implements VectorIndex. An empty or unknown namespace returns nil.
func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ns := m.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}

	results := make([]models.SearchResult, 0, len(ns))
	for _, entry := range ns {
		results = append(results, models.SearchResult{
			Text:       entry.Text,
			PageNumber: entry.PageNumber,
			Score:      cosineSimilarity(vector, entry.Vector),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// DeleteNamespace implements VectorIndex. Unknown namespaces are a no-op.
func (m *MemoryIndex) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.namespaces, namespace)
	return nil
}

func (m *MemoryIndex) dimensionLocked(ns map[string]models.IndexEntry) int {
	for _, entry := range ns {
		return len(entry.Vector)
	}
	return 0
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
