package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"vigil/internal/screening/models"
)

// InMemoryIndex is a linear-scan cosine similarity index. Suitable for
// tests and small deployments; larger corpora belong in the pgvector
// backed index.
type InMemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]models.VectorEntry // keyed by dataset + "/" + record ID
}

// NewInMemoryIndex creates an empty in-memory vector index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{entries: make(map[string]models.VectorEntry)}
}

// Upsert stores entries, replacing any existing vector for the same record.
func (s *InMemoryIndex) Upsert(_ context.Context, entries []models.VectorEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		s.entries[entry.Dataset+"/"+entry.RecordID] = entry
	}
	return nil
}

// DeleteDataset removes every vector of a dataset.
func (s *InMemoryIndex) DeleteDataset(_ context.Context, dataset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if entry.Dataset == dataset {
			delete(s.entries, key)
		}
	}
	return nil
}

// Query returns the topK most similar entries, optionally restricted to a
// set of datasets. Results are sorted by score descending; ties break on
// record ID ascending so repeated queries are stable.
func (s *InMemoryIndex) Query(_ context.Context, vector []float32, topK int, datasets []string) ([]models.VectorHit, error) {
	if topK <= 0 || len(vector) == 0 {
		return nil, nil
	}

	allowed := make(map[string]struct{}, len(datasets))
	for _, dataset := range datasets {
		allowed[dataset] = struct{}{}
	}

	s.mu.RLock()
	hits := make([]models.VectorHit, 0, len(s.entries))
	for _, entry := range s.entries {
		if len(allowed) > 0 {
			if _, ok := allowed[entry.Dataset]; !ok {
				continue
			}
		}
		hits = append(hits, models.VectorHit{
			RecordID: entry.RecordID,
			Dataset:  entry.Dataset,
			Score:    cosineSimilarity(vector, entry.Vector),
		})
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].RecordID < hits[j].RecordID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
