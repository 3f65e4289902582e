package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/jobtalk/jobtalk/errors"
)

// MemoryStore is an in-memory Store keyed by namespace. It is safe for
// concurrent use and exists for tests and keyless single-process runs; data
// does not survive a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	dimension  int
	namespaces map[string]map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]map[string]Record),
	}
}

// EnsureIndex fixes the store's dimension on first call. A later call with a
// different dimension fails, mirroring a real index whose dimension is
// immutable after creation.
func (s *MemoryStore) EnsureIndex(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.Newf(errors.ErrCodeInvalidInput, "index dimension must be positive, got %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = dimension
		return nil
	}
	if s.dimension != dimension {
		return errors.DimensionMismatch(s.dimension, dimension)
	}
	return nil
}

// Upsert writes records into a namespace, overwriting records with the same ID.
func (s *MemoryStore) Upsert(ctx context.Context, namespace string, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	want := s.dimension
	if want == 0 {
		want = len(records[0].Values)
	}
	for _, r := range records {
		if len(r.Values) != want {
			return 0, errors.DimensionMismatch(want, len(r.Values))
		}
	}

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]Record, len(records))
		s.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
	}
	return len(records), nil
}

// Query ranks the namespace's records by cosine similarity to the vector and
// returns the top topK, most similar first. An unknown namespace yields no
// matches.
func (s *MemoryStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "topK must be positive, got %d", topK)
	}
	if s.dimension > 0 && len(vector) != s.dimension {
		return nil, errors.DimensionMismatch(s.dimension, len(vector))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ns := s.namespaces[namespace]
	matches := make([]Match, 0, len(ns))
	for _, r := range ns {
		matches = append(matches, Match{
			ID:       r.ID,
			Score:    cosineSimilarity(vector, r.Values),
			Metadata: r.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// cosineSimilarity computes the cosine similarity between two vectors of
// equal length. Zero vectors score 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
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
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
