package vectorstore

import "context"

// Record is one embedded chunk stored in an index.
type Record struct {
	// ID uniquely identifies the record within its namespace. Upserting an
	// existing ID overwrites the stored record.
	ID string `json:"id"`

	// Values is the embedding vector. Every vector in one index must have
	// the index's dimension.
	Values []float32 `json:"values"`

	// Metadata carries the chunk text and its source label.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Match is a query result: a stored record and its similarity score.
type Match struct {
	ID       string            `json:"id"`
	Score    float32           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Store is a namespaced vector index. Namespaces isolate sessions from each
// other; a query never sees records written under another namespace.
type Store interface {
	// EnsureIndex makes sure the backing index exists with the given
	// dimension, creating it if needed. Concurrent callers may race to
	// create; an already-existing index is success.
	EnsureIndex(ctx context.Context, dimension int) error

	// Upsert writes records into a namespace and returns the count written.
	// Records with existing IDs are overwritten, which makes re-runs of the
	// same upload idempotent. An empty batch is a no-op returning 0. Records
	// with differing vector lengths fail the whole batch.
	Upsert(ctx context.Context, namespace string, records []Record) (int, error)

	// Query returns up to topK records most similar to the vector, most
	// similar first.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}
