package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// HashEmbedder produces deterministic pseudo-embeddings from text content.
// It is used when no embedding credential is configured so the pipeline
// stays exercisable end to end. Identical texts always map to identical
// vectors; similarity scores carry no semantic meaning.
type HashEmbedder struct {
	dimension int
}

// NewHashEmbedder creates a hash embedder with the given vector length.
func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{dimension: dimension}
}

// Embed derives one vector per text from FNV-1a hashes of the text and the
// component index. Values fall in [-1, 1).
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for j := range vec {
			h := fnv.New64a()
			h.Write([]byte(text))
			h.Write([]byte{byte(j), byte(j >> 8)})
			// Map the hash onto [-1, 1)
			vec[j] = float32(h.Sum64()%2048)/1024.0 - 1.0
		}
		normalize(vec)
		results[i] = vec
	}
	return results, nil
}

// Dimension returns the embedding dimension.
func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

// normalize scales a vector to unit length in place. Zero vectors are left
// untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
