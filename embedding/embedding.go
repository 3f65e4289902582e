package embedding

import (
	"context"

	"github.com/jobtalk/jobtalk/config"
)

// Embedder generates embedding vectors from text. Implementations must
// return one vector per input text, in input order, all of length
// Dimension().
type Embedder interface {
	// Embed generates vector representations of the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the length of every vector this embedder produces.
	Dimension() int
}

// FromConfig selects the embedder for the given configuration: the OpenAI
// embedder when an API key is present, otherwise the deterministic hash
// embedder. The choice is fixed at startup so that every vector written to
// one index shares the same length.
func FromConfig(cfg *config.Config) Embedder {
	if cfg.OpenAI.APIKey == "" {
		return NewHashEmbedder(config.FallbackEmbeddingDim)
	}
	return NewOpenAIEmbedder(OpenAIConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.EmbeddingModel,
	})
}
