// Package embed provides the embedding and reranking providers used by the
// tier engine's two-stage retrieval: an Embedder turns text into a vector,
// and a Reranker scores (query, text) pairs for the rerank pass.
package embed

import (
	"context"
	"math"
)

// StaticDimensions is the embedding dimension produced by StaticEmbedder.
const StaticDimensions = 256

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding dimension this provider produces.
	Dimensions() int
	// ModelName returns the model identifier, used in cache keys and
	// health reporting.
	ModelName() string
	// Available checks whether the provider is ready to serve requests.
	Available(ctx context.Context) bool
	// Close releases resources held by the provider.
	Close() error
}

// normalizeVector returns a unit-length copy of v. A zero vector is
// returned unchanged.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
