// Package embed turns document text into embedding vectors.
package embed

import (
	"context"
	"math"
	"time"
)

// Hugging Face inference constants
const (
	// DefaultHFBaseURL is the hosted inference API.
	DefaultHFBaseURL = "https://api-inference.huggingface.co"

	// DefaultHFModel produces 384-dimension sentence embeddings.
	DefaultHFModel = "sentence-transformers/all-MiniLM-L6-v2"

	// DefaultHFDimensions is the output size of DefaultHFModel.
	DefaultHFDimensions = 384

	// DefaultVerifyTimeout bounds the request made by Available.
	DefaultVerifyTimeout = 30 * time.Second
)

// Static embedder constants
const (
	// StaticDimensions matches DefaultHFDimensions so offline runs produce
	// rows of the same shape.
	StaticDimensions = 384
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates the embedding of one document
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string

	// Available checks if the embedder is ready
	Available(ctx context.Context) bool

	// Close releases resources
	Close() error
}

// normalizeVector normalizes a vector to unit length.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}

	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
