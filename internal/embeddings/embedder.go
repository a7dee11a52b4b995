// Package embeddings wraps the external embedding encoder behind a narrow
// interface. The engine never computes embeddings itself.
package embeddings

import "context"

// Embedder generates fixed-dimensionality embedding vectors for texts.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimensionality.
	Dimensions() int

	// Name returns the embedding model identifier.
	Name() string
}
