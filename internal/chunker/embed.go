package chunker

import (
	"context"
	"fmt"

	"github.com/tobiasweide/ragent/internal/embeddings"
)

// SplitAndEmbed chunks content and attaches one embedding per chunk. An
// embedder failure fails the whole call; there is no partial chunk set.
func SplitAndEmbed(ctx context.Context, embedder embeddings.Embedder, docID, content string, strategy Strategy, opts Options) ([]Chunk, error) {
	chunks, err := Split(docID, content, strategy, opts)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %d chunks for document %s: %w", len(chunks), docID, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}
	return chunks, nil
}
