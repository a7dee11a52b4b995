// Package retriever executes retrieval strategies over the corpus: semantic
// search through a chromem-go collection of embedded chunks, keyword search
// through an in-memory bleve index, and the fused strategies built on top.
package retriever

import (
	"time"

	"github.com/tobiasweide/ragent/internal/router"
)

// Hit is one retrieved document or chunk with its strategy-local score.
// Scores are not comparable across strategies.
type Hit struct {
	DocumentID string  `json:"document_id,omitempty"`
	ChunkID    string  `json:"chunk_id,omitempty"`
	Title      string  `json:"title"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`

	updatedAt time.Time
}

// key identifies a hit across result lists for fusion and deduplication.
func (h Hit) key() string {
	if h.DocumentID != "" {
		return h.DocumentID
	}
	return h.Title
}

// Result is the outcome of one retrieval pass. Scores runs parallel to
// Hits: Scores[i] always equals Hits[i].Score.
type Result struct {
	Hits      []Hit             `json:"hits"`
	Scores    []float64         `json:"scores"`
	Method    router.Strategy   `json:"method"`
	QueryUsed string            `json:"query_used"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Empty reports whether the pass retrieved nothing.
func (r Result) Empty() bool { return len(r.Hits) == 0 }

func finalize(hits []Hit, method router.Strategy, query string) Result {
	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
	}
	return Result{
		Hits:      hits,
		Scores:    scores,
		Method:    method,
		QueryUsed: query,
	}
}
