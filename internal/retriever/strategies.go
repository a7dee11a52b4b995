package retriever

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"

	"github.com/tobiasweide/ragent/internal/router"
)

// Retrieve executes the decision's strategy and returns at most topK hits.
func (e *Engine) Retrieve(ctx context.Context, query string, decision router.Decision, topK int) (Result, error) {
	if topK <= 0 {
		return Result{}, fmt.Errorf("topK must be positive, got %d", topK)
	}

	switch decision.Strategy {
	case router.StrategySemantic:
		return e.semantic(ctx, query, topK)
	case router.StrategyKeyword:
		return e.keyword(ctx, query, topK)
	case router.StrategyHybrid:
		return e.hybrid(ctx, query, topK)
	case router.StrategyMultiQuery:
		return e.multiQuery(ctx, query, decision, topK)
	case router.StrategyRAGFusion:
		return e.ragFusion(ctx, query, topK)
	case router.StrategyDirectAnswer:
		return Result{Method: router.StrategyDirectAnswer, QueryUsed: query}, nil
	default:
		return Result{}, fmt.Errorf("unknown retrieval strategy %q", decision.Strategy)
	}
}

// semantic embeds the query and ranks chunks by cosine similarity. Ties
// break toward the more recently updated document.
func (e *Engine) semantic(ctx context.Context, query string, topK int) (Result, error) {
	if e.search != nil {
		return e.managed(ctx, query, topK, router.StrategySemantic)
	}

	count := e.collection.Count()
	if count == 0 {
		return finalize(nil, router.StrategySemantic, query), nil
	}

	// chromem-go rejects nResults larger than the collection.
	limit := topK * 3
	if limit > count {
		limit = count
	}

	results, err := e.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return Result{}, fmt.Errorf("semantic query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		docID := r.Metadata["doc_id"]
		hit := Hit{
			DocumentID: docID,
			ChunkID:    r.ID,
			Text:       r.Content,
			Score:      float64(r.Similarity),
		}
		if doc, ok := e.document(docID); ok {
			hit.Title = doc.Title
			hit.updatedAt = doc.UpdatedAt
		}
		hits = append(hits, hit)
	}

	sortHits(hits)
	return finalize(truncate(hits, topK), router.StrategySemantic, query), nil
}

// keyword ranks whole documents with bleve's BM25-style lexical scoring.
func (e *Engine) keyword(ctx context.Context, query string, topK int) (Result, error) {
	if e.search != nil {
		return e.managed(ctx, query, topK, router.StrategyKeyword)
	}

	matchQuery := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(matchQuery)
	req.Size = topK

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("keyword query: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{
			DocumentID: h.ID,
			Score:      h.Score,
		}
		if doc, ok := e.document(h.ID); ok {
			hit.Title = doc.Title
			hit.Text = doc.Content
			hit.updatedAt = doc.UpdatedAt
		}
		hits = append(hits, hit)
	}

	sortHits(hits)
	return finalize(truncate(hits, topK), router.StrategyKeyword, query), nil
}

// managed delegates a pass to the configured search backend.
func (e *Engine) managed(ctx context.Context, query string, topK int, method router.Strategy) (Result, error) {
	backendHits, err := e.search.Query(ctx, query, e.searchIndex, topK)
	if err != nil {
		return Result{}, fmt.Errorf("managed backend query: %w", err)
	}

	hits := make([]Hit, 0, len(backendHits))
	for _, h := range backendHits {
		hits = append(hits, Hit{
			Title: h.Title,
			Text:  h.Content,
			Score: h.Score,
		})
	}
	sortHits(hits)

	r := finalize(truncate(hits, topK), method, query)
	r.Metadata = map[string]string{"backend": e.search.Name()}
	return r, nil
}
