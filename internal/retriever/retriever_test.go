package retriever

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/router"
)

// bagEmbedder is a deterministic bag-of-words embedder over a fixed
// vocabulary, so semantic similarity in tests follows word overlap.
type bagEmbedder struct {
	vocab []string
}

func newBagEmbedder() *bagEmbedder {
	return &bagEmbedder{vocab: []string{
		"refund", "policy", "return", "days", "shipping", "delivery",
		"express", "standard", "account", "password", "billing", "invoice",
		"kitchen", "lunch", "menu", "what", "request",
	}}
}

func (e *bagEmbedder) Name() string    { return "bag-of-words" }
func (e *bagEmbedder) Dimensions() int { return len(e.vocab) }

func (e *bagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float32, len(e.vocab))
		for j, w := range e.vocab {
			v[j] = float32(strings.Count(lower, w))
		}
		// chromem expects normalized vectors; normalize here and keep a
		// small constant component so no vector is zero.
		v[len(v)-1] += 0.01
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		norm = math.Sqrt(norm)
		for j := range v {
			v[j] = float32(float64(v[j]) / norm)
		}
		out[i] = v
	}
	return out, nil
}

func testDocs() []corpus.Document {
	now := time.Now().UTC()
	return []corpus.Document{
		{
			ID: "doc-refund", Title: "Refund Policy",
			Content:   "Customers may request a refund within 30 days. The refund policy covers all standard purchases. A refund request needs the invoice number.",
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "doc-shipping", Title: "Shipping Guide",
			Content:   "Standard shipping takes five days. Express shipping arrives in two days. Delivery times vary by region.",
			CreatedAt: now, UpdatedAt: now,
		},
		{
			ID: "doc-menu", Title: "Lunch Menu",
			Content:   "The kitchen serves lunch from noon. The menu changes weekly.",
			CreatedAt: now, UpdatedAt: now,
		},
	}
}

func setupEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(newBagEmbedder())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if err := e.AddDocuments(context.Background(), testDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	return e
}

func decisionFor(strategy router.Strategy) router.Decision {
	return router.Decision{Strategy: strategy, NeedsRetrieval: strategy != router.StrategyDirectAnswer}
}

func TestSemanticRanksRelevantFirst(t *testing.T) {
	e := setupEngine(t)

	res, err := e.Retrieve(context.Background(), "what is the refund policy", decisionFor(router.StrategySemantic), 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Empty() {
		t.Fatal("expected hits")
	}
	if res.Hits[0].DocumentID != "doc-refund" {
		t.Errorf("top hit = %s, want doc-refund", res.Hits[0].DocumentID)
	}
	if len(res.Scores) != len(res.Hits) {
		t.Fatalf("len(Scores) = %d, len(Hits) = %d", len(res.Scores), len(res.Hits))
	}
	for i := 1; i < len(res.Hits); i++ {
		if res.Hits[i].Score > res.Hits[i-1].Score {
			t.Errorf("hits not sorted descending at %d", i)
		}
	}
}

func TestKeywordFindsExactTerms(t *testing.T) {
	e := setupEngine(t)

	res, err := e.Retrieve(context.Background(), "express shipping", decisionFor(router.StrategyKeyword), 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Empty() {
		t.Fatal("expected hits")
	}
	if res.Hits[0].DocumentID != "doc-shipping" {
		t.Errorf("top hit = %s, want doc-shipping", res.Hits[0].DocumentID)
	}
	if res.Method != router.StrategyKeyword {
		t.Errorf("Method = %s, want keyword", res.Method)
	}
}

func TestHybridBoostsDocsInBothRankings(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()
	query := "refund policy request"

	sem, err := e.semantic(ctx, query, 5)
	if err != nil {
		t.Fatalf("semantic: %v", err)
	}
	key, err := e.keyword(ctx, query, 5)
	if err != nil {
		t.Fatalf("keyword: %v", err)
	}
	hyb, err := e.hybrid(ctx, query, 5)
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}

	inSem := rankOf(sem.Hits, "doc-refund")
	inKey := rankOf(key.Hits, "doc-refund")
	if inSem < 0 || inKey < 0 {
		t.Fatal("doc-refund should rank in both strategies")
	}

	var fused float64
	for _, h := range hyb.Hits {
		if h.key() == "doc-refund" {
			fused = h.Score
		}
	}
	semOnly := 1.0 / float64(rrfK+inSem+1)
	keyOnly := 1.0 / float64(rrfK+inKey+1)
	if fused <= semOnly || fused <= keyOnly {
		t.Errorf("fused score %v should exceed single contributions %v and %v", fused, semOnly, keyOnly)
	}
}

func rankOf(hits []Hit, key string) int {
	seen := map[string]bool{}
	rank := 0
	for _, h := range hits {
		if seen[h.key()] {
			continue
		}
		seen[h.key()] = true
		if h.key() == key {
			return rank
		}
		rank++
	}
	return -1
}

func TestMultiQueryDeduplicatesByDocument(t *testing.T) {
	e := setupEngine(t)

	decision := router.Decision{
		Strategy:       router.StrategyMultiQuery,
		Parallelizable: true,
		SubQueries:     []string{"what is the refund policy", "refund request days"},
	}
	res, err := e.Retrieve(context.Background(), "refund questions", decision, 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	seen := map[string]bool{}
	for _, h := range res.Hits {
		if seen[h.key()] {
			t.Errorf("duplicate document %s in multi-query result", h.key())
		}
		seen[h.key()] = true
	}
	if res.Metadata["sub_queries"] != "2" {
		t.Errorf("metadata sub_queries = %q, want 2", res.Metadata["sub_queries"])
	}
}

func TestRAGFusionReturnsFusedRanking(t *testing.T) {
	e := setupEngine(t)

	res, err := e.Retrieve(context.Background(), "what is the refund policy?", decisionFor(router.StrategyRAGFusion), 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if res.Empty() {
		t.Fatal("expected hits")
	}
	if len(res.Hits) > 3 {
		t.Errorf("len = %d, want <= 3", len(res.Hits))
	}
	if res.Hits[0].key() != "doc-refund" {
		t.Errorf("top fused hit = %s, want doc-refund", res.Hits[0].key())
	}
}

func TestDirectAnswerIsEmpty(t *testing.T) {
	e := setupEngine(t)

	res, err := e.Retrieve(context.Background(), "hello", decisionFor(router.StrategyDirectAnswer), 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !res.Empty() {
		t.Errorf("direct_answer should retrieve nothing, got %d hits", len(res.Hits))
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	e := setupEngine(t)
	ctx := context.Background()

	for _, strategy := range []router.Strategy{router.StrategySemantic, router.StrategyKeyword, router.StrategyHybrid} {
		a, err := e.Retrieve(ctx, "refund policy", decisionFor(strategy), 5)
		if err != nil {
			t.Fatalf("%s first: %v", strategy, err)
		}
		b, err := e.Retrieve(ctx, "refund policy", decisionFor(strategy), 5)
		if err != nil {
			t.Fatalf("%s second: %v", strategy, err)
		}
		if len(a.Hits) != len(b.Hits) {
			t.Fatalf("%s: lengths differ", strategy)
		}
		for i := range a.Hits {
			if a.Hits[i].key() != b.Hits[i].key() {
				t.Errorf("%s: rank %d differs between runs", strategy, i)
			}
		}
	}
}

func TestRetrieveInvalidTopK(t *testing.T) {
	e := setupEngine(t)
	if _, err := e.Retrieve(context.Background(), "q", decisionFor(router.StrategySemantic), 0); err == nil {
		t.Fatal("expected error for topK = 0")
	}
}

func TestEngineSummary(t *testing.T) {
	e := setupEngine(t)
	s := e.Summary()
	if s.DocumentCount != 3 {
		t.Errorf("DocumentCount = %d, want 3", s.DocumentCount)
	}
	if e.DocumentCount() != 3 {
		t.Errorf("DocumentCount() = %d, want 3", e.DocumentCount())
	}
}
