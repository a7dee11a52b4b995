package retriever

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	chromem "github.com/philippgille/chromem-go"

	"github.com/tobiasweide/ragent/internal/backend"
	"github.com/tobiasweide/ragent/internal/chunker"
	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/embeddings"
)

const collectionName = "chunks"

// Engine holds the in-process retrieval indexes. Documents are indexed
// twice: chunked and embedded into a chromem-go collection for semantic
// search, and whole into a bleve index for keyword search.
type Engine struct {
	embedder      embeddings.Embedder
	chunkStrategy chunker.Strategy
	chunkOpts     chunker.Options

	collection *chromem.Collection
	index      bleve.Index

	search      backend.Searcher // nil unless a managed backend is configured
	searchIndex string

	maxConcurrency  int
	subQueryTimeout time.Duration

	mu   sync.RWMutex
	docs map[string]corpus.Document
}

// Option configures the engine.
type Option func(*Engine)

// WithChunking sets the chunking strategy and options for semantic indexing.
func WithChunking(strategy chunker.Strategy, opts chunker.Options) Option {
	return func(e *Engine) {
		e.chunkStrategy = strategy
		e.chunkOpts = opts
	}
}

// WithBackend routes semantic and keyword passes to a managed search
// service instead of the in-process indexes.
func WithBackend(s backend.Searcher, indexName string) Option {
	return func(e *Engine) {
		e.search = s
		e.searchIndex = indexName
	}
}

// WithMaxConcurrency bounds parallel sub-query retrieval.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// WithSubQueryTimeout bounds each parallel sub-query retrieval call.
func WithSubQueryTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.subQueryTimeout = d
		}
	}
}

// NewEngine creates an empty retrieval engine.
func NewEngine(embedder embeddings.Embedder, opts ...Option) (*Engine, error) {
	e := &Engine{
		embedder:        embedder,
		chunkStrategy:   chunker.StrategySentence,
		maxConcurrency:  4,
		subQueryTimeout: 10 * time.Second,
		docs:            make(map[string]corpus.Document),
	}
	for _, opt := range opts {
		opt(e)
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, embeddings.ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("creating chunk collection: %w", err)
	}
	e.collection = col

	idx, err := newKeywordIndex()
	if err != nil {
		return nil, fmt.Errorf("creating keyword index: %w", err)
	}
	e.index = idx

	return e, nil
}

// newKeywordIndex builds an in-memory bleve index over document title and
// content.
func newKeywordIndex() (bleve.Index, error) {
	indexMapping := mapping.NewIndexMapping()

	docMapping := mapping.NewDocumentMapping()
	textField := mapping.NewTextFieldMapping()
	textField.Analyzer = "en"
	docMapping.AddFieldMappingsAt("title", textField)
	docMapping.AddFieldMappingsAt("content", textField)
	indexMapping.DefaultMapping = docMapping

	return bleve.NewMemOnly(indexMapping)
}

// AddDocuments chunks, embeds, and indexes documents. It fails atomically
// per document: an embedding failure aborts the call before the document
// is registered.
func (e *Engine) AddDocuments(ctx context.Context, docs []corpus.Document) error {
	for _, doc := range docs {
		chunks, err := chunker.SplitAndEmbed(ctx, e.embedder, doc.ID, doc.Content, e.chunkStrategy, e.chunkOpts)
		if err != nil {
			return fmt.Errorf("indexing document %s: %w", doc.ID, err)
		}

		chromemDocs := make([]chromem.Document, len(chunks))
		for i, c := range chunks {
			chromemDocs[i] = chromem.Document{
				ID:        c.ID,
				Content:   c.Text,
				Embedding: c.Embedding,
				Metadata: map[string]string{
					"doc_id": doc.ID,
					"start":  strconv.Itoa(c.Start),
					"end":    strconv.Itoa(c.End),
				},
			}
		}
		if err := e.collection.AddDocuments(ctx, chromemDocs, 1); err != nil {
			return fmt.Errorf("adding chunks for document %s: %w", doc.ID, err)
		}

		if err := e.index.Index(doc.ID, map[string]any{
			"title":   doc.Title,
			"content": doc.Content,
		}); err != nil {
			return fmt.Errorf("keyword-indexing document %s: %w", doc.ID, err)
		}

		e.mu.Lock()
		e.docs[doc.ID] = doc
		e.mu.Unlock()
	}
	return nil
}

// DocumentCount returns the number of indexed documents.
func (e *Engine) DocumentCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Summary describes the indexed corpus for routing.
func (e *Engine) Summary() corpus.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.docs))
	for id := range e.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]corpus.Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, e.docs[id])
	}
	return corpus.Summarize(docs)
}

func (e *Engine) document(id string) (corpus.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	doc, ok := e.docs[id]
	return doc, ok
}

// sortHits orders hits by score descending with deterministic tie-breaks:
// newer document first, then lexical ID. Required so identical inputs
// always produce identical rankings.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].updatedAt.Equal(hits[j].updatedAt) {
			return hits[i].updatedAt.After(hits[j].updatedAt)
		}
		return hits[i].key() < hits[j].key()
	})
}

func truncate(hits []Hit, topK int) []Hit {
	if len(hits) > topK {
		return hits[:topK]
	}
	return hits
}
