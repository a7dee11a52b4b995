package retriever

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tobiasweide/ragent/internal/router"
)

// rrfK is the reciprocal-rank fusion constant. Ranks are 1-based, so a
// document's contribution from one ranking is 1/(rrfK + rank).
const rrfK = 60

// fuseRRF merges ranked hit lists with reciprocal-rank fusion. Items
// absent from a ranking simply contribute nothing from it. The
// representative hit (title, text) comes from the first list that ranked
// the item.
func fuseRRF(lists ...[]Hit) []Hit {
	type entry struct {
		hit   Hit
		score float64
	}
	merged := make(map[string]*entry)
	var order []string

	for _, list := range lists {
		seen := make(map[string]bool)
		for rank, hit := range list {
			key := hit.key()
			if seen[key] {
				// A document appearing at several ranks in one list
				// (multiple chunks) counts only at its best rank.
				continue
			}
			seen[key] = true
			contribution := 1.0 / float64(rrfK+rank+1)
			if ent, ok := merged[key]; ok {
				ent.score += contribution
				continue
			}
			merged[key] = &entry{hit: hit, score: contribution}
			order = append(order, key)
		}
	}

	hits := make([]Hit, 0, len(order))
	for _, key := range order {
		ent := merged[key]
		ent.hit.Score = ent.score
		hits = append(hits, ent.hit)
	}
	sortHits(hits)
	return hits
}

// hybrid runs semantic and keyword retrieval concurrently and fuses the
// rankings. A single failing pass degrades to the surviving ranking; both
// failing is an error.
func (e *Engine) hybrid(ctx context.Context, query string, topK int) (Result, error) {
	var (
		wg     sync.WaitGroup
		semRes Result
		keyRes Result
		semErr error
		keyErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		semRes, semErr = e.semantic(ctx, query, topK)
	}()
	go func() {
		defer wg.Done()
		keyRes, keyErr = e.keyword(ctx, query, topK)
	}()
	wg.Wait()

	if semErr != nil && keyErr != nil {
		return Result{}, fmt.Errorf("hybrid retrieval: semantic: %v; keyword: %w", semErr, keyErr)
	}

	hits := fuseRRF(semRes.Hits, keyRes.Hits)
	r := finalize(truncate(hits, topK), router.StrategyHybrid, query)
	if semErr != nil || keyErr != nil {
		r.Metadata = map[string]string{"degraded": "one retrieval pass failed"}
	}
	return r, nil
}

// multiQuery retrieves each sub-query independently, concurrently when the
// router marked them parallelizable, then deduplicates by document and
// keeps the maximum score. Failed sub-queries are dropped; only all of
// them failing is an error.
func (e *Engine) multiQuery(ctx context.Context, query string, decision router.Decision, topK int) (Result, error) {
	subQueries := decision.SubQueries
	if len(subQueries) == 0 {
		subQueries = []string{query}
	}

	results := make([]Result, len(subQueries))
	errs := make([]error, len(subQueries))

	if decision.Parallelizable && len(subQueries) > 1 {
		sem := make(chan struct{}, e.maxConcurrency)
		var wg sync.WaitGroup
		for i, sub := range subQueries {
			wg.Add(1)
			go func(i int, sub string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				subCtx, cancel := context.WithTimeout(ctx, e.subQueryTimeout)
				defer cancel()
				results[i], errs[i] = e.semantic(subCtx, sub, topK)
			}(i, sub)
		}
		wg.Wait()
	} else {
		for i, sub := range subQueries {
			results[i], errs[i] = e.semantic(ctx, sub, topK)
		}
	}

	failed := 0
	best := make(map[string]Hit)
	var order []string
	for i, res := range results {
		if errs[i] != nil {
			failed++
			continue
		}
		for _, hit := range res.Hits {
			key := hit.key()
			if prev, ok := best[key]; !ok {
				best[key] = hit
				order = append(order, key)
			} else if hit.Score > prev.Score {
				best[key] = hit
			}
		}
	}
	if failed == len(subQueries) {
		return Result{}, fmt.Errorf("all %d sub-query retrievals failed: %w", failed, firstError(errs))
	}

	hits := make([]Hit, 0, len(order))
	for _, key := range order {
		hits = append(hits, best[key])
	}
	sortHits(hits)

	r := finalize(truncate(hits, topK), router.StrategyMultiQuery, query)
	r.Metadata = map[string]string{
		"sub_queries": strconv.Itoa(len(subQueries)),
		"failed":      strconv.Itoa(failed),
	}
	return r, nil
}

// ragFusion retrieves several lightweight rewrites of the query and fuses
// all rankings with RRF.
func (e *Engine) ragFusion(ctx context.Context, query string, topK int) (Result, error) {
	variations := router.Variations(query, 4)

	lists := make([][]Hit, 0, len(variations))
	var lastErr error
	for _, v := range variations {
		res, err := e.semantic(ctx, v, topK)
		if err != nil {
			lastErr = err
			continue
		}
		lists = append(lists, res.Hits)
	}
	if len(lists) == 0 {
		return Result{}, fmt.Errorf("rag-fusion retrieval failed for all %d variations: %w", len(variations), lastErr)
	}

	hits := fuseRRF(lists...)
	r := finalize(truncate(hits, topK), router.StrategyRAGFusion, query)
	r.Metadata = map[string]string{"variations": strconv.Itoa(len(variations))}
	return r, nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
