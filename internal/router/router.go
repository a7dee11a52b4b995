package router

import (
	"fmt"
	"strings"

	"github.com/tobiasweide/ragent/internal/corpus"
)

// Route classifies the query's intent, selects a retrieval strategy, and
// optionally decomposes the query into sub-queries. stats may be nil.
func Route(query string, summary corpus.Summary, stats StatsProvider) Decision {
	normalized := normalize(query)
	words := strings.Fields(normalized)

	intent, intentReason := classifyIntent(normalized, words, summary)

	// Conversational intents never retrieve.
	if intent == IntentChitchat || intent == IntentOutOfScope {
		return Decision{
			Intent:         intent,
			Strategy:       StrategyDirectAnswer,
			NeedsRetrieval: false,
			Confidence:     0.9,
			Reasoning:      intentReason + "; answering directly without retrieval",
		}
	}

	strategy, subQueries, strategyReason, confidence := selectStrategy(intent, normalized, words)

	// Prefer the historically best strategy for this intent when enough
	// samples exist. The heuristic remains the fallback.
	if stats != nil && strategy != StrategyDirectAnswer {
		if best, samples := stats.BestStrategy(intent); samples >= minBiasSamples && best != "" && best != StrategyDirectAnswer {
			if best != strategy {
				strategyReason = fmt.Sprintf("%s; overridden by history: %s has the best success rate over %d past queries", strategyReason, best, samples)
				strategy = best
				if strategy != StrategyMultiQuery {
					subQueries = nil
				}
			}
		}
	}

	if strategy == StrategyMultiQuery && len(subQueries) == 0 {
		// Decomposition found nothing independent; fall back.
		strategy = StrategyHybrid
		strategyReason += "; no independent sub-queries found, using hybrid instead"
	}

	return Decision{
		Intent:         intent,
		Strategy:       strategy,
		NeedsRetrieval: true,
		Parallelizable: len(subQueries) > 1,
		Confidence:     confidence,
		Reasoning:      intentReason + "; " + strategyReason,
		SubQueries:     subQueries,
	}
}

func normalize(query string) string {
	return strings.TrimSpace(strings.ToLower(query))
}

var greetingPrefixes = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"thanks", "thank you", "how are you", "what's up", "bye", "goodbye",
}

var offDomainMarkers = []string{
	"weather", "tell me a joke", "joke", "horoscope", "lottery",
	"sports score", "recipe for", "song lyrics", "movie times",
}

var comparisonMarkers = []string{
	" vs ", " versus ", "compare", "difference between", "differences between",
	"better than", "worse than", "pros and cons",
}

var proceduralMarkers = []string{
	"how do i", "how to", "how can i", "step by step", "steps to",
	"guide to", "walk me through", "set up", "install", "configure",
}

var analyticalMarkers = []string{
	"why", "explain", "analyze", "analyse", "what causes", "impact of",
	"implications", "evaluate", "trade-off", "tradeoff", "reason",
}

var clarificationMarkers = []string{
	"what do you mean", "can you clarify", "clarify", "rephrase",
	"i don't understand", "what did you say", "come again",
}

var researchMarkers = []string{
	"overview of", "everything about", "tell me about", "research",
	"state of the art", "landscape", "survey of", "deep dive",
}

func classifyIntent(normalized string, words []string, summary corpus.Summary) (Intent, string) {
	for _, g := range greetingPrefixes {
		if normalized == g || strings.HasPrefix(normalized, g+" ") || strings.HasPrefix(normalized, g+",") || strings.HasPrefix(normalized, g+"!") {
			return IntentChitchat, fmt.Sprintf("greeting pattern %q detected", g)
		}
	}

	for _, m := range offDomainMarkers {
		if strings.Contains(normalized, m) {
			return IntentOutOfScope, fmt.Sprintf("off-domain marker %q detected", m)
		}
	}

	for _, m := range clarificationMarkers {
		if strings.Contains(normalized, m) {
			return IntentClarification, fmt.Sprintf("clarification marker %q detected", m)
		}
	}

	for _, m := range comparisonMarkers {
		if strings.Contains(normalized, m) {
			return IntentComparative, fmt.Sprintf("comparison marker %q detected", m)
		}
	}

	for _, m := range proceduralMarkers {
		if strings.Contains(normalized, m) {
			return IntentProcedural, fmt.Sprintf("step-by-step marker %q detected", m)
		}
	}

	for _, m := range analyticalMarkers {
		if strings.Contains(normalized, m) {
			return IntentAnalytical, fmt.Sprintf("analytical marker %q detected", m)
		}
	}

	// A question against an empty corpus can only be answered directly.
	if summary.DocumentCount == 0 && len(words) > 0 {
		return IntentOutOfScope, "corpus is empty, nothing to retrieve against"
	}

	return IntentFactual, "question form with no specialized markers, treated as factual"
}

func selectStrategy(intent Intent, normalized string, words []string) (Strategy, []string, string, float64) {
	switch intent {
	case IntentComparative:
		subQueries := Decompose(normalized)
		return StrategyMultiQuery, subQueries,
			fmt.Sprintf("comparative query decomposed into %d sub-queries", len(subQueries)), 0.8
	case IntentClarification:
		return StrategySemantic, nil, "clarification resolved against nearest context", 0.6
	}

	if hasQuotedOrIdentifierTerms(normalized) {
		return StrategyKeyword, nil, "quoted terms or identifiers favor exact lexical match", 0.85
	}

	for _, m := range researchMarkers {
		if strings.Contains(normalized, m) {
			return StrategyRAGFusion, nil,
				fmt.Sprintf("open-ended research phrasing %q favors query-variation fusion", m), 0.75
		}
	}

	if isCompound(normalized) {
		subQueries := Decompose(normalized)
		return StrategyMultiQuery, subQueries,
			fmt.Sprintf("compound query decomposed into %d sub-queries", len(subQueries)), 0.7
	}

	if len(words) <= 6 {
		return StrategySemantic, nil, "short single-concept query suits semantic search", 0.8
	}

	return StrategyHybrid, nil, "defaulting to hybrid semantic+keyword retrieval", 0.65
}

// hasQuotedOrIdentifierTerms reports whether the query contains quoted
// phrases or code-like identifiers (snake_case, dotted.paths, CONSTANTS).
func hasQuotedOrIdentifierTerms(query string) bool {
	if strings.Count(query, `"`) >= 2 || strings.Count(query, "'") >= 2 || strings.Count(query, "`") >= 2 {
		return true
	}
	for _, w := range strings.Fields(query) {
		w = strings.Trim(w, ".,;:!?")
		if strings.ContainsRune(w, '_') {
			return true
		}
		if strings.Count(w, ".") >= 1 && len(w) > 3 && !strings.HasSuffix(w, ".") {
			return true
		}
	}
	return false
}

func isCompound(query string) bool {
	clauses := 0
	for _, sep := range []string{" and ", " as well as ", "; "} {
		clauses += strings.Count(query, sep)
	}
	return clauses >= 1 && len(strings.Fields(query)) >= 8
}
