package orchestrator

import (
	"strings"

	"github.com/tobiasweide/ragent/internal/evaluate"
	"github.com/tobiasweide/ragent/internal/router"
)

// longQueryWords is the length past which a low-confidence query is
// simplified rather than rewritten.
const longQueryWords = 12

// reformulation is the chosen retry query plus how it was derived.
type reformulation struct {
	query     string
	nodeType  NodeType
	linkType  LinkType
	reasoning string
}

// reformulate derives the next attempt's query from the failed
// evaluation axis: off-topic evidence decomposes or broadens the
// question, unsupported answers refocus it on the documents, overlong
// questions get simplified, and anything else falls back to a rewrite.
func reformulate(query string, eval evaluate.Evaluation) reformulation {
	r := choose(query, eval)

	// A reformulation that reproduces the query would loop without
	// making progress.
	if strings.EqualFold(strings.TrimSpace(r.query), strings.TrimSpace(query)) {
		r.query = fallbackRewrite(query)
		r.nodeType = NodeReformulation
		r.linkType = LinkFallback
	}
	if strings.EqualFold(strings.TrimSpace(r.query), strings.TrimSpace(query)) {
		r.query = strings.TrimSuffix(strings.TrimSpace(query), "?") + " details"
	}
	return r
}

func choose(query string, eval evaluate.Evaluation) reformulation {
	switch {
	case eval.Relevance == evaluate.NotRelevant:
		if subs := router.Decompose(query); len(subs) > 0 {
			return reformulation{
				query:     subs[0],
				nodeType:  NodeSubquery,
				linkType:  LinkDecomposed,
				reasoning: "evidence off-topic; retrying the first sub-question",
			}
		}
		return reformulation{
			query:     expand(query),
			nodeType:  NodeExpansion,
			linkType:  LinkExpanded,
			reasoning: "evidence off-topic; broadening the phrasing",
		}
	case eval.Support == evaluate.NotSupported:
		return reformulation{
			query:     refine(query),
			nodeType:  NodeReformulation,
			linkType:  LinkRefined,
			reasoning: "answer unsupported by evidence; refocusing on the documents",
		}
	case len(strings.Fields(query)) > longQueryWords:
		return reformulation{
			query:     simplify(query),
			nodeType:  NodeSimplification,
			linkType:  LinkSimplified,
			reasoning: "low confidence on a long question; simplifying",
		}
	default:
		return reformulation{
			query:     fallbackRewrite(query),
			nodeType:  NodeReformulation,
			linkType:  LinkFallback,
			reasoning: "low confidence; retrying a rewrite",
		}
	}
}

// expand broadens the phrasing using the router's rewrite set.
func expand(query string) string {
	if vars := router.Variations(query, 2); len(vars) > 1 {
		return vars[1]
	}
	return strings.TrimSuffix(strings.TrimSpace(query), "?") + " details"
}

// refine pins the question to what the corpus actually states, which
// discourages the generator from answering beyond the evidence.
func refine(query string) string {
	return "what do the documents say about " + bareSubject(query)
}

var fillerWords = map[string]bool{
	"please": true, "kindly": true, "just": true, "exactly": true,
	"really": true, "actually": true, "basically": true,
}

// simplify strips filler words and keeps only the first clause.
func simplify(query string) string {
	s := strings.TrimSpace(query)
	for _, sep := range []string{";", ", and ", " and also ", ", "} {
		if idx := strings.Index(strings.ToLower(s), sep); idx > 0 {
			if len(strings.Fields(s[:idx])) >= 3 {
				s = s[:idx]
				break
			}
		}
	}

	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if !fillerWords[strings.ToLower(strings.Trim(f, ",.?"))] {
			kept = append(kept, f)
		}
	}
	out := strings.Join(kept, " ")
	if !strings.HasSuffix(out, "?") && strings.HasSuffix(strings.TrimSpace(query), "?") {
		out += "?"
	}
	return out
}

// fallbackRewrite is the last-resort rewrite when no axis points at a
// better transformation.
func fallbackRewrite(query string) string {
	vars := router.Variations(query, 3)
	// Variations keeps the original first; prefer the last candidate so
	// fallback differs from expand.
	if len(vars) > 1 {
		return vars[len(vars)-1]
	}
	return "key facts about " + bareSubject(query)
}

var questionFrames = []string{
	"what is the ", "what is ", "what are the ", "what are ",
	"how does ", "how do i ", "how do ", "how can i ", "how can ",
	"why does ", "why is ", "tell me about ", "explain ",
}

// bareSubject strips the interrogative frame so the subject stands alone.
func bareSubject(query string) string {
	s := strings.ToLower(strings.TrimSpace(query))
	s = strings.TrimSuffix(s, "?")
	for _, frame := range questionFrames {
		if strings.HasPrefix(s, frame) {
			return strings.TrimSpace(strings.TrimPrefix(s, frame))
		}
	}
	return s
}
