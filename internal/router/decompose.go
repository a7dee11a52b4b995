package router

import "strings"

// Decompose splits a compound or comparative query into independent
// sub-queries. It returns nil when no clean split exists.
func Decompose(query string) []string {
	normalized := normalize(query)

	// "difference between X and Y" keeps the question frame per side.
	for _, marker := range []string{"difference between ", "differences between "} {
		if idx := strings.Index(normalized, marker); idx >= 0 {
			rest := normalized[idx+len(marker):]
			rest = strings.TrimSuffix(strings.TrimSpace(rest), "?")
			if parts := splitPair(rest); len(parts) == 2 {
				return []string{
					"what is " + parts[0],
					"what is " + parts[1],
				}
			}
		}
	}

	// "X vs Y" compares two subjects directly.
	for _, sep := range []string{" vs ", " versus "} {
		if parts := strings.SplitN(normalized, sep, 2); len(parts) == 2 {
			left := strings.TrimSpace(trimQuestionFrame(parts[0]))
			right := strings.TrimSuffix(strings.TrimSpace(parts[1]), "?")
			if left != "" && right != "" {
				return []string{
					"what is " + left,
					"what is " + right,
				}
			}
		}
	}

	// Conjunction of full clauses: both sides must read as standalone
	// queries, otherwise "and" is joining noun phrases, not questions.
	if parts := strings.Split(normalized, " and "); len(parts) >= 2 {
		var subs []string
		for _, p := range parts {
			p = strings.TrimSuffix(strings.TrimSpace(p), "?")
			if len(strings.Fields(p)) >= 3 {
				subs = append(subs, p)
			}
		}
		if len(subs) >= 2 {
			return subs
		}
	}

	return nil
}

// splitPair splits "X and Y" into its two sides.
func splitPair(s string) []string {
	parts := strings.SplitN(s, " and ", 2)
	if len(parts) != 2 {
		return nil
	}
	a := strings.TrimSpace(parts[0])
	b := strings.TrimSpace(parts[1])
	if a == "" || b == "" {
		return nil
	}
	return []string{a, b}
}

// trimQuestionFrame removes a leading interrogative so the subject stands
// alone ("how does X compare" -> "X compare").
func trimQuestionFrame(s string) string {
	for _, frame := range []string{
		"what is the ", "what is ", "what are ", "how does ", "how do ",
		"which is better ", "compare ",
	} {
		if strings.HasPrefix(s, frame) {
			return strings.TrimPrefix(s, frame)
		}
	}
	return s
}

// Variations produces n lightweight rewrites of a query for fusion
// retrieval. The original query is always the first variation.
func Variations(query string, n int) []string {
	normalized := strings.TrimSpace(query)
	out := []string{normalized}
	if n <= 1 {
		return out
	}

	bare := strings.TrimSuffix(normalize(normalized), "?")
	candidates := []string{
		trimQuestionFrame(bare),
		"explain " + trimQuestionFrame(bare),
		bare + " details",
		"key facts about " + trimQuestionFrame(bare),
	}
	for _, c := range candidates {
		if len(out) >= n {
			break
		}
		c = strings.TrimSpace(c)
		if c != "" && c != bare && c != normalized {
			out = append(out, c)
		}
	}
	return out
}
