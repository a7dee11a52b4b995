// Package chunker splits document content into retrieval-sized chunks and
// attaches embeddings. Chunking is deterministic: the same (content,
// strategy) input always yields identical chunk boundaries and IDs.
package chunker

import (
	"fmt"
	"strings"
	"unicode"
)

// Strategy selects how content is split into chunks.
type Strategy string

const (
	// StrategyFixed produces fixed-size windows with configurable overlap.
	StrategyFixed Strategy = "fixed"
	// StrategySentence splits at sentence and paragraph boundaries.
	StrategySentence Strategy = "sentence"
	// StrategySemantic splits at detected topic-shift boundaries using a
	// lexical-overlap heuristic, bounded by the maximum chunk size.
	StrategySemantic Strategy = "semantic"
)

// ParseStrategy validates a strategy identifier.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFixed, StrategySentence, StrategySemantic:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown chunking strategy %q", s)
}

// Chunk is a contiguous slice of one document's content. Start and End are
// byte offsets into the source content, with End exclusive.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Text       string    `json:"text"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Options tunes the chunking strategies.
type Options struct {
	// Size is the target chunk size in bytes. Defaults to 500.
	Size int
	// Overlap is the overlap between consecutive fixed-size chunks in
	// bytes. Defaults to 100 and only applies to StrategyFixed.
	Overlap int
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = 500
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.Size {
		o.Overlap = o.Size / 4
	}
	return o
}

// Split chunks content under the given strategy. It returns an error for
// empty content so that malformed documents surface instead of producing a
// silent empty chunk set.
func Split(docID, content string, strategy Strategy, opts Options) ([]Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("cannot chunk empty content for document %s", docID)
	}
	opts = opts.withDefaults()

	var chunks []Chunk
	switch strategy {
	case StrategyFixed:
		chunks = splitFixed(content, opts)
	case StrategySentence:
		chunks = splitSentences(content, opts)
	case StrategySemantic:
		chunks = splitSemantic(content, opts)
	default:
		return nil, fmt.Errorf("unknown chunking strategy %q", strategy)
	}

	for i := range chunks {
		chunks[i].ID = fmt.Sprintf("%s:%s:%d", docID, strategy, i)
		chunks[i].DocumentID = docID
		chunks[i].TokenCount = estimateTokens(chunks[i].Text)
	}
	return chunks, nil
}

// estimateTokens approximates the token count. 1 token ~= 4 characters.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}

func splitFixed(content string, opts Options) []Chunk {
	var chunks []Chunk
	step := opts.Size - opts.Overlap

	for start := 0; start < len(content); start += step {
		end := start + opts.Size
		if end > len(content) {
			end = len(content)
		}
		chunks = append(chunks, Chunk{
			Text:  content[start:end],
			Start: start,
			End:   end,
		})
		if end == len(content) {
			break
		}
	}
	return chunks
}

// splitSentences accumulates whole sentences into chunks up to the size
// budget, never splitting inside a sentence unless a single sentence
// exceeds the budget.
func splitSentences(content string, opts Options) []Chunk {
	sentences := sentenceSpans(content)

	var chunks []Chunk
	start := -1
	end := 0

	flush := func() {
		if start >= 0 && end > start {
			chunks = append(chunks, Chunk{
				Text:  content[start:end],
				Start: start,
				End:   end,
			})
		}
		start = -1
	}

	for _, span := range sentences {
		if start < 0 {
			start, end = span[0], span[1]
			continue
		}
		if span[1]-start > opts.Size {
			flush()
			start, end = span[0], span[1]
			continue
		}
		end = span[1]
	}
	flush()
	return chunks
}

// sentenceSpans returns [start, end) offsets of sentences. A sentence ends
// at '.', '!', '?' followed by whitespace, or at a blank line.
func sentenceSpans(content string) [][2]int {
	var spans [][2]int
	start := 0

	for i := 0; i < len(content); i++ {
		c := content[i]
		isEnder := c == '.' || c == '!' || c == '?'
		isParaBreak := c == '\n' && i+1 < len(content) && content[i+1] == '\n'

		if isEnder && (i+1 == len(content) || isSpaceByte(content[i+1])) {
			spans = appendSpan(spans, content, start, i+1)
			start = i + 1
		} else if isParaBreak {
			spans = appendSpan(spans, content, start, i)
			start = i + 1
		}
	}
	spans = appendSpan(spans, content, start, len(content))
	return spans
}

// appendSpan trims leading whitespace from the span and drops blank spans.
func appendSpan(spans [][2]int, content string, start, end int) [][2]int {
	for start < end && isSpaceByte(content[start]) {
		start++
	}
	if start >= end || strings.TrimSpace(content[start:end]) == "" {
		return spans
	}
	return append(spans, [2]int{start, end})
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// topicShiftThreshold is the lexical-overlap score below which adjacent
// paragraphs are considered to belong to different topics.
const topicShiftThreshold = 0.12

// splitSemantic groups adjacent paragraphs while their vocabulary overlaps,
// starting a new chunk at topic shifts or when the size budget is exceeded.
func splitSemantic(content string, opts Options) []Chunk {
	paras := paragraphSpans(content)
	if len(paras) == 0 {
		return nil
	}

	var chunks []Chunk
	start := paras[0][0]
	end := paras[0][1]
	prevWords := wordSet(content[paras[0][0]:paras[0][1]])

	for _, span := range paras[1:] {
		words := wordSet(content[span[0]:span[1]])
		shift := jaccard(prevWords, words) < topicShiftThreshold
		oversize := span[1]-start > opts.Size*2

		if shift || oversize {
			chunks = append(chunks, Chunk{Text: content[start:end], Start: start, End: end})
			start = span[0]
		}
		end = span[1]
		prevWords = words
	}
	chunks = append(chunks, Chunk{Text: content[start:end], Start: start, End: end})
	return chunks
}

func paragraphSpans(content string) [][2]int {
	var spans [][2]int
	start := 0
	i := 0
	for i < len(content) {
		if content[i] == '\n' && i+1 < len(content) && content[i+1] == '\n' {
			spans = appendSpan(spans, content, start, i)
			for i < len(content) && content[i] == '\n' {
				i++
			}
			start = i
			continue
		}
		i++
	}
	return appendSpan(spans, content, start, len(content))
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(w) > 2 {
			set[w] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
