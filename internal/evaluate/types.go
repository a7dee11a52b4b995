// Package evaluate scores generated answers against retrieved evidence
// along three categorical axes, blends them into a confidence score, and
// optionally criticizes the answer for the retry prompt.
package evaluate

// RelevanceToken states whether the retrieved evidence addresses the query.
type RelevanceToken string

const (
	Relevant          RelevanceToken = "relevant"
	PartiallyRelevant RelevanceToken = "partially_relevant"
	NotRelevant       RelevanceToken = "not_relevant"
)

// SupportToken states whether the answer is backed by the evidence.
type SupportToken string

const (
	FullySupported     SupportToken = "fully_supported"
	PartiallySupported SupportToken = "partially_supported"
	NotSupported       SupportToken = "not_supported"
)

// UtilityToken states whether the answer is useful for the user's intent.
type UtilityToken string

const (
	Useful          UtilityToken = "useful"
	PartiallyUseful UtilityToken = "partially_useful"
	NotUseful       UtilityToken = "not_useful"
)

// Evaluation is the scored verdict for one generated answer.
type Evaluation struct {
	Relevance  RelevanceToken `json:"relevance"`
	Support    SupportToken   `json:"support"`
	Utility    UtilityToken   `json:"utility"`
	Confidence float64        `json:"confidence"`
	NeedsRetry bool           `json:"needs_retry"`
	Reasoning  string         `json:"reasoning"`
}

// Criticism holds the critic's independent quality scores, each in [0,1],
// and the improvement suggestions fed into the retry prompt.
type Criticism struct {
	LogicalConsistency float64  `json:"logical_consistency"`
	FactualAccuracy    float64  `json:"factual_accuracy"`
	Completeness       float64  `json:"completeness"`
	Suggestions        []string `json:"suggestions,omitempty"`
}

// Confidence blend weights. Support weighs heaviest: an unsupported
// answer is a hallucination no matter how relevant the evidence was.
const (
	weightRelevance = 0.35
	weightSupport   = 0.40
	weightUtility   = 0.25
)

func tokenValue(token string) float64 {
	switch token {
	case string(Relevant), string(FullySupported), string(Useful):
		return 1.0
	case string(PartiallyRelevant), string(PartiallySupported), string(PartiallyUseful):
		return 0.5
	default:
		return 0.0
	}
}

// BlendConfidence maps the three tokens onto [0,1]. It is monotonic in
// token quality: upgrading any single token never lowers the result.
func BlendConfidence(r RelevanceToken, s SupportToken, u UtilityToken) float64 {
	return weightRelevance*tokenValue(string(r)) +
		weightSupport*tokenValue(string(s)) +
		weightUtility*tokenValue(string(u))
}

// conservative is the verdict used when the external scorer fails or
// returns unparseable output.
func conservative(reason string) Evaluation {
	return Evaluation{
		Relevance:  NotRelevant,
		Support:    NotSupported,
		Utility:    NotUseful,
		Confidence: 0,
		NeedsRetry: true,
		Reasoning:  reason,
	}
}
