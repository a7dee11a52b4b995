// Package tracker persists per-run performance records and derives
// per-(intent, strategy) metrics, learning insights, and the historical
// strategy bias the router consumes.
package tracker

import (
	"fmt"
	"time"

	"github.com/tobiasweide/ragent/internal/router"
)

// Feedback is an end-user verdict on one answered query.
type Feedback string

const (
	FeedbackPositive Feedback = "positive"
	FeedbackNegative Feedback = "negative"
	FeedbackNeutral  Feedback = "neutral"
	FeedbackNone     Feedback = ""
)

// ParseFeedback validates a feedback value from an external caller.
func ParseFeedback(s string) (Feedback, error) {
	switch Feedback(s) {
	case FeedbackPositive, FeedbackNegative, FeedbackNeutral:
		return Feedback(s), nil
	}
	return "", fmt.Errorf("unknown feedback %q (want positive, negative, or neutral)", s)
}

// PerformanceRecord is the append-only log entry for one completed run.
type PerformanceRecord struct {
	ID                 string          `json:"id"`
	Query              string          `json:"query"`
	Intent             router.Intent   `json:"intent"`
	Strategy           router.Strategy `json:"strategy"`
	Confidence         float64         `json:"confidence"`
	Iterations         int             `json:"iterations"`
	RetrievalTime      time.Duration   `json:"retrieval_time_ms"`
	DocumentsRetrieved int             `json:"documents_retrieved"`
	NeedsImprovement   bool            `json:"needs_improvement"`
	UserFeedback       Feedback        `json:"user_feedback,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// success is the per-record success predicate metrics are built on.
func (r PerformanceRecord) success() bool {
	return r.Confidence >= successConfidence && r.UserFeedback != FeedbackNegative
}

// StrategyMetrics aggregates every record for one (intent, strategy) pair.
type StrategyMetrics struct {
	Intent               router.Intent   `json:"intent"`
	Strategy             router.Strategy `json:"strategy"`
	TotalQueries         int             `json:"total_queries"`
	SuccessRate          float64         `json:"success_rate"`
	AverageConfidence    float64         `json:"average_confidence"`
	AverageRetrievalTime time.Duration   `json:"average_retrieval_time_ms"`
	AverageIterations    float64         `json:"average_iterations"`
	ImprovementTrend     float64         `json:"improvement_trend"`
	FirstRecordedAt      time.Time       `json:"first_recorded_at"`
	LastRecordedAt       time.Time       `json:"last_recorded_at"`
}

// InsightKind classifies a learning insight.
type InsightKind string

const (
	InsightRecommendation InsightKind = "recommendation"
	InsightUnderperformer InsightKind = "underperformer"
	InsightDegrading      InsightKind = "degrading"
)

// InsightImpact grades how much acting on an insight should matter.
type InsightImpact string

const (
	ImpactLow    InsightImpact = "low"
	ImpactMedium InsightImpact = "medium"
	ImpactHigh   InsightImpact = "high"
)

// SupportingData is the evidence envelope behind an insight.
type SupportingData struct {
	QueriesAnalyzed int    `json:"queries_analyzed"`
	TimeRange       string `json:"time_range"`
}

// LearningInsight is one rule-detected pattern in the run history. The ID
// is a stable slug, so the same history always yields the same IDs.
type LearningInsight struct {
	ID              string          `json:"id"`
	Kind            InsightKind     `json:"kind"`
	Intent          router.Intent   `json:"intent"`
	Strategy        router.Strategy `json:"strategy"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Impact          InsightImpact   `json:"impact"`
	Actionable      bool            `json:"actionable"`
	SuggestedAction string          `json:"suggested_action,omitempty"`
	SupportingData  SupportingData  `json:"supporting_data"`
}

const (
	// successConfidence is the confidence floor for a run to count as a
	// success.
	successConfidence = 0.7

	// trendWindow is N in the recent-N vs preceding-N trend comparison.
	trendWindow = 5

	// minInsightSamples is how many records a pair needs before the
	// insight rules consider it.
	minInsightSamples = 3
)
