package tracker

import (
	"fmt"
	"time"
)

const (
	underperformRate = 0.5
	degradingTrend   = -0.1

	// Thresholds that bump an insight from medium to high impact.
	wideRecommendGap = 0.3
	severeFailRate   = 0.25
	steepDecline     = -0.2
)

// Insights runs the rule-based pattern detectors over the current
// metrics snapshot. Output order and IDs are deterministic for a given
// history.
func (t *Tracker) Insights() []LearningInsight {
	metrics := t.AllMetrics()

	var out []LearningInsight

	// Best strategy per intent, only when a second strategy exists to
	// recommend against.
	byIntent := make(map[string][]StrategyMetrics)
	var intents []string
	for _, m := range metrics {
		if m.TotalQueries < minInsightSamples {
			continue
		}
		key := string(m.Intent)
		if len(byIntent[key]) == 0 {
			intents = append(intents, key)
		}
		byIntent[key] = append(byIntent[key], m)
	}
	for _, intent := range intents {
		group := byIntent[intent]
		if len(group) < 2 {
			continue
		}
		bestIdx, runnerIdx := 0, -1
		for i, m := range group[1:] {
			best := group[bestIdx]
			if m.SuccessRate > best.SuccessRate ||
				(m.SuccessRate == best.SuccessRate && m.AverageConfidence > best.AverageConfidence) {
				runnerIdx = bestIdx
				bestIdx = i + 1
			} else if runnerIdx < 0 || m.SuccessRate > group[runnerIdx].SuccessRate {
				runnerIdx = i + 1
			}
		}
		best, runnerUp := group[bestIdx], group[runnerIdx]
		impact := ImpactMedium
		if best.SuccessRate-runnerUp.SuccessRate >= wideRecommendGap {
			impact = ImpactHigh
		}
		out = append(out, LearningInsight{
			ID:       insightID(InsightRecommendation, best),
			Kind:     InsightRecommendation,
			Intent:   best.Intent,
			Strategy: best.Strategy,
			Title:    fmt.Sprintf("%s works best for %s queries", best.Strategy, best.Intent),
			Description: fmt.Sprintf("%s works best for %s queries (%.0f%% success over %d runs)",
				best.Strategy, best.Intent, best.SuccessRate*100, best.TotalQueries),
			Impact:     impact,
			Actionable: true,
			SuggestedAction: fmt.Sprintf("Route %s queries to the %s strategy",
				best.Intent, best.Strategy),
			SupportingData: supportingData(best),
		})
	}

	for _, m := range metrics {
		if m.TotalQueries < minInsightSamples {
			continue
		}
		if m.SuccessRate < underperformRate {
			impact := ImpactMedium
			if m.SuccessRate < severeFailRate {
				impact = ImpactHigh
			}
			out = append(out, LearningInsight{
				ID:       insightID(InsightUnderperformer, m),
				Kind:     InsightUnderperformer,
				Intent:   m.Intent,
				Strategy: m.Strategy,
				Title:    fmt.Sprintf("%s underperforms for %s queries", m.Strategy, m.Intent),
				Description: fmt.Sprintf("%s underperforms for %s queries (%.0f%% success over %d runs)",
					m.Strategy, m.Intent, m.SuccessRate*100, m.TotalQueries),
				Impact:     impact,
				Actionable: true,
				SuggestedAction: fmt.Sprintf("Avoid the %s strategy for %s queries until its success rate recovers",
					m.Strategy, m.Intent),
				SupportingData: supportingData(m),
			})
		}
		if m.ImprovementTrend < degradingTrend {
			impact := ImpactLow
			if m.ImprovementTrend <= steepDecline {
				impact = ImpactMedium
			}
			out = append(out, LearningInsight{
				ID:       insightID(InsightDegrading, m),
				Kind:     InsightDegrading,
				Intent:   m.Intent,
				Strategy: m.Strategy,
				Title:    fmt.Sprintf("confidence for %s/%s is declining", m.Intent, m.Strategy),
				Description: fmt.Sprintf("confidence for %s/%s has dropped %.2f over recent queries",
					m.Intent, m.Strategy, -m.ImprovementTrend),
				Impact:         impact,
				Actionable:     false,
				SupportingData: supportingData(m),
			})
		}
	}

	return out
}

func insightID(kind InsightKind, m StrategyMetrics) string {
	return fmt.Sprintf("%s-%s-%s", kind, m.Intent, m.Strategy)
}

func supportingData(m StrategyMetrics) SupportingData {
	return SupportingData{
		QueriesAnalyzed: m.TotalQueries,
		TimeRange:       timeRange(m.FirstRecordedAt, m.LastRecordedAt),
	}
}

// timeRange renders the first-to-last record span of the pair.
func timeRange(first, last time.Time) string {
	if first.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s to %s", first.Format(time.DateTime), last.Format(time.DateTime))
}
