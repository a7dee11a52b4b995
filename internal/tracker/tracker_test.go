package tracker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tobiasweide/ragent/internal/db"
	"github.com/tobiasweide/ragent/internal/router"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tr, err := New(database)
	if err != nil {
		t.Fatalf("creating tracker: %v", err)
	}
	return tr
}

func record(intent router.Intent, strategy router.Strategy, confidence float64) PerformanceRecord {
	return PerformanceRecord{
		Query:              "q",
		Intent:             intent,
		Strategy:           strategy,
		Confidence:         confidence,
		Iterations:         1,
		RetrievalTime:      40 * time.Millisecond,
		DocumentsRetrieved: 3,
	}
}

func TestMetricsAggregation(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	for _, conf := range []float64{0.9, 0.8, 0.9, 0.7, 0.9} {
		if _, err := tr.Record(ctx, record(router.IntentFactual, router.StrategySemantic, conf)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
	}

	metrics := tr.AllMetrics()
	if len(metrics) != 1 {
		t.Fatalf("AllMetrics returned %d entries, want 1", len(metrics))
	}
	m := metrics[0]
	if m.TotalQueries != 5 {
		t.Errorf("TotalQueries = %d, want 5", m.TotalQueries)
	}
	if m.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0", m.SuccessRate)
	}
	if math.Abs(m.AverageConfidence-0.84) > 1e-9 {
		t.Errorf("AverageConfidence = %v, want 0.84", m.AverageConfidence)
	}
	if m.AverageIterations != 1 {
		t.Errorf("AverageIterations = %v, want 1", m.AverageIterations)
	}
	if m.AverageRetrievalTime != 40*time.Millisecond {
		t.Errorf("AverageRetrievalTime = %v, want 40ms", m.AverageRetrievalTime)
	}
}

func TestFeedbackOverwritesAndAdjustsSuccess(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	rec, err := tr.Record(ctx, record(router.IntentFactual, router.StrategySemantic, 0.9))
	if err != nil {
		t.Fatalf("recording run: %v", err)
	}

	if err := tr.RecordUserFeedback(ctx, rec.ID, FeedbackNegative); err != nil {
		t.Fatalf("recording feedback: %v", err)
	}

	history, err := tr.QueryHistory(ctx)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d records, want 1 (feedback must not duplicate)", len(history))
	}
	if history[0].UserFeedback != FeedbackNegative {
		t.Errorf("UserFeedback = %q, want negative", history[0].UserFeedback)
	}
	if rate := tr.AllMetrics()[0].SuccessRate; rate != 0 {
		t.Errorf("SuccessRate after negative feedback = %v, want 0", rate)
	}

	// Second call overwrites the verdict.
	if err := tr.RecordUserFeedback(ctx, rec.ID, FeedbackPositive); err != nil {
		t.Fatalf("overwriting feedback: %v", err)
	}
	history, err = tr.QueryHistory(ctx)
	if err != nil {
		t.Fatalf("re-reading history: %v", err)
	}
	if len(history) != 1 || history[0].UserFeedback != FeedbackPositive {
		t.Errorf("after overwrite: %d records, feedback %q", len(history), history[0].UserFeedback)
	}
	if rate := tr.AllMetrics()[0].SuccessRate; rate != 1 {
		t.Errorf("SuccessRate after positive overwrite = %v, want 1", rate)
	}
}

func TestFeedbackValidation(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	if err := tr.RecordUserFeedback(ctx, "missing", FeedbackPositive); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("feedback on unknown run: err = %v, want ErrRecordNotFound", err)
	}
	if err := tr.RecordUserFeedback(ctx, "whatever", Feedback("amazing")); err == nil {
		t.Error("invalid feedback value accepted")
	}
}

func TestQueryHistoryNewestFirst(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	first := record(router.IntentFactual, router.StrategySemantic, 0.9)
	first.Query = "first"
	first.CreatedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	second := record(router.IntentFactual, router.StrategySemantic, 0.8)
	second.Query = "second"
	second.CreatedAt = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	for _, rec := range []PerformanceRecord{first, second} {
		if _, err := tr.Record(ctx, rec); err != nil {
			t.Fatalf("recording run: %v", err)
		}
	}

	history, err := tr.QueryHistory(ctx)
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if len(history) != 2 || history[0].Query != "second" {
		t.Errorf("history order wrong: %+v", history)
	}
}

func TestBestStrategyPrefersHigherSuccessRate(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := tr.Record(ctx, record(router.IntentFactual, router.StrategyKeyword, 0.5)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
		if _, err := tr.Record(ctx, record(router.IntentFactual, router.StrategySemantic, 0.9)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
	}

	strategy, samples := tr.BestStrategy(router.IntentFactual)
	if strategy != router.StrategySemantic {
		t.Errorf("BestStrategy = %s, want semantic", strategy)
	}
	if samples != 3 {
		t.Errorf("samples = %d, want 3", samples)
	}

	if strategy, samples := tr.BestStrategy(router.IntentProcedural); strategy != "" || samples != 0 {
		t.Errorf("BestStrategy for unseen intent = %q/%d, want empty", strategy, samples)
	}
}

func TestReplayOnOpen(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tr, err := New(database)
	if err != nil {
		t.Fatalf("creating tracker: %v", err)
	}
	ctx := context.Background()
	for _, conf := range []float64{0.9, 0.8, 0.7} {
		if _, err := tr.Record(ctx, record(router.IntentAnalytical, router.StrategyHybrid, conf)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
	}

	reopened, err := New(database)
	if err != nil {
		t.Fatalf("reopening tracker: %v", err)
	}
	metrics := reopened.AllMetrics()
	if len(metrics) != 1 || metrics[0].TotalQueries != 3 {
		t.Fatalf("replayed metrics = %+v, want one entry with 3 queries", metrics)
	}
	if math.Abs(metrics[0].AverageConfidence-0.8) > 1e-9 {
		t.Errorf("replayed AverageConfidence = %v, want 0.8", metrics[0].AverageConfidence)
	}
}

func TestImprovementTrend(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	confs := []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.9, 0.9, 0.9, 0.9, 0.9}
	for _, conf := range confs {
		if _, err := tr.Record(ctx, record(router.IntentFactual, router.StrategyHybrid, conf)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
	}

	m := tr.AllMetrics()[0]
	if math.Abs(m.ImprovementTrend-0.4) > 1e-9 {
		t.Errorf("ImprovementTrend = %v, want 0.4", m.ImprovementTrend)
	}
}

func TestInsights(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	// semantic succeeds, keyword fails, both with enough samples.
	for i := 0; i < 3; i++ {
		if _, err := tr.Record(ctx, record(router.IntentFactual, router.StrategySemantic, 0.9)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
		if _, err := tr.Record(ctx, record(router.IntentFactual, router.StrategyKeyword, 0.2)); err != nil {
			t.Fatalf("recording run: %v", err)
		}
	}

	insights := tr.Insights()
	var gotRecommendation, gotUnderperformer bool
	for _, in := range insights {
		if in.ID == "" || in.Title == "" || in.Description == "" {
			t.Errorf("incomplete insight: %+v", in)
		}
		if in.SupportingData.QueriesAnalyzed != 3 {
			t.Errorf("queries analyzed = %d, want 3", in.SupportingData.QueriesAnalyzed)
		}
		if in.SupportingData.TimeRange == "" {
			t.Errorf("missing time range on %s", in.ID)
		}
		switch in.Kind {
		case InsightRecommendation:
			gotRecommendation = in.Strategy == router.StrategySemantic
			// 100% vs 0% success is a wide enough gap for high impact.
			if in.Impact != ImpactHigh {
				t.Errorf("recommendation impact = %s, want high", in.Impact)
			}
			if !in.Actionable || in.SuggestedAction == "" {
				t.Errorf("recommendation should carry a suggested action: %+v", in)
			}
		case InsightUnderperformer:
			gotUnderperformer = in.Strategy == router.StrategyKeyword
			// 0% success is well below the severe threshold.
			if in.Impact != ImpactHigh {
				t.Errorf("underperformer impact = %s, want high", in.Impact)
			}
			if !in.Actionable || in.SuggestedAction == "" {
				t.Errorf("underperformer should carry a suggested action: %+v", in)
			}
		}
	}
	if !gotRecommendation {
		t.Errorf("missing semantic recommendation in %+v", insights)
	}
	if !gotUnderperformer {
		t.Errorf("missing keyword underperformer warning in %+v", insights)
	}

	// Deterministic for the same history.
	again := tr.Insights()
	if len(again) != len(insights) {
		t.Errorf("insights not deterministic: %d vs %d", len(insights), len(again))
	}
}
