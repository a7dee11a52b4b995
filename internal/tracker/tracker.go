package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tobiasweide/ragent/internal/db"
	"github.com/tobiasweide/ragent/internal/router"
)

// ErrRecordNotFound is returned when feedback targets an unknown run.
var ErrRecordNotFound = errors.New("performance record not found")

type statKey struct {
	intent   router.Intent
	strategy router.Strategy
}

// pairStats holds the running sums behind one StrategyMetrics entry.
// Confidences keeps the most recent 2*trendWindow values for the trend.
type pairStats struct {
	total         int
	successes     int
	confidenceSum float64
	timeSum       time.Duration
	iterationSum  int
	firstAt       time.Time
	lastAt        time.Time
	recent        []float64
}

func (s *pairStats) add(rec PerformanceRecord) {
	s.total++
	if rec.success() {
		s.successes++
	}
	s.confidenceSum += rec.Confidence
	s.timeSum += rec.RetrievalTime
	s.iterationSum += rec.Iterations
	if s.firstAt.IsZero() || rec.CreatedAt.Before(s.firstAt) {
		s.firstAt = rec.CreatedAt
	}
	if rec.CreatedAt.After(s.lastAt) {
		s.lastAt = rec.CreatedAt
	}

	s.recent = append(s.recent, rec.Confidence)
	if len(s.recent) > 2*trendWindow {
		s.recent = s.recent[len(s.recent)-2*trendWindow:]
	}
}

// trend is the recent-window mean confidence minus the preceding-window
// mean. Zero until both windows have at least one sample.
func (s *pairStats) trend() float64 {
	if len(s.recent) <= trendWindow {
		return 0
	}
	split := len(s.recent) - trendWindow
	return mean(s.recent[split:]) - mean(s.recent[:split])
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

// Tracker is the append-only performance log plus its derived metrics.
// Writes are serialized by the mutex; reads return copied snapshots.
type Tracker struct {
	db *db.DB

	mu    sync.Mutex
	stats map[statKey]*pairStats
}

// New opens a tracker over the given database and replays the stored
// history into the in-memory metrics.
func New(database *db.DB) (*Tracker, error) {
	t := &Tracker{
		db:    database,
		stats: make(map[statKey]*pairStats),
	}

	records, err := t.history(context.Background(), false)
	if err != nil {
		return nil, fmt.Errorf("replaying performance history: %w", err)
	}
	for _, rec := range records {
		t.apply(rec)
	}
	return t, nil
}

// apply folds one record into the running stats. Callers hold t.mu.
func (t *Tracker) apply(rec PerformanceRecord) {
	key := statKey{rec.Intent, rec.Strategy}
	s := t.stats[key]
	if s == nil {
		s = &pairStats{}
		t.stats[key] = s
	}
	s.add(rec)
}

// Record appends one completed run. An empty ID is replaced with a new
// UUID; the possibly-filled record is returned.
func (t *Tracker) Record(ctx context.Context, rec PerformanceRecord) (PerformanceRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, err := t.db.ExecContext(ctx, `
		INSERT INTO performance_records
			(id, query, intent, strategy, confidence, iterations, time_ms,
			 documents_retrieved, needs_improvement, user_feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Query, string(rec.Intent), string(rec.Strategy),
		rec.Confidence, rec.Iterations, rec.RetrievalTime.Milliseconds(),
		rec.DocumentsRetrieved, boolToInt(rec.NeedsImprovement),
		string(rec.UserFeedback), rec.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return PerformanceRecord{}, fmt.Errorf("inserting performance record: %w", err)
	}

	t.apply(rec)
	return rec, nil
}

// RecordUserFeedback attaches feedback to a run. Repeated calls for the
// same run overwrite the previous verdict instead of appending.
func (t *Tracker) RecordUserFeedback(ctx context.Context, runID string, feedback Feedback) error {
	if _, err := ParseFeedback(string(feedback)); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		intentStr, strategyStr, oldFeedback string
		confidence                          float64
	)
	err := t.db.QueryRowContext(ctx, `
		SELECT intent, strategy, confidence, COALESCE(user_feedback, '')
		FROM performance_records WHERE id = ?`, runID).
		Scan(&intentStr, &strategyStr, &confidence, &oldFeedback)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("loading performance record: %w", err)
	}

	if _, err := t.db.ExecContext(ctx, `
		UPDATE performance_records SET user_feedback = ? WHERE id = ?`,
		string(feedback), runID); err != nil {
		return fmt.Errorf("recording feedback: %w", err)
	}

	// Re-evaluate the success predicate for this record under the new
	// feedback and adjust the pair's running success count.
	key := statKey{router.Intent(intentStr), router.Strategy(strategyStr)}
	if s := t.stats[key]; s != nil {
		wasSuccess := confidence >= successConfidence && Feedback(oldFeedback) != FeedbackNegative
		isSuccess := confidence >= successConfidence && feedback != FeedbackNegative
		switch {
		case wasSuccess && !isSuccess:
			s.successes--
		case !wasSuccess && isSuccess:
			s.successes++
		}
	}
	return nil
}

// AllMetrics returns a metrics snapshot for every (intent, strategy)
// pair seen so far, ordered by intent then strategy.
func (t *Tracker) AllMetrics() []StrategyMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]StrategyMetrics, 0, len(t.stats))
	for key, s := range t.stats {
		out = append(out, StrategyMetrics{
			Intent:               key.intent,
			Strategy:             key.strategy,
			TotalQueries:         s.total,
			SuccessRate:          float64(s.successes) / float64(s.total),
			AverageConfidence:    s.confidenceSum / float64(s.total),
			AverageRetrievalTime: s.timeSum / time.Duration(s.total),
			AverageIterations:    float64(s.iterationSum) / float64(s.total),
			ImprovementTrend:     s.trend(),
			FirstRecordedAt:      s.firstAt,
			LastRecordedAt:       s.lastAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Intent != out[j].Intent {
			return out[i].Intent < out[j].Intent
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

// QueryHistory returns all recorded runs, newest first.
func (t *Tracker) QueryHistory(ctx context.Context) ([]PerformanceRecord, error) {
	return t.history(ctx, true)
}

func (t *Tracker) history(ctx context.Context, newestFirst bool) ([]PerformanceRecord, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	rows, err := t.db.QueryContext(ctx, `
		SELECT id, query, intent, strategy, confidence, iterations, time_ms,
		       documents_retrieved, needs_improvement, COALESCE(user_feedback, ''),
		       created_at
		FROM performance_records ORDER BY created_at `+order+`, rowid `+order)
	if err != nil {
		return nil, fmt.Errorf("listing performance records: %w", err)
	}
	defer rows.Close()

	var records []PerformanceRecord
	for rows.Next() {
		var (
			rec                    PerformanceRecord
			intentStr, strategyStr string
			feedbackStr, createdAt string
			timeMs                 int64
			needsImprovement       int
		)
		if err := rows.Scan(&rec.ID, &rec.Query, &intentStr, &strategyStr,
			&rec.Confidence, &rec.Iterations, &timeMs,
			&rec.DocumentsRetrieved, &needsImprovement, &feedbackStr,
			&createdAt); err != nil {
			return nil, fmt.Errorf("scanning performance record: %w", err)
		}
		rec.Intent = router.Intent(intentStr)
		rec.Strategy = router.Strategy(strategyStr)
		rec.RetrievalTime = time.Duration(timeMs) * time.Millisecond
		rec.NeedsImprovement = needsImprovement != 0
		rec.UserFeedback = Feedback(feedbackStr)
		rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BestStrategy implements the router's historical-bias lookup: the
// strategy with the highest success rate for the intent, confidence as
// the tie-break, along with its sample count.
func (t *Tracker) BestStrategy(intent router.Intent) (router.Strategy, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var (
		best        router.Strategy
		bestRate    float64
		bestConf    float64
		bestSamples int
	)
	for key, s := range t.stats {
		if key.intent != intent {
			continue
		}
		rate := float64(s.successes) / float64(s.total)
		conf := s.confidenceSum / float64(s.total)
		better := rate > bestRate ||
			(rate == bestRate && conf > bestConf) ||
			(rate == bestRate && conf == bestConf && key.strategy < best)
		if best == "" || better {
			best = key.strategy
			bestRate = rate
			bestConf = conf
			bestSamples = s.total
		}
	}
	return best, bestSamples
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
