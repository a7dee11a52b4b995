package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tobiasweide/ragent/internal/evaluate"
	"github.com/tobiasweide/ragent/internal/generate"
	"github.com/tobiasweide/ragent/internal/retriever"
	"github.com/tobiasweide/ragent/internal/router"
	"github.com/tobiasweide/ragent/internal/tracker"
)

// Recorder receives completed runs. *tracker.Tracker implements it.
type Recorder interface {
	Record(ctx context.Context, rec tracker.PerformanceRecord) (tracker.PerformanceRecord, error)
}

// Orchestrator ties the router, retriever, generator, and evaluator
// into the iterative query loop.
type Orchestrator struct {
	engine    *retriever.Engine
	generator *generate.Generator
	evaluator *evaluate.Evaluator
	critic    *evaluate.Critic
	stats     router.StatsProvider
	recorder  Recorder
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithStats biases routing with historical strategy performance.
func WithStats(stats router.StatsProvider) Option {
	return func(o *Orchestrator) { o.stats = stats }
}

// WithRecorder hands completed runs to a performance recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// New creates an orchestrator over the given collaborators.
func New(engine *retriever.Engine, generator *generate.Generator, evaluator *evaluate.Evaluator, critic *evaluate.Critic, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine:    engine,
		generator: generator,
		evaluator: evaluator,
		critic:    critic,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run accumulates per-run state across iterations.
type run struct {
	o     *Orchestrator
	cfg   Config
	id    string
	query string
	start time.Time
	nodes []ReformulationNode
}

// Run executes the full loop for one query. The only error it returns
// is an invalid configuration, rejected before any state runs;
// collaborator failures and cancellation produce a degraded terminal
// response instead.
func (o *Orchestrator) Run(ctx context.Context, query string, cfg Config) (*Response, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}

	r := &run{o: o, cfg: cfg, id: uuid.NewString(), query: query, start: time.Now()}
	current := r.addNode(query, NodeOriginal, "", "", 0, "")

	var (
		decision    router.Decision
		retrieval   retriever.Result
		answer      string
		criticism   *evaluate.Criticism
		suggestions []string
	)

	for attempt := 1; ; attempt++ {
		currentQuery := r.nodes[current].Query

		// Cancellation is honored between transitions; a canceled run is
		// not handed to the recorder.
		if ctx.Err() != nil {
			return r.canceled(ctx, decision, retrieval, answer, criticism, attempt-1), nil
		}

		r.emit(PhaseRoute, StatusInProgress, "classifying query", 10)
		decision = router.Route(currentQuery, o.engine.Summary(), o.stats)
		r.emitDetails(PhaseRoute, StatusComplete,
			fmt.Sprintf("%s via %s", decision.Intent, decision.Strategy),
			decision.Reasoning, 20)

		retrieval = retriever.Result{Method: decision.Strategy, QueryUsed: currentQuery}
		if decision.NeedsRetrieval {
			r.emit(PhaseRetrieve, StatusInProgress, "searching the corpus", 25)
			var err error
			retrieval, err = o.engine.Retrieve(ctx, currentQuery, decision, cfg.TopK)
			if err != nil {
				r.emit(PhaseRetrieve, StatusError, err.Error(), 40)
				return r.degraded(ctx, decision, retrieval, attempt,
					fmt.Sprintf("retrieval failed: %v", err)), nil
			}
			r.emit(PhaseRetrieve, StatusComplete,
				fmt.Sprintf("%d passages retrieved", len(retrieval.Hits)), 40)
		}

		if ctx.Err() != nil {
			return r.canceled(ctx, decision, retrieval, answer, criticism, attempt-1), nil
		}

		r.emit(PhaseGenerate, StatusInProgress, "generating answer", 50)
		var err error
		if decision.NeedsRetrieval {
			answer, err = o.generator.Answer(ctx, currentQuery, retrieval.Hits, suggestions)
		} else {
			answer, err = o.generator.Direct(ctx, currentQuery)
		}
		if err != nil {
			r.emit(PhaseGenerate, StatusError, err.Error(), 60)
			return r.degraded(ctx, decision, retrieval, attempt,
				fmt.Sprintf("generation failed: %v", err)), nil
		}
		r.emit(PhaseGenerate, StatusComplete, "answer generated", 60)

		if ctx.Err() != nil {
			return r.canceled(ctx, decision, retrieval, answer, criticism, attempt-1), nil
		}

		var eval evaluate.Evaluation
		if decision.NeedsRetrieval {
			r.emit(PhaseEvaluate, StatusInProgress, "grading answer against evidence", 70)
			eval = o.evaluator.Evaluate(ctx, currentQuery, answer, retrieval, cfg.ConfidenceThreshold)
			r.emit(PhaseEvaluate, StatusComplete,
				fmt.Sprintf("confidence %.2f", eval.Confidence), 80)
		} else {
			// No evidence to grade a direct answer against.
			eval = evaluate.Evaluation{
				Confidence: decision.Confidence,
				Reasoning:  "direct answer; evidence grading skipped",
			}
		}
		r.nodes[current].Confidence = eval.Confidence

		if cfg.EnableCriticism && decision.NeedsRetrieval {
			r.emit(PhaseCriticize, StatusInProgress, "reviewing answer quality", 85)
			crit := o.critic.Critique(ctx, answer, retrieval)
			criticism = &crit
			suggestions = crit.Suggestions
			r.emit(PhaseCriticize, StatusComplete, "review complete", 90)
		}

		done := !eval.NeedsRetry ||
			!decision.NeedsRetrieval ||
			!cfg.EnableAutoRetry ||
			attempt >= cfg.MaxIterations
		if done {
			resp := r.terminal(decision, retrieval, answer, eval, criticism, attempt, eval.NeedsRetry, false)
			r.record(ctx, resp)
			r.emitDetails(PhaseDone, StatusComplete, "run complete",
				fmt.Sprintf("confidence %.2f after %d iteration(s)", eval.Confidence, attempt), 100)
			return resp, nil
		}

		ref := reformulate(currentQuery, eval)
		r.emitDetails(PhaseRetry, StatusInProgress,
			fmt.Sprintf("retrying with %s query", ref.linkType), ref.query, 95)
		current = r.addNode(ref.query, ref.nodeType, r.nodes[current].ID, ref.linkType, attempt, ref.reasoning)
	}
}

// addNode appends a reformulation node and returns its index.
func (r *run) addNode(query string, nodeType NodeType, parentID string, linkType LinkType, iteration int, reasoning string) int {
	r.nodes = append(r.nodes, ReformulationNode{
		ID:        uuid.NewString(),
		Query:     query,
		Type:      nodeType,
		ParentID:  parentID,
		LinkType:  linkType,
		Iteration: iteration,
		Reasoning: reasoning,
		Timestamp: time.Now().UTC(),
	})
	return len(r.nodes) - 1
}

func (r *run) emit(phase Phase, status Status, message string, progress int) {
	r.emitDetails(phase, status, message, "", progress)
}

func (r *run) emitDetails(phase Phase, status Status, message, details string, progress int) {
	if r.cfg.OnProgress == nil {
		return
	}
	r.cfg.OnProgress(ProgressStep{
		Phase:    phase,
		Status:   status,
		Message:  message,
		Details:  details,
		Progress: progress,
	})
}

// terminal assembles the response envelope.
func (r *run) terminal(decision router.Decision, retrieval retriever.Result, answer string, eval evaluate.Evaluation, criticism *evaluate.Criticism, iterations int, needsImprovement, degraded bool) *Response {
	var suggestions []string
	if criticism != nil {
		suggestions = criticism.Suggestions
	}
	return &Response{
		RunID:          r.id,
		Query:          r.query,
		Answer:         answer,
		Sources:        retrieval.Hits,
		Routing:        decision,
		Retrieval:      retrieval,
		Evaluation:     eval,
		Criticism:      criticism,
		Iterations:     iterations,
		Reformulations: r.nodes,
		Metadata: Metadata{
			NeedsImprovement:       needsImprovement,
			Degraded:               degraded,
			ImprovementSuggestions: suggestions,
			Elapsed:                time.Since(r.start),
		},
	}
}

// degraded is the terminal response for an unrecoverable collaborator
// failure: zero confidence, retry advised, attempts reported.
func (r *run) degraded(ctx context.Context, decision router.Decision, retrieval retriever.Result, iterations int, reason string) *Response {
	eval := evaluate.Evaluation{
		Relevance:  evaluate.NotRelevant,
		Support:    evaluate.NotSupported,
		Utility:    evaluate.NotUseful,
		NeedsRetry: true,
		Reasoning:  reason,
	}
	resp := r.terminal(decision, retrieval, "", eval, nil, iterations, true, true)
	r.record(ctx, resp)
	r.emitDetails(PhaseDone, StatusError, "run failed", reason, 100)
	return resp
}

// canceled is the terminal response after cooperative cancellation.
// The run is not recorded: it never completed.
func (r *run) canceled(ctx context.Context, decision router.Decision, retrieval retriever.Result, answer string, criticism *evaluate.Criticism, iterations int) *Response {
	eval := evaluate.Evaluation{
		Relevance:  evaluate.NotRelevant,
		Support:    evaluate.NotSupported,
		Utility:    evaluate.NotUseful,
		NeedsRetry: true,
		Reasoning:  fmt.Sprintf("run canceled: %v", ctx.Err()),
	}
	r.emit(PhaseDone, StatusError, "run canceled", 100)
	return r.terminal(decision, retrieval, answer, eval, criticism, iterations, true, true)
}

// record hands the completed run to the performance recorder. Recording
// is best-effort: a storage failure never fails the run.
func (r *run) record(ctx context.Context, resp *Response) {
	if r.o.recorder == nil {
		return
	}
	_, _ = r.o.recorder.Record(ctx, tracker.PerformanceRecord{
		ID:                 resp.RunID,
		Query:              r.query,
		Intent:             resp.Routing.Intent,
		Strategy:           resp.Routing.Strategy,
		Confidence:         resp.Evaluation.Confidence,
		Iterations:         resp.Iterations,
		RetrievalTime:      time.Since(r.start),
		DocumentsRetrieved: len(resp.Retrieval.Hits),
		NeedsImprovement:   resp.Metadata.NeedsImprovement,
	})
}
