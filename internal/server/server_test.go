package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/db"
	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/router"
	"github.com/tobiasweide/ragent/internal/tracker"
)

// stubRunner answers every query with a canned response and emits one
// progress event when a callback is attached.
type stubRunner struct {
	answer string
}

func (r stubRunner) Run(ctx context.Context, query string, cfg orchestrator.Config) (*orchestrator.Response, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.OnProgress != nil {
		cfg.OnProgress(orchestrator.ProgressStep{
			Phase: orchestrator.PhaseRoute, Status: orchestrator.StatusInProgress,
			Message: "classifying query", Progress: 10,
		})
		cfg.OnProgress(orchestrator.ProgressStep{
			Phase: orchestrator.PhaseDone, Status: orchestrator.StatusComplete,
			Message: "run complete", Progress: 100,
		})
	}
	return &orchestrator.Response{
		RunID:      "run-1",
		Query:      query,
		Answer:     r.answer,
		Iterations: 1,
		Routing:    router.Decision{Intent: router.IntentFactual, Strategy: router.StrategySemantic},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *tracker.Tracker, *corpus.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	tr, err := tracker.New(database)
	if err != nil {
		t.Fatalf("creating tracker: %v", err)
	}
	store := corpus.NewStore(database)

	srv := New(Config{
		AllowedOrigins: []string{"*"},
		Run:            orchestrator.DefaultConfig(),
	}, stubRunner{answer: "Refunds take 30 days."}, tr, store)
	return srv, tr, store
}

func TestHealthCheck(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestQueryEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := strings.NewReader(`{"query":"What is the refund policy?"}`)
	req := httptest.NewRequest("POST", "/api/query", body)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp orchestrator.Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Answer == "" || resp.RunID != "run-1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestQueryEndpointRejectsEmptyQuery(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/api/query", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	srv, tr, _ := newTestServer(t)

	rec, err := tr.Record(context.Background(), tracker.PerformanceRecord{
		Query: "q", Intent: router.IntentFactual, Strategy: router.StrategySemantic, Confidence: 0.9,
	})
	if err != nil {
		t.Fatalf("recording run: %v", err)
	}

	body := strings.NewReader(`{"run_id":"` + rec.ID + `","feedback":"negative"}`)
	req := httptest.NewRequest("POST", "/api/feedback", body)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	history, err := tr.QueryHistory(context.Background())
	if err != nil {
		t.Fatalf("reading history: %v", err)
	}
	if history[0].UserFeedback != tracker.FeedbackNegative {
		t.Errorf("feedback not stored: %+v", history[0])
	}
}

func TestFeedbackEndpointErrors(t *testing.T) {
	srv, _, _ := newTestServer(t)

	cases := []struct {
		body string
		want int
	}{
		{`{"run_id":"nope","feedback":"positive"}`, http.StatusNotFound},
		{`{"run_id":"x","feedback":"amazing"}`, http.StatusBadRequest},
		{`{"feedback":"positive"}`, http.StatusBadRequest},
	}
	for _, tt := range cases {
		req := httptest.NewRequest("POST", "/api/feedback", strings.NewReader(tt.body))
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("body %s: got %d, want %d", tt.body, w.Code, tt.want)
		}
	}
}

func TestMetricsAndHistoryEndpoints(t *testing.T) {
	srv, tr, _ := newTestServer(t)

	if _, err := tr.Record(context.Background(), tracker.PerformanceRecord{
		Query: "q", Intent: router.IntentFactual, Strategy: router.StrategySemantic, Confidence: 0.9,
	}); err != nil {
		t.Fatalf("recording run: %v", err)
	}

	for _, path := range []string{"/api/metrics", "/api/insights", "/api/history"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}

	req := httptest.NewRequest("GET", "/api/metrics", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	var metrics []tracker.StrategyMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatalf("unmarshal metrics: %v", err)
	}
	if len(metrics) != 1 || metrics[0].TotalQueries != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestDocumentsEndpoint(t *testing.T) {
	srv, _, store := newTestServer(t)

	if _, err := store.Add(context.Background(), corpus.Document{
		Title: "Refund Policy", Content: "Refunds within 30 days.",
	}); err != nil {
		t.Fatalf("adding document: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/documents", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var docs []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &docs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(docs) != 1 || docs[0]["title"] != "Refund Policy" {
		t.Errorf("documents = %+v", docs)
	}
}

func TestQuerySocketStreamsProgress(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/query"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := conn.WriteJSON(map[string]string{"query": "What is the refund policy?"}); err != nil {
		t.Fatalf("writing query: %v", err)
	}

	var types []string
	for {
		var msg socketMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("reading message: %v", err)
		}
		types = append(types, msg.Type)
		if msg.Type == "response" {
			if msg.Response == nil || msg.Response.Answer == "" {
				t.Errorf("final message missing response: %+v", msg)
			}
			break
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error message: %+v", msg)
		}
	}

	if len(types) < 2 || types[0] != "progress" {
		t.Errorf("message sequence = %v, want progress events before the response", types)
	}
}
