package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/tobiasweide/ragent/internal/backend"
	"github.com/tobiasweide/ragent/internal/chunker"
	"github.com/tobiasweide/ragent/internal/config"
	"github.com/tobiasweide/ragent/internal/corpus"
	"github.com/tobiasweide/ragent/internal/db"
	"github.com/tobiasweide/ragent/internal/embeddings"
	"github.com/tobiasweide/ragent/internal/evaluate"
	"github.com/tobiasweide/ragent/internal/generate"
	"github.com/tobiasweide/ragent/internal/llm"
	"github.com/tobiasweide/ragent/internal/orchestrator"
	"github.com/tobiasweide/ragent/internal/retriever"
	"github.com/tobiasweide/ragent/internal/tracker"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `ragent init` to create a config file", err)
	}
	return cfg, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// This is the shared version used by ingest, query, serve, and mcp commands.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	model := cfg.EmbeddingModel
	if model == "" {
		preset := config.GetPreset(provider, cfg.Quality)
		model = preset.EmbeddingModel
	}

	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, 768, ""), nil
	default:
		// For providers without native embeddings, fall back to OpenAI.
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required (used for embeddings when provider is %s)", provider)
		}
		return embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(model)), nil
	}
}

// createLLMProviderFromConfig creates a rate-limited LLM provider based on
// config settings.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	return llm.NewRateLimitedProvider(provider, 60), nil
}

// openDatabase opens (and migrates) the SQLite database from config.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}
	return database, nil
}

// buildEngine constructs the retrieval engine and indexes every stored
// document into it. The in-process indexes are rebuilt on each start;
// the corpus store is the durable source of truth.
func buildEngine(ctx context.Context, cfg *config.Config, store *corpus.Store) (*retriever.Engine, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	strategy, err := chunker.ParseStrategy(cfg.Chunking.Strategy)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking strategy: %w", err)
	}

	opts := []retriever.Option{
		retriever.WithChunking(strategy, chunker.Options{
			Size:    cfg.Chunking.Size,
			Overlap: cfg.Chunking.Overlap,
		}),
	}
	if cfg.Backend.URL != "" {
		client := backend.NewClient(cfg.Backend.URL, os.Getenv("SEARCH_BACKEND_API_KEY"))
		opts = append(opts, retriever.WithBackend(client, cfg.Backend.Index))
	}

	engine, err := retriever.NewEngine(embedder, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating retrieval engine: %w", err)
	}

	docs, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading corpus: %w", err)
	}
	if len(docs) > 0 {
		if err := engine.AddDocuments(ctx, docs); err != nil {
			return nil, fmt.Errorf("indexing corpus: %w", err)
		}
	}
	return engine, nil
}

// buildOrchestrator wires the full agentic loop: generator, evaluator,
// critic, and the performance tracker (as both routing bias and run
// recorder).
func buildOrchestrator(cfg *config.Config, engine *retriever.Engine, tr *tracker.Tracker) (*orchestrator.Orchestrator, error) {
	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	generator := generate.New(provider, cfg.Model)
	evaluator := evaluate.NewEvaluator(provider, cfg.Model)
	critic := evaluate.NewCritic(provider, cfg.Model)

	return orchestrator.New(engine, generator, evaluator, critic,
		orchestrator.WithStats(tr),
		orchestrator.WithRecorder(tr),
	), nil
}

// runConfig translates the file config into per-run loop settings.
func runConfig(cfg *config.Config) orchestrator.Config {
	run := orchestrator.DefaultConfig()
	if cfg.TopK > 0 {
		run.TopK = cfg.TopK
	}
	if cfg.MaxIterations > 0 {
		run.MaxIterations = cfg.MaxIterations
	}
	if cfg.ConfidenceThreshold > 0 {
		run.ConfidenceThreshold = cfg.ConfidenceThreshold
	}
	run.EnableCriticism = cfg.EnableCriticism
	run.EnableAutoRetry = cfg.EnableAutoRetry
	return run
}
