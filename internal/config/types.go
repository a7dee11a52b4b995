package config

// QualityTier controls the model selection trade-off between speed/cost
// and answer quality.
type QualityTier string

const (
	QualityLite   QualityTier = "lite"
	QualityNormal QualityTier = "normal"
	QualityMax    QualityTier = "max"
)

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level ragent configuration, corresponding to .ragent.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	Quality           QualityTier  `yaml:"quality" koanf:"quality"`

	DatabasePath string `yaml:"database_path" koanf:"database_path"`

	// Query loop parameters; see orchestrator.Config.
	TopK                int     `yaml:"top_k" koanf:"top_k"`
	MaxIterations       int     `yaml:"max_iterations" koanf:"max_iterations"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" koanf:"confidence_threshold"`
	EnableCriticism     bool    `yaml:"enable_criticism" koanf:"enable_criticism"`
	EnableAutoRetry     bool    `yaml:"enable_auto_retry" koanf:"enable_auto_retry"`

	Chunking ChunkingConfig `yaml:"chunking" koanf:"chunking"`

	// Ingest glob filters.
	Include []string `yaml:"include" koanf:"include"`
	Exclude []string `yaml:"exclude" koanf:"exclude"`

	Server  ServerConfig  `yaml:"server" koanf:"server"`
	Backend BackendConfig `yaml:"backend" koanf:"backend"`
}

// ChunkingConfig selects how documents are split for semantic indexing.
type ChunkingConfig struct {
	Strategy string `yaml:"strategy" koanf:"strategy"`
	Size     int    `yaml:"size" koanf:"size"`
	Overlap  int    `yaml:"overlap" koanf:"overlap"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host           string   `yaml:"host" koanf:"host"`
	Port           int      `yaml:"port" koanf:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" koanf:"allowed_origins"`
}

// BackendConfig points retrieval at a managed search service instead of
// the in-process indexes. Empty URL disables it; the API key is read
// from SEARCH_BACKEND_API_KEY.
type BackendConfig struct {
	URL   string `yaml:"url" koanf:"url"`
	Index string `yaml:"index" koanf:"index"`
}
