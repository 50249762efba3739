package config

import (
	"os"
	"time"
)

// Defaults for values the configuration leaves unset.
const (
	DefaultThreshold           = 0.7
	DefaultTopK                = 3
	DefaultCandidateMultiplier = 2
	DefaultHistoryWindow       = 6
	DefaultTemperature         = 0.7
	DefaultEmbeddingTimeout    = 15 * time.Second
	DefaultGenerationTimeout   = 60 * time.Second
)

// MaxRetries bounds how often a timed-out external call is repeated.
const MaxRetries = 1

// ApplyEnv overlays credentials and model targets from the environment.
// Non-empty variables win over file values.
func ApplyEnv(cfg *Config) {
	overlay := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Provider, "RAGDESK_PROVIDER")
	overlay(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	overlay(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	overlay(&cfg.OpenAI.Model, "OPENAI_MODEL")
	overlay(&cfg.Embedding.APIKey, "OPENAI_EMBEDDING_API_KEY")
	overlay(&cfg.Embedding.BaseURL, "OPENAI_EMBEDDING_BASE_URL")
	overlay(&cfg.Embedding.Model, "OPENAI_EMBEDDING_MODEL")
	overlay(&cfg.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	overlay(&cfg.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	overlay(&cfg.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT_NAME")
	overlay(&cfg.Azure.EmbeddingDeployment, "AZURE_OPENAI_EMBEDDING_DEPLOYMENT")
	overlay(&cfg.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")
	overlay(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4o-mini"
	}
	if cfg.OpenAI.Temperature == nil {
		t := DefaultTemperature
		cfg.OpenAI.Temperature = &t
	}
	if cfg.OpenAI.MaxTokens == 0 {
		cfg.OpenAI.MaxTokens = 1024
	}
	if cfg.Azure.APIVersion == "" {
		cfg.Azure.APIVersion = "2024-06-01"
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-3-5-sonnet-20241022"
	}
	if cfg.Anthropic.Temperature == nil {
		t := DefaultTemperature
		cfg.Anthropic.Temperature = &t
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = 1024
	}

	if cfg.Embedding.Provider == "" {
		switch cfg.Provider {
		case ProviderAzure, ProviderMock:
			cfg.Embedding.Provider = cfg.Provider
		default:
			cfg.Embedding.Provider = ProviderOpenAI
		}
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.OpenAI.APIKey
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = cfg.OpenAI.BaseURL
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 && cfg.Embedding.Provider == ProviderMock {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1024
	}

	if cfg.Knowledge.CorpusPath == "" {
		cfg.Knowledge.CorpusPath = "data/knowledge_base.json"
	}
	if cfg.Knowledge.IndexBackend == "" {
		cfg.Knowledge.IndexBackend = "file"
	}
	if cfg.Knowledge.IndexPath == "" {
		if cfg.Knowledge.IndexBackend == "sqlite" {
			cfg.Knowledge.IndexPath = "data/index.db"
		} else {
			cfg.Knowledge.IndexPath = "data/index.json"
		}
	}
	if cfg.Knowledge.ChunkSize == 0 {
		cfg.Knowledge.ChunkSize = 500
	}
	if cfg.Knowledge.ChunkOverlap == 0 {
		cfg.Knowledge.ChunkOverlap = 50
	}
	if cfg.Knowledge.Concurrency == 0 {
		cfg.Knowledge.Concurrency = 4
	}

	if cfg.Retrieval.Threshold == nil {
		t := DefaultThreshold
		cfg.Retrieval.Threshold = &t
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Retrieval.CandidateMultiplier == 0 {
		cfg.Retrieval.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if cfg.Conversation.HistoryWindow == nil {
		w := DefaultHistoryWindow
		cfg.Conversation.HistoryWindow = &w
	}

	if cfg.Timeouts.Embedding == 0 {
		cfg.Timeouts.Embedding = DefaultEmbeddingTimeout
	}
	if cfg.Timeouts.Generation == 0 {
		cfg.Timeouts.Generation = DefaultGenerationTimeout
	}
	if cfg.Timeouts.Retries == nil {
		r := MaxRetries
		cfg.Timeouts.Retries = &r
	}

	if cfg.Tickets.Backend == "" {
		cfg.Tickets.Backend = "memory"
	}
	if cfg.Tickets.Path == "" {
		cfg.Tickets.Path = "data/tickets.db"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"*"}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Backend == "" {
		cfg.Logging.Backend = "slog"
	}
}
