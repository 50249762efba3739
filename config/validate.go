package config

import (
	"fmt"
	"math"
)

// Validate reports every unusable setting in one *ConfigurationError.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	switch c.Provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			add("openai.api_key is required (set OPENAI_API_KEY)")
		}
		if c.OpenAI.Model == "" {
			add("openai.model is required")
		}
	case ProviderAzure:
		if c.Azure.APIKey == "" {
			add("azure.api_key is required (set AZURE_OPENAI_API_KEY)")
		}
		if c.Azure.Endpoint == "" {
			add("azure.endpoint is required (set AZURE_OPENAI_ENDPOINT)")
		}
		if c.Azure.Deployment == "" {
			add("azure.deployment is required (set AZURE_OPENAI_DEPLOYMENT_NAME)")
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			add("anthropic.api_key is required (set ANTHROPIC_API_KEY)")
		}
	case ProviderMock:
	default:
		add("unknown provider %q", c.Provider)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if c.Embedding.APIKey == "" {
			add("embedding.api_key is required (set OPENAI_EMBEDDING_API_KEY or OPENAI_API_KEY)")
		}
		if c.Embedding.Model == "" {
			add("embedding.model is required")
		}
	case ProviderAzure:
		if c.Azure.APIKey == "" || c.Azure.Endpoint == "" {
			add("azure credentials are required for azure embeddings")
		}
		if c.Azure.EmbeddingDeployment == "" {
			add("azure.embedding_deployment is required (set AZURE_OPENAI_EMBEDDING_DEPLOYMENT)")
		}
	case ProviderMock:
	default:
		add("unknown embedding provider %q", c.Embedding.Provider)
	}

	if t := c.Retrieval.SimilarityThreshold(); math.IsNaN(t) || t < 0 || t > 1 {
		add("retrieval.threshold must be within [0, 1], got %v", t)
	}
	if c.Retrieval.TopK < 1 {
		add("retrieval.top_k must be positive")
	}
	if c.Retrieval.CandidateMultiplier < 1 {
		add("retrieval.candidate_multiplier must be positive")
	}
	if c.Conversation.Window() < 0 {
		add("conversation.history_window must not be negative")
	}
	if c.Timeouts.Embedding < 0 || c.Timeouts.Generation < 0 {
		add("timeouts must not be negative")
	}
	if r := c.Timeouts.RetryCount(); r < 0 || r > MaxRetries {
		add("timeouts.retries must be within [0, %d], got %d", MaxRetries, r)
	}
	if t := c.OpenAI.SamplingTemperature(); t < 0 || t > 2 {
		add("openai.temperature must be within [0, 2], got %v", t)
	}
	if t := c.Anthropic.SamplingTemperature(); t < 0 || t > 1 {
		add("anthropic.temperature must be within [0, 1], got %v", t)
	}
	switch c.Knowledge.IndexBackend {
	case "file", "sqlite":
	default:
		add("knowledge.index_backend must be file or sqlite")
	}
	switch c.Tickets.Backend {
	case "memory", "sqlite":
	default:
		add("tickets.backend must be memory or sqlite")
	}
	switch c.Logging.Backend {
	case "slog", "zap":
	default:
		add("logging.backend must be slog or zap")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}
