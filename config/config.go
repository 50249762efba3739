// Package config provides configuration loading, environment overlay and
// validation for ragdesk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config holds all configuration for the application.
type Config struct {
	Provider     string             `yaml:"provider"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	Azure        AzureConfig        `yaml:"azure"`
	Anthropic    AnthropicConfig    `yaml:"anthropic"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Knowledge    KnowledgeConfig    `yaml:"knowledge"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Conversation ConversationConfig `yaml:"conversation"`
	Actions      map[string]bool    `yaml:"actions"`
	Timeouts     TimeoutConfig      `yaml:"timeouts"`
	Tickets      TicketConfig       `yaml:"tickets"`
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// OpenAIConfig holds OpenAI (or compatible) chat settings.
type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int64    `yaml:"max_tokens"`
}

// SamplingTemperature returns the configured temperature. Zero is a valid
// setting, so an unset value is nil.
func (o OpenAIConfig) SamplingTemperature() float64 {
	if o.Temperature == nil {
		return DefaultTemperature
	}
	return *o.Temperature
}

// AzureConfig holds Azure OpenAI settings.
type AzureConfig struct {
	APIKey              string `yaml:"api_key"`
	Endpoint            string `yaml:"endpoint"`
	APIVersion          string `yaml:"api_version"`
	Deployment          string `yaml:"deployment"`
	EmbeddingDeployment string `yaml:"embedding_deployment"`
}

// AnthropicConfig holds Anthropic settings.
type AnthropicConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int64    `yaml:"max_tokens"`
}

// SamplingTemperature returns the configured temperature.
func (a AnthropicConfig) SamplingTemperature() float64 {
	if a.Temperature == nil {
		return DefaultTemperature
	}
	return *a.Temperature
}

// EmbeddingConfig selects the embedder. Anthropic has no embeddings API, so
// that provider embeds through an OpenAI-compatible endpoint.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	BatchSize  int    `yaml:"batch_size"`
	CacheSize  int    `yaml:"cache_size"`
}

// KnowledgeConfig locates the corpus and the persisted index.
type KnowledgeConfig struct {
	CorpusPath   string `yaml:"corpus_path"`
	IndexBackend string `yaml:"index_backend"` // file | sqlite
	IndexPath    string `yaml:"index_path"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	Concurrency  int    `yaml:"concurrency"`
	Watch        bool   `yaml:"watch"`
}

// RetrievalConfig tunes ranking and filtering. Threshold is a pointer because
// zero is a meaningful value.
type RetrievalConfig struct {
	Threshold           *float64 `yaml:"threshold"`
	TopK                int      `yaml:"top_k"`
	CandidateMultiplier int      `yaml:"candidate_multiplier"`
}

// SimilarityThreshold returns the configured threshold.
func (r RetrievalConfig) SimilarityThreshold() float64 {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// ConversationConfig bounds the history sent to the model.
type ConversationConfig struct {
	// HistoryWindow counts turns; 0 sends the whole history.
	HistoryWindow *int `yaml:"history_window"`
}

// Window returns the configured history window.
func (c ConversationConfig) Window() int {
	if c.HistoryWindow == nil {
		return DefaultHistoryWindow
	}
	return *c.HistoryWindow
}

// TimeoutConfig bounds external calls.
type TimeoutConfig struct {
	Embedding  time.Duration `yaml:"embedding"`
	Generation time.Duration `yaml:"generation"`
	Retries    *int          `yaml:"retries"`
}

// RetryCount returns how often a timed-out call is retried.
func (t TimeoutConfig) RetryCount() int {
	if t.Retries == nil {
		return 1
	}
	return *t.Retries
}

// TicketConfig selects the ticket backend.
type TicketConfig struct {
	Backend string `yaml:"backend"` // memory | sqlite
	Path    string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggingConfig selects the log backend.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`  // text | json
	Backend string `yaml:"backend"` // slog | zap
}

// ConfigurationError reports unusable configuration. It is the only fatal
// error class and surfaces at construction time.
type ConfigurationError struct {
	Problems []string
}

// NewConfigurationError builds an error with a single problem.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.Join(e.Problems, "; ")
}

// Load reads the YAML file at path, overlays the environment and applies
// defaults. An empty path or a missing file yields defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			resolvePaths(&cfg, filepath.Dir(path))
		}
	}
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// resolvePaths makes relative paths relative to the config file directory.
func resolvePaths(cfg *Config, dir string) {
	for _, p := range []*string{&cfg.Knowledge.CorpusPath, &cfg.Knowledge.IndexPath, &cfg.Tickets.Path} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}
