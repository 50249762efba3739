package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"RAGDESK_PROVIDER", "OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
		"OPENAI_EMBEDDING_API_KEY", "OPENAI_EMBEDDING_BASE_URL", "OPENAI_EMBEDDING_MODEL",
		"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT_NAME",
		"AZURE_OPENAI_EMBEDDING_DEPLOYMENT", "AZURE_OPENAI_API_VERSION", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultThreshold, cfg.Retrieval.SimilarityThreshold())
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 2, cfg.Retrieval.CandidateMultiplier)
	assert.Equal(t, 6, cfg.Conversation.Window())
	assert.InDelta(t, 0.7, cfg.OpenAI.SamplingTemperature(), 1e-9)
	assert.Equal(t, 15*time.Second, cfg.Timeouts.Embedding)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Generation)
	assert.Equal(t, 1, cfg.Timeouts.RetryCount())
	assert.Equal(t, 500, cfg.Knowledge.ChunkSize)
	assert.Equal(t, 50, cfg.Knowledge.ChunkOverlap)
	assert.Equal(t, "memory", cfg.Tickets.Backend)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "ragdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: mock
retrieval:
  threshold: 0
  top_k: 5
knowledge:
  corpus_path: kb.json
timeouts:
  generation: 2s
  retries: 0
conversation:
  history_window: 0
openai:
  temperature: 0
anthropic:
  temperature: 0
actions:
  schedule_maintenance: true
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderMock, cfg.Provider)
	assert.Equal(t, ProviderMock, cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
	assert.Equal(t, 0.0, cfg.Retrieval.SimilarityThreshold())
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, filepath.Join(dir, "kb.json"), cfg.Knowledge.CorpusPath)
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Generation)
	assert.Equal(t, 0, cfg.Timeouts.RetryCount())
	assert.Equal(t, 0, cfg.Conversation.Window(), "zero keeps the whole history")
	assert.Equal(t, 0.0, cfg.OpenAI.SamplingTemperature())
	assert.Equal(t, 0.0, cfg.Anthropic.SamplingTemperature())
	assert.True(t, cfg.Actions["schedule_maintenance"])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-chat")
	t.Setenv("OPENAI_MODEL", "gpt-4o")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-chat", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	// Embedding key falls back to the chat key.
	assert.Equal(t, "sk-chat", cfg.Embedding.APIKey)
	assert.NoError(t, cfg.Validate())

	t.Setenv("OPENAI_EMBEDDING_API_KEY", "sk-embed")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-embed", cfg.Embedding.APIKey)
}

func TestValidate_MissingCredentials(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Problems, 2)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidate_Azure(t *testing.T) {
	clearEnv(t)
	t.Setenv("RAGDESK_PROVIDER", "azure")
	t.Setenv("AZURE_OPENAI_API_KEY", "key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://example.openai.azure.com")
	t.Setenv("AZURE_OPENAI_DEPLOYMENT_NAME", "gpt-4o")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ProviderAzure, cfg.Embedding.Provider)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding_deployment")

	cfg.Azure.EmbeddingDeployment = "embed"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Ranges(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Provider = ProviderMock
	cfg.Embedding.Provider = ProviderMock

	bad := 1.5
	cfg.Retrieval.Threshold = &bad
	cfg.Retrieval.TopK = 0
	cfg.Tickets.Backend = "postgres"

	var cerr *ConfigurationError
	require.ErrorAs(t, cfg.Validate(), &cerr)
	assert.Len(t, cerr.Problems, 3)

	t.Run("retries bounded to one", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Provider = ProviderMock
		cfg.Embedding.Provider = ProviderMock

		five := 5
		cfg.Timeouts.Retries = &five
		var cerr *ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &cerr)
		require.Len(t, cerr.Problems, 1)
		assert.Contains(t, cerr.Problems[0], "timeouts.retries")

		one := MaxRetries
		cfg.Timeouts.Retries = &one
		assert.NoError(t, cfg.Validate())
	})

	t.Run("temperature range", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Provider = ProviderMock
		cfg.Embedding.Provider = ProviderMock

		hot := 3.0
		cfg.OpenAI.Temperature = &hot
		var cerr *ConfigurationError
		require.ErrorAs(t, cfg.Validate(), &cerr)
		assert.Contains(t, cerr.Error(), "openai.temperature")
	})
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "cfg.yaml")
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Provider = ProviderAnthropic
	cfg.Anthropic.APIKey = "ak"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, loaded.Provider)
	assert.Equal(t, "ak", loaded.Anthropic.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ANTHROPIC_API_KEY=from-dotenv\n"), 0o600))
	require.NoError(t, os.Unsetenv("ANTHROPIC_API_KEY"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("ANTHROPIC_API_KEY"))
}

func TestLoad_SampleConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(filepath.Join("..", "ragdesk.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.InDelta(t, 0.7, cfg.Retrieval.SimilarityThreshold(), 1e-9)
	assert.Equal(t, 1, cfg.Timeouts.RetryCount())
	assert.False(t, cfg.Actions["schedule_maintenance"])
	assert.FileExists(t, cfg.Knowledge.CorpusPath)
}
