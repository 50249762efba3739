package ragdesk

import (
	"io"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/hupe1980/ragdesk/config"
	"github.com/hupe1980/ragdesk/embedding"
	embopenai "github.com/hupe1980/ragdesk/embedding/openai"
	"github.com/hupe1980/ragdesk/logging"
	"github.com/hupe1980/ragdesk/model"
	"github.com/hupe1980/ragdesk/model/anthropic"
	"github.com/hupe1980/ragdesk/model/openai"
	"github.com/hupe1980/ragdesk/retrieval"
	retrievalsqlite "github.com/hupe1980/ragdesk/retrieval/sqlite"
	"github.com/hupe1980/ragdesk/ticket"
	ticketsqlite "github.com/hupe1980/ragdesk/ticket/sqlite"
)

// NewLogger builds the configured logger backend.
func NewLogger(cfg config.LoggingConfig) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Level)
	if cfg.Backend == "zap" {
		return logging.NewZapLogger(level == logging.LogLevelDebug)
	}
	return logging.NewSlogLogger(level, cfg.Format, false), nil
}

// NewEmbedder builds the configured embedder.
func NewEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	e := cfg.Embedding
	switch e.Provider {
	case config.ProviderMock:
		return embedding.NewMockEmbedder(e.Dimensions), nil
	case config.ProviderAzure:
		client := openaisdk.NewClient(azureOptions(cfg.Azure)...)
		return embopenai.NewEmbedderFromClient(&client, func(o *embopenai.Options) {
			o.Model = cfg.Azure.EmbeddingDeployment
			o.Dimensions = e.Dimensions
			o.BatchSize = e.BatchSize
		}), nil
	case config.ProviderOpenAI:
		opts := []option.RequestOption{option.WithAPIKey(e.APIKey)}
		if e.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(e.BaseURL))
		}
		client := openaisdk.NewClient(opts...)
		return embopenai.NewEmbedderFromClient(&client, func(o *embopenai.Options) {
			o.Model = e.Model
			o.Dimensions = e.Dimensions
			o.BatchSize = e.BatchSize
		}), nil
	}
	return nil, config.NewConfigurationError("unknown embedding provider %q", e.Provider)
}

// NewModel builds the configured generation model.
func NewModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderMock:
		return model.NewMockModel("mock"), nil
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.Anthropic.APIKey
			o.Model = anthropicsdk.Model(cfg.Anthropic.Model)
			o.Temperature = cfg.Anthropic.SamplingTemperature()
			o.MaxTokens = cfg.Anthropic.MaxTokens
		}), nil
	case config.ProviderAzure:
		client := openaisdk.NewClient(azureOptions(cfg.Azure)...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			o.Model = cfg.Azure.Deployment
			o.Temperature = cfg.OpenAI.SamplingTemperature()
			o.MaxCompletionTokens = cfg.OpenAI.MaxTokens
		}), nil
	case config.ProviderOpenAI:
		opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		client := openaisdk.NewClient(opts...)
		return openai.NewModelFromClient(&client, func(o *openai.Options) {
			o.Model = cfg.OpenAI.Model
			o.Temperature = cfg.OpenAI.SamplingTemperature()
			o.MaxCompletionTokens = cfg.OpenAI.MaxTokens
		}), nil
	}
	return nil, config.NewConfigurationError("unknown provider %q", cfg.Provider)
}

func azureOptions(cfg config.AzureConfig) []option.RequestOption {
	return []option.RequestOption{
		azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion),
		azure.WithAPIKey(cfg.APIKey),
	}
}

func openTicketStore(cfg config.TicketConfig) (ticket.Store, io.Closer, error) {
	if cfg.Backend == "sqlite" {
		s, err := ticketsqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
	return ticket.NewInMemoryStore(), nil, nil
}

func openPersister(cfg config.KnowledgeConfig) (retrieval.Persister, io.Closer, error) {
	if cfg.IndexBackend == "sqlite" {
		p, err := retrievalsqlite.Open(cfg.IndexPath)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	}
	return retrieval.NewFilePersister(cfg.IndexPath), nil, nil
}
