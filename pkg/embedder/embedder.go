package embedder

import (
	"context"
	"fmt"
)

// Client produces one embedding vector per input text.
type Client interface {
	// Embed returns embeddings in the same order as texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle embeds a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector size, or 0 when unknown until first use.
	Dimensions() int
	// Close releases the encoder.
	Close() error
}

// Config holds settings shared by embedding providers.
type Config struct {
	Model      string `json:"model" mapstructure:"model"`
	Dimensions int    `json:"dimensions" mapstructure:"dimensions"`
	BatchSize  int    `json:"batch_size" mapstructure:"batch_size"`
}

// Provider represents the type of embedding provider
type Provider string

const (
	// ProviderEmbedEverything uses go-embedeverything for local encoding
	ProviderEmbedEverything Provider = "embedeverything"

	// ProviderMock uses deterministic hash-based vectors for testing
	ProviderMock Provider = "mock"
)

// ClientConfig holds configuration for creating embedding clients
type ClientConfig struct {
	Provider Provider     `json:"provider"`
	Config   Config       `json:"config"`
	Cache    *CacheConfig `json:"cache,omitempty"`
}

// NewClient creates a new embedding client based on the provider type.
// When Cache is set the client is wrapped in a CachedClient.
func NewClient(clientConfig ClientConfig) (Client, error) {
	cfg := clientConfig.Config
	defaults := DefaultConfig(clientConfig.Provider)
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaults.Dimensions
	}

	var (
		client Client
		err    error
	)
	switch clientConfig.Provider {
	case ProviderEmbedEverything:
		client, err = NewEmbedEverythingClient(&EmbedEverythingConfig{Config: &cfg})
	case ProviderMock:
		client = NewMockClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", clientConfig.Provider)
	}
	if err != nil {
		return nil, err
	}

	if clientConfig.Cache == nil {
		return client, nil
	}
	cached, err := NewCachedClient(client, cfg.Model, *clientConfig.Cache)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return cached, nil
}

// DefaultConfig returns a default configuration for the given provider
func DefaultConfig(provider Provider) Config {
	switch provider {
	case ProviderEmbedEverything:
		return Config{
			Model:      "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2",
			Dimensions: 384,
			BatchSize:  64,
		}
	case ProviderMock:
		return Config{
			Model:      "mock",
			Dimensions: 32,
			BatchSize:  64,
		}
	default:
		return Config{BatchSize: 64}
	}
}
