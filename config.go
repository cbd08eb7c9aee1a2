package contradict

import (
	"log/slog"

	"github.com/soundprediction/contradict/pkg/config"
	"github.com/soundprediction/contradict/pkg/embedder"
	"github.com/soundprediction/contradict/pkg/nli"
)

// NewFromConfig builds a Client from application configuration.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loader := nli.NewLoader(nli.LoaderConfig{
		Backend:                 nli.Backend(cfg.Models.Backend),
		Device:                  cfg.Models.Device,
		ORTLibrary:              cfg.Models.ORTLibrary,
		IntraOpThreads:          cfg.Models.IntraOpThreads,
		Endpoint:                cfg.Models.Endpoint,
		APIKey:                  cfg.Models.APIKey,
		RequestTimeout:          cfg.Models.RequestTimeout,
		MixedPrecisionBlocklist: cfg.Models.MixedPrecisionBlocklist,
		CircuitBreaker:          nli.CircuitBreakerConfig(cfg.CircuitBreaker),
		Logger:                  logger,
	})

	var cache *embedder.CacheConfig
	if cfg.Cache.EmbeddingEnabled && (cfg.Cache.EmbeddingInMemory || cfg.Cache.EmbeddingDir != "") {
		cache = &embedder.CacheConfig{
			Dir:      cfg.Cache.EmbeddingDir,
			InMemory: cfg.Cache.EmbeddingInMemory,
			Logger:   logger,
		}
	}

	return NewClient(&Config{
		Defaults:           cfg.Settings(),
		BaseModelPath:      cfg.Models.BasePath,
		FinetunedModelPath: cfg.Models.FinetunedPath,
		Classifiers:        loader,
		Encoders:           EmbedderFactory(embedder.Provider(cfg.Embedding.Provider), cfg.Embedding.BatchSize, cache),
		Device:             cfg.Models.Device,
		HighWaterMark:      cfg.Cache.HighWaterMark,
		Logger:             logger,
	})
}
