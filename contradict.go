package contradict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soundprediction/contradict/pkg/candidates"
	"github.com/soundprediction/contradict/pkg/embedder"
	"github.com/soundprediction/contradict/pkg/heuristic"
	"github.com/soundprediction/contradict/pkg/modelcache"
	"github.com/soundprediction/contradict/pkg/nli"
	"github.com/soundprediction/contradict/pkg/ranking"
	"github.com/soundprediction/contradict/pkg/scoring"
	"github.com/soundprediction/contradict/pkg/segment"
	"github.com/soundprediction/contradict/pkg/types"
	"github.com/soundprediction/contradict/pkg/utils"
)

// Analyzer is the engine surface consumed by the CLI and the HTTP boundary.
type Analyzer interface {
	// Analyze segments text and reports the contradictions between its sentences.
	// Expected failures are reported in the result, never as a Go error.
	Analyze(ctx context.Context, text string, opts *types.Options) *types.AnalysisResult

	// AnalyzeSentences analyses pre-segmented sentences.
	AnalyzeSentences(ctx context.Context, sentences []string, opts *types.Options) *types.AnalysisResult

	// ClearCache releases every cached model. It waits for in-flight analyses.
	ClearCache(ctx context.Context) error

	// CacheStats reports the model caches.
	CacheStats() modelcache.ManagerStats

	// Close releases all resources.
	Close(ctx context.Context) error
}

// EncoderFactory builds a sentence encoder by model name.
type EncoderFactory func(ctx context.Context, name string) (embedder.Client, error)

// Config holds configuration for the contradiction engine.
type Config struct {
	// Defaults apply to every call; per-call Options override them. The zero value
	// means types.DefaultSettings().
	Defaults types.Settings

	// BaseModelPath is the base NLI checkpoint (directory for onnx, model id for http).
	BaseModelPath string
	// FinetunedModelPath is used in finetuned mode when it exists.
	FinetunedModelPath string

	// Classifiers loads NLI models. Nil uses an ONNX loader on Device.
	Classifiers *nli.Loader
	// Encoders builds sentence encoders. Nil uses go-embedeverything without a cache.
	Encoders EncoderFactory

	// Device is where models run ("cpu", "cuda:N").
	Device string
	// HighWaterMark is the accelerator utilisation above which a model switch unloads first.
	HighWaterMark float64
	// Monitor overrides the device-derived memory monitor.
	Monitor modelcache.MemoryMonitor

	// Segmenter splits raw text. Nil uses segment.Default().
	Segmenter segment.Segmenter

	Logger *slog.Logger
}

// Client is the main implementation of the Analyzer interface.
type Client struct {
	defaults      types.Settings
	basePath      string
	finetunedPath string
	remote        bool
	device        string

	models    *modelcache.Manager
	selector  *candidates.Selector
	segmenter segment.Segmenter
	logger    *slog.Logger
	now       func() time.Time
}

var _ Analyzer = (*Client)(nil)

// NewClient creates a contradiction engine. Models are loaded lazily on first use.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defaults := config.Defaults
	if defaults == (types.Settings{}) {
		defaults = types.DefaultSettings()
	}
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	loader := config.Classifiers
	if loader == nil {
		loader = nli.NewLoader(nli.LoaderConfig{Device: config.Device, Logger: logger})
	}
	device := loader.Device()
	if device == "" {
		device = types.CPU.String()
	}

	encoders := config.Encoders
	if encoders == nil {
		encoders = EmbedderFactory(embedder.ProviderEmbedEverything, 0, nil)
	}

	models, err := modelcache.NewManager(modelcache.ManagerConfig{
		Device:        device,
		HighWaterMark: config.HighWaterMark,
		Monitor:       config.Monitor,
		Logger:        logger,
	},
		func(ctx context.Context, key modelcache.ClassifierKey) (nli.Classifier, error) {
			return loader.Load(ctx, key.Path)
		},
		func(ctx context.Context, name string) (embedder.Client, error) {
			return encoders(ctx, name)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create model cache: %w", err)
	}

	segmenter := config.Segmenter
	if segmenter == nil {
		segmenter = segment.Default()
	}

	return &Client{
		defaults:      defaults,
		basePath:      config.BaseModelPath,
		finetunedPath: config.FinetunedModelPath,
		remote:        loader.Backend() == nli.BackendHTTP,
		device:        device,
		models:        models,
		selector:      candidates.NewSelector(logger),
		segmenter:     segmenter,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// EmbedderFactory returns an EncoderFactory for provider. A non-nil cache wraps each
// encoder in a badger cache stored under a per-model subdirectory of cache.Dir.
func EmbedderFactory(provider embedder.Provider, batchSize int, cache *embedder.CacheConfig) EncoderFactory {
	return func(_ context.Context, name string) (embedder.Client, error) {
		cc := embedder.ClientConfig{
			Provider: provider,
			Config:   embedder.Config{Model: name, BatchSize: batchSize},
		}
		if cache != nil {
			c := *cache
			if !c.InMemory && c.Dir != "" {
				c.Dir = filepath.Join(c.Dir, modelDirName(name))
			}
			cc.Cache = &c
		}
		return embedder.NewClient(cc)
	}
}

func modelDirName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(name)
}

// Analyze implements Analyzer.
func (c *Client) Analyze(ctx context.Context, text string, opts *types.Options) *types.AnalysisResult {
	return c.AnalyzeSentences(ctx, c.segmenter.Split(text), opts)
}

// AnalyzeSentences implements Analyzer.
func (c *Client) AnalyzeSentences(ctx context.Context, sentences []string, opts *types.Options) *types.AnalysisResult {
	start := c.now()
	settings := opts.Resolve(c.defaults)

	requestID, _ := ctx.Value(types.ContextKeyRequestID).(string)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = context.WithValue(ctx, types.ContextKeyRequestID, requestID)
	}

	result := types.NewAnalysisResult(string(settings.Mode), settings.Threshold, start)
	result.Metadata.RequestID = requestID
	if sentences != nil {
		result.Sentences = sentences
	}
	result.TotalSentences = len(result.Sentences)
	defer func() {
		result.Metadata.DurationMS = time.Since(start).Milliseconds()
	}()

	log := c.logger.With("request_id", requestID)

	if err := settings.Validate(); err != nil {
		c.fail(ctx, log, result, err)
		return result
	}

	modelPath, mode := c.resolveModel(settings.Mode)
	result.Mode = mode
	result.ModelPath = modelPath

	if len(sentences) < 2 {
		result.Success = true
		result.SetNote(types.NewInputError().Error())
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, settings.Timeout)
	defer cancel()

	contradictions, pairs, err := c.run(ctx, log, sentences, settings, modelPath)
	result.Metadata.CandidatePairs = pairs
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("analysis timed out after %s: %w", settings.Timeout, err)
		}
		c.fail(ctx, log, result, err)
		return result
	}

	result.Success = true
	result.Contradictions = contradictions
	result.TotalContradictions = len(contradictions)
	log.Debug("analysis complete",
		"sentences", len(sentences),
		"candidate_pairs", pairs,
		"contradictions", len(contradictions),
		"mode", result.Mode)
	return result
}

// run executes encode, select, score and rank. Panics are reported as errors.
func (c *Client) run(ctx context.Context, log *slog.Logger, sentences []string, s types.Settings, modelPath string) (out []types.Contradiction, pairCount int, err error) {
	defer utils.RecoverStage(&err, log, "analysis")

	var enc embedder.Client
	if s.UseEmbeddingsFilter {
		lease, err := c.models.Encoders.Acquire(ctx, s.EmbeddingModelName)
		if err != nil {
			return nil, 0, asEncodingError(s.EmbeddingModelName, err)
		}
		defer lease.Release()
		enc = lease.Value()
	}

	started := time.Now()
	pairs, err := c.selector.Select(ctx, sentences, candidates.Config{
		TopK:                s.TopK,
		SimMin:              s.SimMin,
		SimMax:              s.SimMax,
		UseEmbeddingsFilter: s.UseEmbeddingsFilter,
	}, enc)
	if err != nil {
		return nil, 0, asEncodingError(s.EmbeddingModelName, err)
	}
	log.Debug("candidate selection finished", "pairs", len(pairs), "duration", time.Since(started))
	if len(pairs) == 0 {
		return []types.Contradiction{}, 0, nil
	}

	lease, err := c.models.Classifiers.Acquire(ctx, modelcache.ClassifierKey{Path: modelPath, Device: c.device})
	if err != nil {
		return nil, len(pairs), asScoringError(modelPath, err)
	}
	defer lease.Release()

	scored, _, err := scoring.NewOrchestrator(heuristic.New(s.Boost), log).Score(ctx, lease.Value(), sentences, pairs, scoring.Config{
		BatchSize: s.BatchSize,
		MaxLength: s.MaxLength,
		Threshold: s.Threshold,
	})
	if err != nil {
		return nil, len(pairs), asScoringError(modelPath, err)
	}

	return ranking.Rank(scored, sentences), len(pairs), nil
}

// resolveModel picks the checkpoint for mode. A finetuned checkpoint missing from disk
// falls back to base; remote backends are trusted to hold both.
func (c *Client) resolveModel(mode types.Mode) (string, string) {
	if mode != types.ModeFinetuned {
		return c.basePath, string(mode)
	}
	if c.finetunedPath != "" && (c.remote || exists(c.finetunedPath)) {
		return c.finetunedPath, string(types.ModeFinetuned)
	}
	c.logger.Warn("finetuned model not found, using base model",
		"finetuned_path", c.finetunedPath,
		"base_path", c.basePath)
	return c.basePath, types.ModeBase.Fallback()
}

func (c *Client) fail(ctx context.Context, log *slog.Logger, result *types.AnalysisResult, err error) {
	result.Fail(err)
	log.ErrorContext(ctx, "contradiction analysis failed",
		"error", err,
		"mode", result.Mode,
		"model_path", result.ModelPath)
}

// ClearCache implements Analyzer.
func (c *Client) ClearCache(ctx context.Context) error {
	c.logger.Info("evicting cached models")
	return c.models.Clear(ctx)
}

// CacheStats implements Analyzer.
func (c *Client) CacheStats() modelcache.ManagerStats {
	return c.models.Stats()
}

// Close implements Analyzer.
func (c *Client) Close(ctx context.Context) error {
	return c.models.Close(ctx)
}

func asEncodingError(model string, err error) error {
	var target *types.EncodingError
	if errors.As(err, &target) || isContextErr(err) {
		return err
	}
	return types.NewEncodingError(model, err)
}

func asScoringError(model string, err error) error {
	var target *types.ScoringError
	if errors.As(err, &target) || isContextErr(err) {
		return err
	}
	return types.NewScoringError(model, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
