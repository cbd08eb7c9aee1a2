package nli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/soundprediction/contradict/pkg/types"
)

// LoaderConfig selects and configures the classifier backend.
type LoaderConfig struct {
	Backend                 Backend
	Device                  string
	ORTLibrary              string
	IntraOpThreads          int
	Endpoint                string
	APIKey                  string
	RequestTimeout          time.Duration
	MixedPrecisionBlocklist []string
	CircuitBreaker          CircuitBreakerConfig
	// Mock scores pairs when Backend is BackendMock.
	Mock   ScoreFunc
	Logger *slog.Logger
}

// Loader builds classifiers for model paths.
type Loader struct {
	cfg LoaderConfig
}

// NewLoader creates a Loader. An empty backend means ONNX.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.Backend == "" {
		cfg.Backend = BackendONNX
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{cfg: cfg}
}

// Backend reports the configured backend.
func (l *Loader) Backend() Backend {
	return l.cfg.Backend
}

// Device reports the configured device.
func (l *Loader) Device() string {
	return l.cfg.Device
}

// Load builds a classifier for path. Failures are reported as *types.ScoringError.
func (l *Loader) Load(ctx context.Context, path string) (Classifier, error) {
	clf, err := l.load(ctx, path)
	if err != nil {
		return nil, types.NewScoringError(path, err)
	}
	return clf, nil
}

func (l *Loader) load(ctx context.Context, path string) (Classifier, error) {
	switch l.cfg.Backend {
	case BackendONNX:
		return NewONNXClassifier(ONNXConfig{
			Dir:                     path,
			Device:                  l.cfg.Device,
			Library:                 l.cfg.ORTLibrary,
			MixedPrecisionBlocklist: l.cfg.MixedPrecisionBlocklist,
			IntraOpThreads:          l.cfg.IntraOpThreads,
			Logger:                  l.cfg.Logger,
		})

	case BackendHTTP:
		clf, err := NewHTTPClassifier(ctx, HTTPConfig{
			Endpoint:                l.cfg.Endpoint,
			APIKey:                  l.cfg.APIKey,
			Model:                   path,
			Device:                  l.cfg.Device,
			Timeout:                 l.cfg.RequestTimeout,
			MixedPrecisionBlocklist: l.cfg.MixedPrecisionBlocklist,
		})
		if err != nil {
			return nil, err
		}
		if !l.cfg.CircuitBreaker.Enabled {
			return clf, nil
		}
		return NewCircuitBreakerClassifier(clf, l.cfg.CircuitBreaker, "nli:"+path, l.cfg.Logger), nil

	case BackendMock:
		return NewMockClassifier(path, l.cfg.Mock), nil

	default:
		return nil, fmt.Errorf("unsupported NLI backend: %s", l.cfg.Backend)
	}
}
