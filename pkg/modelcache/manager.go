package modelcache

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/soundprediction/contradict/pkg/embedder"
	"github.com/soundprediction/contradict/pkg/nli"
	"github.com/soundprediction/contradict/pkg/types"
)

// ClassifierKey identifies a loaded NLI model.
type ClassifierKey struct {
	Path   string `json:"path"`
	Device string `json:"device"`
}

// ManagerConfig configures both caches.
type ManagerConfig struct {
	Device        string
	HighWaterMark float64
	// Monitor overrides the device-derived monitor.
	Monitor MemoryMonitor
	Logger  *slog.Logger
}

// Manager owns the classifier cache and the encoder cache of one engine.
type Manager struct {
	Classifiers *Cache[ClassifierKey, nli.Classifier]
	Encoders    *Cache[string, embedder.Client]
	monitor     MemoryMonitor
}

// ClassifierLoader builds a classifier for a key.
type ClassifierLoader func(ctx context.Context, key ClassifierKey) (nli.Classifier, error)

// EncoderLoader builds an encoder by model name.
type EncoderLoader func(ctx context.Context, name string) (embedder.Client, error)

// NewManager creates empty caches using the given loaders.
func NewManager(cfg ManagerConfig, loadClassifier ClassifierLoader, loadEncoder EncoderLoader) (*Manager, error) {
	monitor := cfg.Monitor
	if monitor == nil {
		device, err := types.ParseDevice(cfg.Device)
		if err != nil {
			return nil, err
		}
		monitor = NewMonitor(device)
	}

	return &Manager{
		Classifiers: New[ClassifierKey, nli.Classifier](loadClassifier, Config{
			Name:          "classifier",
			HighWaterMark: cfg.HighWaterMark,
			Monitor:       monitor,
			Logger:        cfg.Logger,
		}),
		Encoders: New[string, embedder.Client](loadEncoder, Config{
			Name:          "encoder",
			HighWaterMark: cfg.HighWaterMark,
			Monitor:       monitor,
			Logger:        cfg.Logger,
		}),
		monitor: monitor,
	}, nil
}

// ManagerStats reports both caches.
type ManagerStats struct {
	Classifier    Stats          `json:"classifier"`
	ClassifierKey *ClassifierKey `json:"classifier_key,omitempty"`
	Encoder       Stats          `json:"encoder"`
	EncoderName   string         `json:"encoder_name,omitempty"`
}

// Stats snapshots both caches.
func (m *Manager) Stats() ManagerStats {
	s := ManagerStats{
		Classifier: m.Classifiers.Stats(),
		Encoder:    m.Encoders.Stats(),
	}
	if key, ok := m.Classifiers.Current(); ok {
		s.ClassifierKey = &key
	}
	if name, ok := m.Encoders.Current(); ok {
		s.EncoderName = name
	}
	return s
}

// Clear releases both cached models.
func (m *Manager) Clear(ctx context.Context) error {
	return errors.Join(m.Classifiers.Clear(ctx), m.Encoders.Clear(ctx))
}

// Close clears both caches and stops the memory monitor.
func (m *Manager) Close(ctx context.Context) error {
	err := m.Clear(ctx)
	if c, ok := m.monitor.(io.Closer); ok {
		err = errors.Join(err, c.Close())
	}
	return err
}
