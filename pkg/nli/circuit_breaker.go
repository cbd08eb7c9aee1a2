package nli

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// CircuitBreakerConfig controls when a remote classifier is considered down.
type CircuitBreakerConfig struct {
	Enabled          bool    `json:"enabled" mapstructure:"enabled"`
	MaxRequests      uint32  `json:"max_requests" mapstructure:"max_requests"`
	Interval         int     `json:"interval" mapstructure:"interval"`
	Timeout          int     `json:"timeout" mapstructure:"timeout"`
	ReadyToTripRatio float64 `json:"ready_to_trip_ratio" mapstructure:"ready_to_trip_ratio"`
}

// DefaultCircuitBreakerConfig returns settings that open after a majority of at least
// three requests fail, and probe again after 30 seconds.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         60,
		Timeout:          30,
		ReadyToTripRatio: 0.6,
	}
}

// CircuitBreakerClassifier wraps a Classifier with circuit breaking logic.
// While open, Classify fails immediately with gobreaker.ErrOpenState.
type CircuitBreakerClassifier struct {
	classifier Classifier
	cb         *gobreaker.CircuitBreaker
	name       string
}

// NewCircuitBreakerClassifier creates a new circuit breaker classifier
func NewCircuitBreakerClassifier(classifier Classifier, cfg CircuitBreakerConfig, name string, logger *slog.Logger) *CircuitBreakerClassifier {
	if logger == nil {
		logger = slog.Default()
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    time.Duration(cfg.Interval) * time.Second,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			level := slog.LevelInfo
			if to == gobreaker.StateOpen {
				level = slog.LevelError
			}
			logger.Log(context.Background(), level, "NLI circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &CircuitBreakerClassifier{
		classifier: classifier,
		cb:         gobreaker.NewCircuitBreaker(st),
		name:       name,
	}
}

// Classify implements Classifier
func (c *CircuitBreakerClassifier) Classify(ctx context.Context, pairs []Pair, maxLength int) ([]Distribution, error) {
	resp, err := c.cb.Execute(func() (interface{}, error) {
		return c.classifier.Classify(ctx, pairs, maxLength)
	})
	if err != nil {
		return nil, err
	}
	return resp.([]Distribution), nil
}

// State reports the breaker state.
func (c *CircuitBreakerClassifier) State() gobreaker.State {
	return c.cb.State()
}

// Labels implements Classifier
func (c *CircuitBreakerClassifier) Labels() LabelMap {
	return c.classifier.Labels()
}

// Capabilities implements Classifier
func (c *CircuitBreakerClassifier) Capabilities() Capabilities {
	return c.classifier.Capabilities()
}

// Close implements Classifier
func (c *CircuitBreakerClassifier) Close() error {
	return c.classifier.Close()
}
