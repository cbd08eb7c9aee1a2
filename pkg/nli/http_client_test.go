package nli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInferenceServer(t *testing.T, failures *atomic.Bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/models/info", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id2label": map[string]string{"0": "contradiction", "1": "neutral", "2": "entailment"},
		})
	})
	mux.HandleFunc("/classify", func(w http.ResponseWriter, r *http.Request) {
		if failures != nil && failures.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"detail":"model warming up"}`))
			return
		}
		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		probs := make([][]float64, len(req.Pairs))
		for i := range req.Pairs {
			probs[i] = []float64{0.8, 0.15, 0.05}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"probabilities": probs})
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClassifier(t *testing.T) {
	ctx := context.Background()
	srv := newInferenceServer(t, nil)

	clf, err := NewHTTPClassifier(ctx, HTTPConfig{
		Endpoint: srv.URL + "/",
		APIKey:   "secret",
		Model:    "mdeberta-xnli",
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = clf.Close() })

	assert.Equal(t, 0, clf.Labels().Contradiction)
	assert.Equal(t, BackendHTTP, clf.Capabilities().Backend)
	require.NoError(t, clf.Health(ctx))

	scores, err := ContradictionScores(ctx, clf, []Pair{{"a", "b"}, {"c", "d"}}, 128)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 0.8}, scores)
}

func TestHTTPClassifierErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewHTTPClassifier(ctx, HTTPConfig{})
	assert.Error(t, err)

	failing := &atomic.Bool{}
	failing.Store(true)
	srv := newInferenceServer(t, failing)
	clf, err := NewHTTPClassifier(ctx, HTTPConfig{Endpoint: srv.URL, APIKey: "secret", Model: "m"})
	require.NoError(t, err)

	_, err = clf.Classify(ctx, []Pair{{"a", "b"}}, 128)
	require.Error(t, err)
	assert.ErrorIs(t, err, &InferenceError{})
	assert.Contains(t, err.Error(), "model warming up")
}

func TestCircuitBreakerOpens(t *testing.T) {
	ctx := context.Background()
	failing := &atomic.Bool{}
	failing.Store(true)
	srv := newInferenceServer(t, failing)

	inner, err := NewHTTPClassifier(ctx, HTTPConfig{Endpoint: srv.URL, APIKey: "secret", Model: "m"})
	require.NoError(t, err)
	clf := NewCircuitBreakerClassifier(inner, DefaultCircuitBreakerConfig(), "test", nil)

	for i := 0; i < 3; i++ {
		_, err := clf.Classify(ctx, []Pair{{"a", "b"}}, 128)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, clf.State())

	failing.Store(false)
	_, err = clf.Classify(ctx, []Pair{{"a", "b"}}, 128)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState, "open breaker must fail fast")
	assert.Equal(t, 0, clf.Labels().Contradiction)
}
