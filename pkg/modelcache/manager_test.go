package modelcache

import (
	"context"
	"testing"

	"github.com/soundprediction/contradict/pkg/embedder"
	"github.com/soundprediction/contradict/pkg/nli"
	"github.com/soundprediction/contradict/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	ctx := context.Background()
	var classifiers []*nli.MockClassifier
	var encoders []*embedder.MockClient

	m, err := NewManager(ManagerConfig{Device: "cpu"},
		func(_ context.Context, key ClassifierKey) (nli.Classifier, error) {
			c := nli.NewMockClassifier(key.Path, nil)
			classifiers = append(classifiers, c)
			return c, nil
		},
		func(_ context.Context, name string) (embedder.Client, error) {
			e := embedder.NewMockClient(embedder.Config{Model: name})
			encoders = append(encoders, e)
			return e, nil
		})
	require.NoError(t, err)

	cl, err := m.Classifiers.Acquire(ctx, ClassifierKey{Path: "base", Device: "cpu"})
	require.NoError(t, err)
	cl.Release()
	el, err := m.Encoders.Acquire(ctx, "minilm")
	require.NoError(t, err)
	el.Release()

	stats := m.Stats()
	require.NotNil(t, stats.ClassifierKey)
	assert.Equal(t, "base", stats.ClassifierKey.Path)
	assert.Equal(t, "minilm", stats.EncoderName)
	assert.True(t, stats.Classifier.Loaded)

	require.NoError(t, m.Close(ctx))
	assert.True(t, classifiers[0].Closed())
	assert.True(t, encoders[0].Closed())
	assert.Nil(t, m.Stats().ClassifierKey)
}

func TestManagerInvalidDevice(t *testing.T) {
	_, err := NewManager(ManagerConfig{Device: "tpu"}, nil, nil)
	assert.Error(t, err)
}

func TestNewMonitor(t *testing.T) {
	assert.IsType(t, NoopMonitor{}, NewMonitor(types.CPU))
	assert.IsType(t, &NVMLMonitor{}, NewMonitor(types.Device{Kind: "cuda", Index: 1}))
}
