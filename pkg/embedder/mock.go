package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockClient returns deterministic vectors for testing. Texts listed in Vectors get
// the given vector; anything else gets a hash-derived one.
type MockClient struct {
	mu      sync.Mutex
	config  Config
	Vectors map[string][]float32
	Err     error
	Calls   int
	closed  bool
}

// NewMockClient creates a mock client producing vectors of config.Dimensions.
func NewMockClient(config Config) *MockClient {
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultConfig(ProviderMock).Dimensions
	}
	return &MockClient{config: config, Vectors: map[string][]float32{}}
}

// Embed returns one vector per text.
func (m *MockClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++

	if m.closed {
		return nil, fmt.Errorf("mock embedder is closed")
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.Vectors[t]; ok {
			out[i] = append([]float32(nil), v...)
			continue
		}
		out[i] = hashVector(t, m.config.Dimensions)
	}
	return out, nil
}

// EmbedSingle generates an embedding for a single text.
func (m *MockClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions returns the configured vector size.
func (m *MockClient) Dimensions() int {
	return m.config.Dimensions
}

// Close marks the client closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CallCount returns the number of Embed calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

func hashVector(text string, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		h := fnv.New32a()
		_, _ = fmt.Fprintf(h, "%d|%s", i, text)
		v[i] = float32(h.Sum32()%2000)/1000 - 1
	}
	return v
}
