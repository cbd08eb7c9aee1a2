package nli

import (
	"context"
	"hash/fnv"
	"sync"
)

// ScoreFunc returns the contradiction probability for a premise/hypothesis pair.
type ScoreFunc func(premise, hypothesis string) float64

// MockClassifier is a deterministic Classifier for tests. Scores come from Score when
// set, otherwise from a hash of the pair. The remaining mass is split between
// entailment and neutral.
type MockClassifier struct {
	mu      sync.Mutex
	Score   ScoreFunc
	Err     error
	caps    Capabilities
	calls   int
	pairs   int
	batches []int
	closed  bool
}

// NewMockClassifier creates a mock classifier named model.
func NewMockClassifier(model string, score ScoreFunc) *MockClassifier {
	return &MockClassifier{
		Score: score,
		caps:  Capabilities{Backend: BackendMock, Model: model, Device: "cpu"},
	}
}

// Classify implements Classifier.
func (m *MockClassifier) Classify(ctx context.Context, pairs []Pair, maxLength int) ([]Distribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.batches = append(m.batches, len(pairs))
	if m.closed {
		return nil, ErrClassifierClosed
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Distribution, len(pairs))
	for i, p := range pairs {
		m.pairs++
		var c float64
		if m.Score != nil {
			c = m.Score(p.Premise, p.Hypothesis)
		} else {
			c = hashScore(p.Premise + "\x00" + p.Hypothesis)
		}
		rest := (1 - c) / 2
		out[i] = Distribution{Entailment: rest, Neutral: rest, Contradiction: c}
	}
	return out, nil
}

// Labels returns the XNLI ordering.
func (m *MockClassifier) Labels() LabelMap {
	return DefaultLabels
}

// Capabilities implements Classifier.
func (m *MockClassifier) Capabilities() Capabilities {
	return m.caps
}

// Close marks the classifier closed.
func (m *MockClassifier) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Calls returns the number of Classify invocations.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// PairsScored returns the total number of pairs classified.
func (m *MockClassifier) PairsScored() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pairs
}

// BatchSizes returns the size of every Classify call, in call order.
func (m *MockClassifier) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

// Closed reports whether Close was called.
func (m *MockClassifier) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func hashScore(s string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float64(h.Sum32()%10000) / 10000
}
