package nli

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/soundprediction/contradict/pkg/types"
)

// Pair is one premise/hypothesis input.
type Pair struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

// Probabilities is a softmax distribution over a model's labels, in label-id order.
type Probabilities []float64

// Label is the canonical NLI class.
type Label int

const (
	Entailment Label = iota
	Neutral
	Contradiction
)

func (l Label) String() string {
	switch l {
	case Entailment:
		return "entailment"
	case Neutral:
		return "neutral"
	case Contradiction:
		return "contradiction"
	}
	return "unknown"
}

// Distribution is a probability distribution in canonical label order. Classes the
// model does not predict carry zero mass.
type Distribution [3]float64

// Prob returns the mass on l.
func (d Distribution) Prob(l Label) float64 {
	return d[l]
}

// Backend names a classifier implementation.
type Backend string

const (
	BackendONNX Backend = "onnx"
	BackendHTTP Backend = "http"
	BackendMock Backend = "mock"
)

// Capabilities are resolved once per loaded model.
type Capabilities struct {
	Backend        Backend `json:"backend"`
	Model          string  `json:"model"`
	Device         string  `json:"device"`
	MixedPrecision bool    `json:"mixed_precision"`
}

// Classifier scores premise/hypothesis pairs.
type Classifier interface {
	// Classify returns one canonical distribution per pair, in order. Inputs longer
	// than maxLength tokens are truncated.
	Classify(ctx context.Context, pairs []Pair, maxLength int) ([]Distribution, error)
	// Labels returns the model label vocabulary resolved at load time.
	Labels() LabelMap
	// Capabilities returns the load-time capability flags.
	Capabilities() Capabilities
	// Close releases the model.
	Close() error
}

// DefaultMixedPrecisionBlocklist lists model families that produce unstable scores in fp16.
var DefaultMixedPrecisionBlocklist = []string{"mdeberta"}

// SupportsMixedPrecision reports whether reduced precision may be used for model on
// device. It is false on CPU and for any model whose name matches a blocklist entry.
func SupportsMixedPrecision(model string, device types.Device, blocklist []string) bool {
	if !device.IsAccelerator() {
		return false
	}
	lower := strings.ToLower(model)
	for _, b := range blocklist {
		if b != "" && strings.Contains(lower, strings.ToLower(b)) {
			return false
		}
	}
	return true
}

// ContradictionScores classifies pairs and returns the contradiction probability of each.
func ContradictionScores(ctx context.Context, c Classifier, pairs []Pair, maxLength int) ([]float64, error) {
	if len(pairs) == 0 {
		return []float64{}, nil
	}
	dists, err := c.Classify(ctx, pairs, maxLength)
	if err != nil {
		return nil, err
	}
	if len(dists) != len(pairs) {
		return nil, fmt.Errorf("%w: %d distributions for %d pairs", ErrShapeMismatch, len(dists), len(pairs))
	}
	out := make([]float64, len(dists))
	for i, d := range dists {
		p := d.Prob(Contradiction)
		if math.IsNaN(p) {
			p = 0
		}
		out[i] = p
	}
	return out, nil
}

// Softmax converts logits to probabilities.
func Softmax(logits []float32) Probabilities {
	out := make(Probabilities, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxLogit := float64(logits[0])
	for _, l := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	var sum float64
	for i, l := range logits {
		out[i] = math.Exp(float64(l) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
