package types

import (
	"math"
	"time"
)

// CandidatePair is an unordered sentence pair selected for scoring. I < J always.
type CandidatePair struct {
	I          int     `json:"i"`
	J          int     `json:"j"`
	Similarity float64 `json:"similarity"`
}

// ScoredPair carries the boosted contradiction probability for both directions of a pair.
// Forward is premise=I, hypothesis=J; Backward is premise=J, hypothesis=I.
type ScoredPair struct {
	I        int     `json:"i"`
	J        int     `json:"j"`
	Forward  float64 `json:"forward_contradiction_prob"`
	Backward float64 `json:"backward_contradiction_prob"`
	Boosted  bool    `json:"boosted"`
}

// Confidence is the stronger of the two directions.
func (p ScoredPair) Confidence() float64 {
	return math.Max(p.Forward, p.Backward)
}

// Oriented returns the pair ordered by the direction that produced the confidence.
// Ties go to the forward direction.
func (p ScoredPair) Oriented() (first, second int) {
	if p.Forward >= p.Backward {
		return p.I, p.J
	}
	return p.J, p.I
}

// Contradiction is a final, ranked contradiction record.
type Contradiction struct {
	ID             int     `json:"id" yaml:"id"`
	Sentence1Index int     `json:"sentence1_index" yaml:"sentence1_index"`
	Sentence2Index int     `json:"sentence2_index" yaml:"sentence2_index"`
	Sentence1      string  `json:"sentence1" yaml:"sentence1"`
	Sentence2      string  `json:"sentence2" yaml:"sentence2"`
	Confidence     float64 `json:"confidence" yaml:"confidence"`
	Boosted        bool    `json:"boosted" yaml:"boosted"`
}

// PairKey returns the unordered index pair identifying the record.
func (c Contradiction) PairKey() PairKey {
	return NewPairKey(c.Sentence1Index, c.Sentence2Index)
}

// PairKey is the (min, max) form of an unordered index pair.
type PairKey struct {
	Lo int
	Hi int
}

// NewPairKey builds the canonical key for a pair in either order.
func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// ConfidencePrecision is the number of decimals kept in reported confidences.
const ConfidencePrecision = 4

// RoundConfidence rounds to ConfidencePrecision decimals and clamps into [0, 1].
func RoundConfidence(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		v = 1
	}
	scale := math.Pow(10, ConfidencePrecision)
	return math.Round(v*scale) / scale
}

// Metadata describes how a result was produced.
type Metadata struct {
	AnalyzedAt     time.Time `json:"analyzed_at" yaml:"analyzed_at"`
	Threshold      float64   `json:"threshold" yaml:"threshold"`
	Error          *string   `json:"error" yaml:"error"`
	RequestID      string    `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	CandidatePairs int       `json:"candidate_pairs" yaml:"candidate_pairs"`
	DurationMS     int64     `json:"duration_ms" yaml:"duration_ms"`
}

// AnalysisResult is the structured result of one analysis call.
type AnalysisResult struct {
	Success             bool            `json:"success" yaml:"success"`
	Mode                string          `json:"mode" yaml:"mode"`
	ModelPath           string          `json:"model_path" yaml:"model_path"`
	Sentences           []string        `json:"sentences" yaml:"sentences"`
	TotalSentences      int             `json:"total_sentences" yaml:"total_sentences"`
	TotalContradictions int             `json:"total_contradictions" yaml:"total_contradictions"`
	Contradictions      []Contradiction `json:"contradictions" yaml:"contradictions"`
	Metadata            Metadata        `json:"metadata" yaml:"metadata"`
}

// NewAnalysisResult returns an empty, unsuccessful result for the given mode.
func NewAnalysisResult(mode string, threshold float64, now time.Time) *AnalysisResult {
	return &AnalysisResult{
		Mode:           mode,
		Sentences:      []string{},
		Contradictions: []Contradiction{},
		Metadata: Metadata{
			AnalyzedAt: now.UTC(),
			Threshold:  threshold,
		},
	}
}

// SetNote records an explanatory note or error message in the metadata.
func (r *AnalysisResult) SetNote(msg string) {
	r.Metadata.Error = &msg
}

// Fail marks the result as failed and records err.
func (r *AnalysisResult) Fail(err error) {
	r.Success = false
	r.TotalContradictions = 0
	r.Contradictions = []Contradiction{}
	r.SetNote(err.Error())
}
