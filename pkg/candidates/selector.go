// Package candidates selects the sentence pairs worth sending to the NLI classifier.
package candidates

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/soundprediction/contradict/pkg/embedder"
	"github.com/soundprediction/contradict/pkg/types"
	"github.com/soundprediction/contradict/pkg/utils"
)

// Config bounds the similarity band and per-sentence fan-out.
type Config struct {
	TopK                int
	SimMin              float64
	SimMax              float64
	UseEmbeddingsFilter bool
}

// Selector turns a sentence list into candidate pairs.
type Selector struct {
	logger *slog.Logger
}

// NewSelector creates a Selector. A nil logger uses slog.Default().
func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{logger: logger}
}

// Select returns candidate pairs with I < J, ordered by I then by descending similarity.
//
// With the filter disabled every unordered pair is returned with Similarity 0 and
// the encoder is not consulted. With the filter enabled, each sentence keeps at most
// TopK partners whose similarity lies in [SimMin, SimMax]; a pair is emitted from the
// lower index only, so it appears once even when it qualifies for both sentences.
func (s *Selector) Select(ctx context.Context, sentences []string, cfg Config, enc embedder.Client) ([]types.CandidatePair, error) {
	n := len(sentences)
	if n < 2 {
		return []types.CandidatePair{}, nil
	}
	if !cfg.UseEmbeddingsFilter {
		return AllPairs(n), nil
	}
	if enc == nil {
		return nil, types.NewEncodingError("", fmt.Errorf("no encoder configured"))
	}

	vectors, err := enc.Embed(ctx, sentences)
	if err != nil {
		return nil, err
	}
	if len(vectors) != n {
		return nil, fmt.Errorf("encoder returned %d vectors for %d sentences", len(vectors), n)
	}

	pairs := FromMatrix(utils.SimilarityMatrix(vectors), cfg.TopK, cfg.SimMin, cfg.SimMax)
	s.logger.Debug("candidate pairs selected",
		"sentences", n,
		"pairs", len(pairs),
		"top_k", cfg.TopK,
		"sim_min", cfg.SimMin,
		"sim_max", cfg.SimMax)
	return pairs, nil
}

// FromMatrix applies the band and top-k rule to a precomputed similarity matrix.
func FromMatrix(sim [][]float64, topK int, simMin, simMax float64) []types.CandidatePair {
	pairs := []types.CandidatePair{}
	if topK <= 0 {
		return pairs
	}
	for i, row := range sim {
		band := make([]utils.ScoredItem[int], 0, len(row))
		for j, v := range row {
			if j == i || v < simMin || v > simMax {
				continue
			}
			band = append(band, utils.ScoredItem[int]{Item: j, Score: v})
		}
		for _, kept := range utils.TopKByScore(band, topK) {
			if kept.Item > i {
				pairs = append(pairs, types.CandidatePair{I: i, J: kept.Item, Similarity: kept.Score})
			}
		}
	}
	return pairs
}

// AllPairs enumerates every unordered pair of n sentences.
func AllPairs(n int) []types.CandidatePair {
	if n < 2 {
		return []types.CandidatePair{}
	}
	pairs := make([]types.CandidatePair, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, types.CandidatePair{I: i, J: j})
		}
	}
	return pairs
}
