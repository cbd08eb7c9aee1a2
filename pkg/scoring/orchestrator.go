// Package scoring runs candidate pairs through an NLI classifier in both directions
// and keeps the pairs whose contradiction confidence clears the threshold.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/soundprediction/contradict/pkg/heuristic"
	"github.com/soundprediction/contradict/pkg/nli"
	"github.com/soundprediction/contradict/pkg/types"
	"github.com/soundprediction/contradict/pkg/utils"
)

// Config controls batching and filtering.
type Config struct {
	BatchSize int
	MaxLength int
	Threshold float64
}

// Stats describes one Score call.
type Stats struct {
	Pairs    int
	Batches  int
	Kept     int
	Boosted  int
	Duration time.Duration
}

// Orchestrator scores candidate pairs. It holds no per-call state and is safe for
// concurrent use.
type Orchestrator struct {
	booster *heuristic.Booster
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil booster disables boosting; a nil
// logger uses slog.Default().
func NewOrchestrator(booster *heuristic.Booster, logger *slog.Logger) *Orchestrator {
	if booster == nil {
		booster = heuristic.New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{booster: booster, logger: logger}
}

// Score classifies every pair forward (I→J) and backward (J→I), one classifier call
// per direction per batch, and returns the pairs with confidence ≥ cfg.Threshold in
// input order. The context is checked between batches.
func (o *Orchestrator) Score(ctx context.Context, clf nli.Classifier, sentences []string, pairs []types.CandidatePair, cfg Config) ([]types.ScoredPair, Stats, error) {
	start := time.Now()
	stats := Stats{Pairs: len(pairs)}
	kept := []types.ScoredPair{}
	if len(pairs) == 0 {
		return kept, stats, nil
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = types.DefaultBatchSize
	}
	for _, p := range pairs {
		if p.I < 0 || p.J < 0 || p.I >= len(sentences) || p.J >= len(sentences) || p.I == p.J {
			return nil, stats, fmt.Errorf("candidate pair (%d, %d) out of range for %d sentences", p.I, p.J, len(sentences))
		}
	}

	for lo := 0; lo < len(pairs); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		batch := pairs[lo:min(lo+batchSize, len(pairs))]

		forward, backward, err := o.scoreBatch(ctx, clf, sentences, batch, cfg.MaxLength)
		if err != nil {
			return nil, stats, err
		}
		stats.Batches++

		for n, p := range batch {
			sp := o.combine(p, sentences, forward[n], backward[n])
			if sp.Boosted {
				stats.Boosted++
			}
			if sp.Confidence() >= cfg.Threshold {
				kept = append(kept, sp)
			}
		}
	}

	stats.Kept = len(kept)
	stats.Duration = time.Since(start)
	o.logger.Debug("pairs scored",
		"pairs", stats.Pairs,
		"batches", stats.Batches,
		"kept", stats.Kept,
		"boosted", stats.Boosted,
		"threshold", cfg.Threshold,
		"duration", stats.Duration)
	return kept, stats, nil
}

// scoreBatch issues the forward and backward classifier calls concurrently.
func (o *Orchestrator) scoreBatch(ctx context.Context, clf nli.Classifier, sentences []string, batch []types.CandidatePair, maxLength int) ([]float64, []float64, error) {
	fwdPairs := make([]nli.Pair, len(batch))
	bwdPairs := make([]nli.Pair, len(batch))
	for n, p := range batch {
		fwdPairs[n] = nli.Pair{Premise: sentences[p.I], Hypothesis: sentences[p.J]}
		bwdPairs[n] = nli.Pair{Premise: sentences[p.J], Hypothesis: sentences[p.I]}
	}

	var forward, backward []float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer utils.RecoverStage(&err, o.logger, "forward scoring")
		forward, err = nli.ContradictionScores(gctx, clf, fwdPairs, maxLength)
		return err
	})
	g.Go(func() (err error) {
		defer utils.RecoverStage(&err, o.logger, "backward scoring")
		backward, err = nli.ContradictionScores(gctx, clf, bwdPairs, maxLength)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return forward, backward, nil
}

// combine boosts and clamps both directions.
func (o *Orchestrator) combine(p types.CandidatePair, sentences []string, forward, backward float64) types.ScoredPair {
	boost := o.booster.Boost(sentences[p.I], sentences[p.J])
	return types.ScoredPair{
		I:        p.I,
		J:        p.J,
		Forward:  clamp(forward + boost),
		Backward: clamp(backward + boost),
		Boosted:  boost > 0,
	}
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
