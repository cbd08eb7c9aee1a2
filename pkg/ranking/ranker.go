// Package ranking turns scored pairs into the final, deduplicated contradiction list.
package ranking

import (
	"cmp"
	"slices"

	"github.com/soundprediction/contradict/pkg/types"
)

// Rank builds one Contradiction per unordered index pair, keeping the highest
// confidence when a pair appears more than once. Records are sorted by descending
// confidence and numbered 1..N. Equal confidences keep first-seen order, so the
// output is deterministic for a given input order.
func Rank(scored []types.ScoredPair, sentences []string) []types.Contradiction {
	best := make(map[types.PairKey]int, len(scored))
	records := make([]types.Contradiction, 0, len(scored))

	for _, sp := range scored {
		first, second := sp.Oriented()
		if first == second || !inRange(first, sentences) || !inRange(second, sentences) {
			continue
		}
		rec := types.Contradiction{
			Sentence1Index: first,
			Sentence2Index: second,
			Sentence1:      sentences[first],
			Sentence2:      sentences[second],
			Confidence:     types.RoundConfidence(sp.Confidence()),
			Boosted:        sp.Boosted,
		}

		key := rec.PairKey()
		if at, ok := best[key]; ok {
			if rec.Confidence > records[at].Confidence {
				records[at] = rec
			}
			continue
		}
		best[key] = len(records)
		records = append(records, rec)
	}

	slices.SortStableFunc(records, func(a, b types.Contradiction) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	for i := range records {
		records[i].ID = i + 1
	}
	return records
}

func inRange(i int, sentences []string) bool {
	return i >= 0 && i < len(sentences)
}
