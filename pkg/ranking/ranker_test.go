package ranking

import (
	"testing"

	"github.com/soundprediction/contradict/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sentences = []string{"s0", "s1", "s2", "s3"}

func TestRankSortsAndNumbers(t *testing.T) {
	got := Rank([]types.ScoredPair{
		{I: 0, J: 1, Forward: 0.80, Backward: 0.10},
		{I: 1, J: 2, Forward: 0.20, Backward: 0.95, Boosted: true},
		{I: 2, J: 3, Forward: 0.876543, Backward: 0.5},
	}, sentences)

	require.Len(t, got, 3)
	assert.Equal(t, types.Contradiction{
		ID: 1, Sentence1Index: 2, Sentence2Index: 1, Sentence1: "s2", Sentence2: "s1", Confidence: 0.95, Boosted: true,
	}, got[0])
	assert.Equal(t, 0.8765, got[1].Confidence)
	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, 3, got[2].ID)
	assert.Equal(t, 0, got[2].Sentence1Index)
}

func TestRankDeduplicates(t *testing.T) {
	got := Rank([]types.ScoredPair{
		{I: 0, J: 1, Forward: 0.80, Backward: 0.10},
		{I: 0, J: 1, Forward: 0.10, Backward: 0.90},
		{I: 0, J: 1, Forward: 0.85, Backward: 0.10},
	}, sentences)

	require.Len(t, got, 1)
	assert.Equal(t, 0.9, got[0].Confidence)
	assert.Equal(t, 1, got[0].Sentence1Index, "the strongest entry's orientation is kept")
}

func TestRankInvariants(t *testing.T) {
	var scored []types.ScoredPair
	for i := 0; i < len(sentences); i++ {
		for j := i + 1; j < len(sentences); j++ {
			scored = append(scored, types.ScoredPair{I: i, J: j, Forward: float64(i+j) / 10, Backward: float64(j) / 7})
			scored = append(scored, types.ScoredPair{I: j, J: i, Forward: 0.5, Backward: 0.5})
		}
	}
	scored = append(scored, types.ScoredPair{I: 2, J: 2, Forward: 1}, types.ScoredPair{I: 0, J: 9, Forward: 1})

	got := Rank(scored, sentences)
	seen := map[types.PairKey]bool{}
	for n, c := range got {
		assert.Equal(t, n+1, c.ID)
		assert.NotEqual(t, c.Sentence1Index, c.Sentence2Index)
		assert.Less(t, c.Sentence1Index, len(sentences))
		assert.Less(t, c.Sentence2Index, len(sentences))
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
		assert.False(t, seen[c.PairKey()])
		seen[c.PairKey()] = true
		if n > 0 {
			assert.LessOrEqual(t, c.Confidence, got[n-1].Confidence)
		}
	}
	assert.Len(t, got, 6)
}

func TestRankEmpty(t *testing.T) {
	got := Rank(nil, sentences)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
