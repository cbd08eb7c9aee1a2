package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoredPairOrientation(t *testing.T) {
	tests := []struct {
		name        string
		pair        ScoredPair
		wantFirst   int
		wantSecond  int
		wantConfVal float64
	}{
		{"forward stronger", ScoredPair{I: 1, J: 4, Forward: 0.9, Backward: 0.2}, 1, 4, 0.9},
		{"backward stronger", ScoredPair{I: 1, J: 4, Forward: 0.3, Backward: 0.8}, 4, 1, 0.8},
		{"tie goes forward", ScoredPair{I: 2, J: 3, Forward: 0.5, Backward: 0.5}, 2, 3, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			first, second := tt.pair.Oriented()
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantSecond, second)
			assert.InDelta(t, tt.wantConfVal, tt.pair.Confidence(), 1e-12)
		})
	}
}

func TestNewPairKey(t *testing.T) {
	assert.Equal(t, PairKey{Lo: 2, Hi: 7}, NewPairKey(7, 2))
	assert.Equal(t, NewPairKey(2, 7), NewPairKey(7, 2))
	c := Contradiction{Sentence1Index: 9, Sentence2Index: 3}
	assert.Equal(t, PairKey{Lo: 3, Hi: 9}, c.PairKey())
}

func TestRoundConfidence(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.123456, 0.1235},
		{0.99996, 1},
		{1.2, 1},
		{-0.1, 0},
		{math.NaN(), 0},
		{0.75, 0.75},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundConfidence(tt.in))
	}
}

func TestAnalysisResultJSON(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	r := NewAnalysisResult(string(ModeBase), 0.75, now)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, false, decoded["success"])
	assert.Equal(t, []any{}, decoded["contradictions"])
	assert.Equal(t, []any{}, decoded["sentences"])
	meta := decoded["metadata"].(map[string]any)
	assert.Nil(t, meta["error"])
	assert.Equal(t, 0.75, meta["threshold"])
}

func TestAnalysisResultFail(t *testing.T) {
	r := NewAnalysisResult(string(ModeBase), 0.75, time.Now())
	r.Success = true
	r.Contradictions = append(r.Contradictions, Contradiction{ID: 1})
	r.TotalContradictions = 1

	r.Fail(errors.New("boom"))

	assert.False(t, r.Success)
	assert.Empty(t, r.Contradictions)
	assert.NotNil(t, r.Contradictions)
	assert.Zero(t, r.TotalContradictions)
	require.NotNil(t, r.Metadata.Error)
	assert.Equal(t, "boom", *r.Metadata.Error)
}
