package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDotProductAndMagnitude(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 32.0, DotProduct([]float32{1, 2, 3}, []float32{4, 5, 6}), 1e-9)
	assert.Zero(t, DotProduct([]float32{1, 2, 3}, []float32{1, 2}))
	assert.InDelta(t, 5.0, Magnitude([]float32{3, 4}), 1e-9)
	assert.Zero(t, Magnitude(nil))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	result := Normalize([]float32{3, 4})
	require.Len(t, result, 2)
	assert.InDelta(t, 0.6, result[0], 1e-6)
	assert.InDelta(t, 0.8, result[1], 1e-6)
	assert.InDelta(t, 1.0, Magnitude(result), 1e-6)

	zero := Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
	assert.Empty(t, Normalize(nil))
}

func TestSimilarityMatrix(t *testing.T) {
	t.Parallel()

	m := SimilarityMatrix([][]float32{
		{1, 0},
		{2, 0},
		{0, 3},
		{float32(math.NaN()), 1},
	})
	require.Len(t, m, 4)

	for i := range m {
		assert.Equal(t, SelfSimilarity, m[i][i], "diagonal must hold the sentinel")
	}
	assert.InDelta(t, 1.0, m[0][1], 1e-6)
	assert.InDelta(t, 0.0, m[0][2], 1e-6)
	assert.Equal(t, m[0][1], m[1][0], "matrix must be symmetric")
	assert.Equal(t, SelfSimilarity, m[0][3], "NaN similarity must not qualify")
}

func TestTopKByScore(t *testing.T) {
	t.Parallel()

	items := []ScoredItem[string]{
		{Item: "a", Score: 0.5},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.3},
		{Item: "d", Score: 0.7},
		{Item: "e", Score: 0.1},
	}

	result := TopKByScore(items, 3)
	require.Len(t, result, 3)
	assert.Equal(t, "b", result[0].Item)
	assert.Equal(t, "d", result[1].Item)
	assert.Equal(t, "a", result[2].Item)

	assert.Len(t, TopKByScore(items, 10), 5)
	assert.Nil(t, TopKByScore(items, 0))
	assert.Nil(t, TopKByScore[string](nil, 3))
}

func TestTopKByScoreTies(t *testing.T) {
	t.Parallel()

	scores := []float64{0.5, 0.8, 0.5, 0.5, 0.8, 0.1}
	items := make([]ScoredItem[int], len(scores))
	for i, score := range scores {
		items[i] = ScoredItem[int]{Item: i, Score: score}
	}
	indices := func(k int) []int {
		var out []int
		for _, it := range TopKByScore(items, k) {
			out = append(out, it.Item)
		}
		return out
	}

	assert.Equal(t, []int{1, 4, 0}, indices(3))
	assert.Equal(t, []int{1, 4, 0, 2}, indices(4))
	assert.Equal(t, []int{1, 4, 0, 2, 3, 5}, indices(6))

	for i := 0; i < 20; i++ {
		assert.Equal(t, []int{1, 4, 0}, indices(3), "selection must be deterministic")
	}
}

func BenchmarkSimilarityMatrix(b *testing.B) {
	vectors := make([][]float32, 200)
	for i := range vectors {
		vectors[i] = make([]float32, 384)
		for j := range vectors[i] {
			vectors[i][j] = float32((i*31+j*17)%97) / 97.0
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SimilarityMatrix(vectors)
	}
}
