package utils

import (
	"container/heap"
	"math"
	"slices"
)

// SelfSimilarity is written to the diagonal of a similarity matrix. It sits below
// any valid cosine similarity so a sentence never pairs with itself.
const SelfSimilarity = -1.0

// DotProduct calculates the dot product of two float32 vectors.
// Returns 0 if vectors have different lengths.
func DotProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var result float64
	for i := range a {
		result += float64(a[i]) * float64(b[i])
	}
	return result
}

// Magnitude calculates the Euclidean magnitude (L2 norm) of a float32 vector.
func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit length.
// A zero vector is returned as a zero vector of the same length.
func Normalize(v []float32) []float32 {
	result := make([]float32, len(v))
	mag := Magnitude(v)
	if mag == 0 {
		return result
	}
	for i, x := range v {
		result[i] = float32(float64(x) / mag)
	}
	return result
}

// SimilarityMatrix returns the n×n cosine similarity matrix of the given vectors.
// Vectors are normalised first; the diagonal holds SelfSimilarity. Values are
// clamped into [-1, 1] and NaN entries become SelfSimilarity.
func SimilarityMatrix(vectors [][]float32) [][]float64 {
	n := len(vectors)
	unit := make([][]float32, n)
	for i, v := range vectors {
		unit[i] = Normalize(v)
	}

	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		m[i][i] = SelfSimilarity
		for j := i + 1; j < n; j++ {
			s := DotProduct(unit[i], unit[j])
			if math.IsNaN(s) {
				s = SelfSimilarity
			}
			s = math.Max(-1, math.Min(1, s))
			m[i][j] = s
			m[j][i] = s
		}
	}
	return m
}

// ScoredItem represents an item with a score for top-K selection.
type ScoredItem[T any] struct {
	Item  T
	Score float64
}

// minHeap keeps the weakest retained item at the root.
type minHeap[T any] []ScoredItem[T]

func (h minHeap[T]) Len() int           { return len(h) }
func (h minHeap[T]) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h minHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minHeap[T]) Push(x any) {
	*h = append(*h, x.(ScoredItem[T]))
}

func (h *minHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// TopKByScore returns the top K items with the highest scores, sorted descending.
// Among equal scores the item seen first wins, so results are deterministic.
func TopKByScore[T any](items []ScoredItem[T], k int) []ScoredItem[T] {
	if k <= 0 || len(items) == 0 {
		return nil
	}

	if k >= len(items) {
		result := slices.Clone(items)
		slices.SortStableFunc(result, func(a, b ScoredItem[T]) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		})
		return result
	}

	h := make(minHeap[T], 0, k)
	heap.Init(&h)
	for _, item := range items {
		if h.Len() < k {
			heap.Push(&h, item)
		} else if item.Score > h[0].Score {
			heap.Pop(&h)
			heap.Push(&h, item)
		}
	}

	kept := make([]ScoredItem[T], 0, h.Len())
	for h.Len() > 0 {
		kept = append(kept, heap.Pop(&h).(ScoredItem[T]))
	}
	// Heap order is unstable for ties; restore first-seen order before sorting.
	return TopKByScore(restoreOrder(items, kept), len(kept))
}

// restoreOrder returns the members of kept in the order they appear in items.
func restoreOrder[T any](items, kept []ScoredItem[T]) []ScoredItem[T] {
	counts := make(map[float64]int, len(kept))
	var minScore float64 = math.Inf(1)
	for _, it := range kept {
		counts[it.Score]++
		minScore = math.Min(minScore, it.Score)
	}
	out := make([]ScoredItem[T], 0, len(kept))
	for _, it := range items {
		if it.Score < minScore || counts[it.Score] == 0 {
			continue
		}
		counts[it.Score]--
		out = append(out, it)
	}
	return out
}
