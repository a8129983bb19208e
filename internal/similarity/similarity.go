// Package similarity implements the pure vector and statistical kernels
// the store and decay scheduler build on: cosine similarity, k-nearest
// neighbour selection, and Shannon entropy over salience distributions.
package similarity

import (
	"math"
	"sort"
)

// Cosine returns the cosine similarity of a and b, in [-1, 1]. It returns
// 0 if either vector has zero magnitude or the dimensions differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// Scored pairs an item's index with its similarity score. Callers that
// need the underlying item back can use the Index into their own slice.
type Scored struct {
	Index int
	Score float64
}

// Embedded is anything the KNN search can compute a cosine score against.
type Embedded interface {
	EmbeddingVector() []float32
}

// KNN filters out entries with no embedding, scores the rest against
// query by cosine similarity, and returns the k highest scores in
// descending order. Ties keep the input's relative order (stable sort).
func KNN(query []float32, items []Embedded, k int) []Scored {
	var candidates []Scored
	for i, it := range items {
		vec := it.EmbeddingVector()
		if len(vec) == 0 {
			continue
		}
		candidates = append(candidates, Scored{Index: i, Score: Cosine(query, vec)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if k < 0 {
		k = 0
	}
	if k > len(candidates) {
		k = len(candidates)
	}
	return candidates[:k]
}

const entropyBuckets = 10

// Entropy buckets salience values (each expected in [0,1]) into 10 equal
// bins, computes Shannon entropy in bits, and normalizes by log2(10) so
// the result lies in [0,1]. The last bin is inclusive of 1.0. Returns 0
// on empty input.
func Entropy(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var counts [entropyBuckets]int
	for _, v := range values {
		bucket := int(v * entropyBuckets)
		if bucket >= entropyBuckets {
			bucket = entropyBuckets - 1
		}
		if bucket < 0 {
			bucket = 0
		}
		counts[bucket]++
	}

	total := float64(len(values))
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		h -= p * math.Log2(p)
	}

	norm := h / math.Log2(entropyBuckets)
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	return norm
}
