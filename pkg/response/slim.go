// Package response provides optimized JSON response builders that only
// serialize the fields an MCP client actually consumes for a given tool
// call, rather than the full store.Item/store.Fact record.
package response

import (
	"encoding/json"

	"github.com/bojanni/Chronicle/internal/store"
)

// SlimItem is the minimal item shape search_archive and semantic_search
// hand back over MCP (spec §4.5): id, title, summary, memory_type,
// salience, plus an optional similarity score for semantic results.
type SlimItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Summary    string  `json:"summary"`
	MemoryType string  `json:"memory_type,omitempty"`
	Salience   float64 `json:"salience"`
	Score      float64 `json:"score,omitempty"`
}

// FromItem converts a full store.Item to its slim wire shape.
func FromItem(it *store.Item) SlimItem {
	if it == nil {
		return SlimItem{}
	}
	return SlimItem{
		ID:         it.ID,
		Title:      it.Title,
		Summary:    it.Summary,
		MemoryType: string(it.MemoryType),
		Salience:   it.Salience,
	}
}

// FromItems converts a slice of items into a new slice of slim shapes.
func FromItems(items []*store.Item) []SlimItem {
	out := make([]SlimItem, 0, len(items))
	for _, it := range items {
		out = append(out, FromItem(it))
	}
	return out
}

// MarshalSlimItems is a convenience wrapper that encodes items as a bare
// JSON array of slim shapes. The MCP tool handlers encode through their
// own pooled jsonResult helper instead.
func MarshalSlimItems(items []*store.Item) ([]byte, error) {
	return json.Marshal(FromItems(items))
}

// ScoredItem pairs an item with a semantic_search similarity score
// (1 - cosine distance).
type ScoredItem struct {
	Item  *store.Item
	Score float64
}

// FromScoredItems converts vector_knn results into the slim wire shape,
// carrying the score field semantic_search needs but search_archive
// omits.
func FromScoredItems(scored []ScoredItem) []SlimItem {
	out := make([]SlimItem, 0, len(scored))
	for _, s := range scored {
		slim := FromItem(s.Item)
		slim.Score = s.Score
		out = append(out, slim)
	}
	return out
}
