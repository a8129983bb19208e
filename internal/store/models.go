// Package store provides the Postgres+pgvector-backed persistence layer
// for the Chronicle memory engine: items (chats/notes), facts, links, and
// decay run metrics.
package store

import "context"

// Kind distinguishes the two item shapes the archive holds.
type Kind string

const (
	KindChat Kind = "chat"
	KindNote Kind = "note"
)

// MemoryType categorizes an item or fact for decay-parameter lookup.
// The empty string is treated as MemoryTypeDefault throughout the decay
// engine and the store.
type MemoryType string

const (
	MemoryTypeEpisodic   MemoryType = "episodic"
	MemoryTypeSemantic   MemoryType = "semantic"
	MemoryTypeProcedural MemoryType = "procedural"
	MemoryTypeEmotional  MemoryType = "emotional"
	MemoryTypeDefault    MemoryType = "default"
)

// Normalize returns t, or MemoryTypeDefault if t is empty or unrecognized.
func (t MemoryType) Normalize() MemoryType {
	switch t {
	case MemoryTypeEpisodic, MemoryTypeSemantic, MemoryTypeProcedural, MemoryTypeEmotional:
		return t
	default:
		return MemoryTypeDefault
	}
}

// PrivilegedSources lists the source labels spec §3 calls out by name.
// Source is still free text: the store neither validates nor normalizes
// it against this set.
var PrivilegedSources = map[string]bool{
	"ChatGPT":  true,
	"Claude":   true,
	"Gemini":   true,
	"Qwen":     true,
	"LocalLLM": true,
	"Other":    true,
	"Manual":   true,
}

// DefaultSalience is the initial salience assigned to a new item.
const DefaultSalience = 0.4

// DefaultFactSalience is the initial salience assigned to a new fact.
const DefaultFactSalience = 0.5

// MaxDecayHistory bounds the FIFO of decay-history entries kept per item
// or fact (spec §3, §9).
const MaxDecayHistory = 10

// DecayHistoryEntry is one audit record of a decay application.
type DecayHistoryEntry struct {
	RunAt              int64   `json:"runAt"`
	PriorSalience      float64 `json:"priorSalience"`
	NewSalience        float64 `json:"newSalience"`
	HoursSinceAccess   float64 `json:"hoursSinceAccess"`
	LTPFactor          float64 `json:"ltpFactor"`
	RecallBoost        float64 `json:"recallBoost"`
	EnvMultiplier      float64 `json:"envMultiplier"`
	EbbinghausModifier float64 `json:"ebbinghausModifier"`
}

// DecayMetadata tracks when an item/fact was last processed by the decay
// scheduler and a bounded history of what happened.
type DecayMetadata struct {
	LastDecayRun *int64              `json:"lastDecayRun,omitempty"`
	History      []DecayHistoryEntry `json:"history,omitempty"`
}

// AppendHistory pushes entry onto the FIFO, evicting the oldest entry
// once the history exceeds MaxDecayHistory.
func (d *DecayMetadata) AppendHistory(entry DecayHistoryEntry) {
	d.History = append(d.History, entry)
	if len(d.History) > MaxDecayHistory {
		d.History = d.History[len(d.History)-MaxDecayHistory:]
	}
}

// Item is a chat or note in the archive.
type Item struct {
	ID             string        `json:"id"`
	Kind           Kind          `json:"kind"`
	Title          string        `json:"title"`
	Summary        string        `json:"summary"`
	Content        string        `json:"content"`
	Tags           []string      `json:"tags"`
	Source         string        `json:"source"`
	FileName       string        `json:"fileName,omitempty"`
	Assets         []string      `json:"assets,omitempty"`
	CreatedAt      int64         `json:"createdAt"`
	UpdatedAt      int64         `json:"updatedAt"`
	Embedding      []float32     `json:"embedding,omitempty"`
	MemoryType     MemoryType    `json:"memoryType,omitempty"`
	Salience       float64       `json:"salience"`
	RecallCount    int           `json:"recallCount"`
	LastAccessedAt int64         `json:"lastAccessedAt"`
	DecayMetadata  DecayMetadata `json:"decayMetadata"`
}

// DedupeTags collapses duplicate tags while preserving first-seen order.
func DedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Fact is a temporal (subject, predicate, object) triple extracted from
// an item.
type Fact struct {
	ID             string        `json:"id"`
	ChatID         string        `json:"chatId"`
	Subject        string        `json:"subject"`
	Predicate      string        `json:"predicate"`
	Object         string        `json:"object"`
	Confidence     float64       `json:"confidence"`
	Salience       float64       `json:"salience"`
	ValidFrom      int64         `json:"validFrom"`
	ValidTo        *int64        `json:"validTo,omitempty"`
	CreatedAt      int64         `json:"createdAt"`
	LastAccessedAt int64         `json:"lastAccessedAt"`
	RecallCount    int           `json:"recallCount"`
	DecayMetadata  DecayMetadata `json:"decayMetadata"`
}

// ExtractedFact is the shape an external extraction collaborator hands
// to SaveFacts (spec §4.1).
type ExtractedFact struct {
	Subject    string
	Predicate  string
	Object     string
	Confidence float64
}

// Link is an unordered edge between two items. Insertions store one
// direction; removal treats (a, b) and (b, a) as equal (spec §3).
type Link struct {
	FromID    string `json:"fromId"`
	ToID      string `json:"toId"`
	Type      string `json:"type,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// DecayRunMetric is one append-only record of a completed decay cycle.
type DecayRunMetric struct {
	RunTimestamp         int64   `json:"runTimestamp"`
	ItemsProcessed       int     `json:"itemsProcessed"`
	ItemsDecayed         int     `json:"itemsDecayed"`
	ErrorCount           int     `json:"errorCount"`
	AverageDecayAmount   float64 `json:"averageDecayAmount"`
	MemoryEntropy        float64 `json:"memoryEntropy"`
	EnvironmentalContext string  `json:"environmentalContext"`
	ProcessingDurationMs int64   `json:"processingDurationMs"`
}

// Filters narrows VectorKNN and KeywordSearch results (spec §4.1).
type Filters struct {
	MemoryType  MemoryType
	MinSalience *float64
	ExcludeID   string
}

// Match reports whether item satisfies f's constraints. It is the
// in-memory counterpart of the WHERE clause the Postgres store builds in
// filterClause, and is used by test fakes.
func (f Filters) Match(item *Item) bool {
	if item == nil {
		return false
	}
	if f.MemoryType != "" && item.MemoryType.Normalize() != f.MemoryType.Normalize() {
		return false
	}
	if f.MinSalience != nil && item.Salience < *f.MinSalience {
		return false
	}
	if f.ExcludeID != "" && item.ID == f.ExcludeID {
		return false
	}
	return true
}

// Storer is the interface the decay scheduler, the MCP server, and the
// host bindings all depend on. PostgresStore is the sole implementation.
type Storer interface {
	Migrate(ctx context.Context) error

	UpsertItems(ctx context.Context, items []*Item) error
	LoadItems(ctx context.Context) ([]*Item, error)
	GetItem(ctx context.Context, id string) (*Item, error)
	DeleteItem(ctx context.Context, id string) error

	SaveFacts(ctx context.Context, chatID string, extracted []ExtractedFact) error
	LoadFacts(ctx context.Context, chatID string) ([]*Fact, error)

	BoostSalience(ctx context.Context, id string) error
	TrackView(ctx context.Context, id string) error

	AddLink(ctx context.Context, from, to, linkType string) error
	RemoveLink(ctx context.Context, a, b string) error
	ListLinks(ctx context.Context) ([]*Link, error)

	VectorKNN(ctx context.Context, query []float32, k int, filters Filters) ([]*Item, error)
	KeywordSearch(ctx context.Context, pattern string, filters Filters) ([]*Item, error)
	ListTags(ctx context.Context) ([]string, error)
	ListRecent(ctx context.Context, count int) ([]*Item, error)

	ScanItemsForDecay(ctx context.Context, cursor string, batchSize int, intervalMs int64, now int64) ([]*Item, error)
	ScanFactsForDecay(ctx context.Context, cursor string, batchSize int, intervalMs int64, now int64) ([]*Fact, error)
	UpdateItemSalience(ctx context.Context, id string, newSalience float64, entry DecayHistoryEntry, lastDecayRun int64) error
	UpdateFactSalience(ctx context.Context, id string, newSalience float64, entry DecayHistoryEntry, lastDecayRun int64) error
	AllLiveSalienceValues(ctx context.Context) ([]float64, error)

	InsertDecayRunMetric(ctx context.Context, m *DecayRunMetric) error
	RecentDecayMetrics(ctx context.Context, limit int) ([]*DecayRunMetric, error)
	PruneDecayMetrics(ctx context.Context, olderThanMs int64) error

	Close() error
}
