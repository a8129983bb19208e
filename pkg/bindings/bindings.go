// Package bindings exposes the Chronicle store and decay scheduler as a
// flat table of host-callable functions (spec §6.2), the same role the
// teacher's cmd/wasm/main.go js.Global().Set(...) export table played for
// its SQLite store, generalized from JS exports to ordinary exported Go
// functions since there is no WASM/JS boundary in this target.
package bindings

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bojanni/Chronicle/internal/decay"
	"github.com/bojanni/Chronicle/internal/scheduler"
	"github.com/bojanni/Chronicle/internal/store"
)

// Bindings wires a Storer and a Scheduler to the host API surface. A
// presentation layer holds one Bindings instance per process.
type Bindings struct {
	store store.Storer
	sched *scheduler.Scheduler
	log   *zap.Logger
}

// New constructs a Bindings over s and sched. sched may be nil for hosts
// that only need the storage surface (e.g. a one-shot import tool).
func New(s store.Storer, sched *scheduler.Scheduler, log *zap.Logger) *Bindings {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bindings{store: s, sched: sched, log: log}
}

// LoadDatabase returns every item in the archive.
func (b *Bindings) LoadDatabase(ctx context.Context) ([]*store.Item, error) {
	items, err := b.store.LoadItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load database: %w", err)
	}
	return items, nil
}

// SaveDatabase upserts every item in items in one transaction.
func (b *Bindings) SaveDatabase(ctx context.Context, items []*store.Item) (bool, error) {
	if err := b.store.UpsertItems(ctx, items); err != nil {
		return false, fmt.Errorf("save database: %w", err)
	}
	return true, nil
}

// SaveFacts persists already-extracted facts for chatID, closing any
// prior live fact each new (subject, predicate) pair supersedes.
func (b *Bindings) SaveFacts(ctx context.Context, chatID string, facts []store.ExtractedFact) (bool, error) {
	if err := b.store.SaveFacts(ctx, chatID, facts); err != nil {
		return false, fmt.Errorf("save facts: %w", err)
	}
	return true, nil
}

// LoadFacts returns every live fact attached to chatID.
func (b *Bindings) LoadFacts(ctx context.Context, chatID string) ([]*store.Fact, error) {
	facts, err := b.store.LoadFacts(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	return facts, nil
}

// BoostSalience nudges chatID's salience and recall count upward, along
// with any live fact linked to it.
func (b *Bindings) BoostSalience(ctx context.Context, chatID string) (bool, error) {
	if err := b.store.BoostSalience(ctx, chatID); err != nil {
		return false, fmt.Errorf("boost salience: %w", err)
	}
	return true, nil
}

// TrackChatView records a read of chatID without the salience bump a
// boost implies.
func (b *Bindings) TrackChatView(ctx context.Context, chatID string) (bool, error) {
	if err := b.store.TrackView(ctx, chatID); err != nil {
		return false, fmt.Errorf("track chat view: %w", err)
	}
	return true, nil
}

// UpdateMemoryType reclassifies chatID's memory type, round-tripping the
// rest of the item unchanged. There is no dedicated store method for
// this: the item is loaded, mutated, and handed back to UpsertItems,
// which preserves createdAt/recallCount/lastAccessedAt/decayMetadata on
// conflict.
func (b *Bindings) UpdateMemoryType(ctx context.Context, chatID string, memType store.MemoryType) (bool, error) {
	item, err := b.store.GetItem(ctx, chatID)
	if err != nil {
		return false, fmt.Errorf("update memory type: %w", err)
	}
	item.MemoryType = memType.Normalize()
	if err := b.store.UpsertItems(ctx, []*store.Item{item}); err != nil {
		return false, fmt.Errorf("update memory type: %w", err)
	}
	return true, nil
}

// AddLink connects from and to, optionally labelled linkType.
func (b *Bindings) AddLink(ctx context.Context, from, to, linkType string) (bool, error) {
	if err := b.store.AddLink(ctx, from, to, linkType); err != nil {
		return false, fmt.Errorf("add link: %w", err)
	}
	return true, nil
}

// RemoveLink disconnects a and b, treating (a, b) and (b, a) as equal.
func (b *Bindings) RemoveLink(ctx context.Context, a, bID string) (bool, error) {
	if err := b.store.RemoveLink(ctx, a, bID); err != nil {
		return false, fmt.Errorf("remove link: %w", err)
	}
	return true, nil
}

// LoadLinks returns every link in the archive.
func (b *Bindings) LoadLinks(ctx context.Context) ([]*store.Link, error) {
	links, err := b.store.ListLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	return links, nil
}

// DecayMetrics is get_decay_metrics' return shape: the scheduler's
// in-memory entropy ring alongside the store's persisted run history
// (SPEC_FULL supplemented feature 4).
type DecayMetrics struct {
	EntropySamples []float64               `json:"entropySamples"`
	RecentRuns     []*store.DecayRunMetric `json:"recentRuns"`
}

// GetDecayMetrics reports the last `limit` persisted decay run metrics
// plus the scheduler's live entropy sample history. Returns an empty
// EntropySamples slice, not an error, when no scheduler is attached.
func (b *Bindings) GetDecayMetrics(ctx context.Context, limit int) (*DecayMetrics, error) {
	runs, err := b.store.RecentDecayMetrics(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("get decay metrics: %w", err)
	}
	var samples []float64
	if b.sched != nil {
		samples = b.sched.RecentEntropySamples()
	}
	return &DecayMetrics{EntropySamples: samples, RecentRuns: runs}, nil
}

// DecayCycleOutcome is trigger_decay_cycle's return shape.
type DecayCycleOutcome struct {
	Success bool
	Result  scheduler.CycleResult
	Error   string
}

// TriggerDecayCycle runs one manual decay cycle. When override is
// non-nil the environmental context is pinned for this call (and
// restored to wall-clock resolution afterward) so a caller can get a
// deterministic result instead of one that depends on the time of day.
// Returns an error only when no scheduler is attached; a refused or
// failed cycle is reported through DecayCycleOutcome instead, matching
// the host API's success/error envelope convention.
func (b *Bindings) TriggerDecayCycle(ctx context.Context, override *decay.Context) (*DecayCycleOutcome, error) {
	if b.sched == nil {
		return nil, fmt.Errorf("trigger decay cycle: no scheduler attached")
	}

	if override != nil {
		b.sched.SetContextOverride(override)
		defer b.sched.SetContextOverride(nil)
	}

	result, err := b.sched.RunCycle(ctx)
	if err != nil {
		return &DecayCycleOutcome{Success: false, Error: err.Error()}, nil
	}
	return &DecayCycleOutcome{Success: true, Result: result}, nil
}
