package bindings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bojanni/Chronicle/internal/decay"
	"github.com/bojanni/Chronicle/internal/scheduler"
	"github.com/bojanni/Chronicle/internal/store"
)

// fakeStore implements store.Storer with just enough behavior to drive
// the bindings; unused methods return zero values.
type fakeStore struct {
	items   map[string]*store.Item
	facts   map[string][]*store.Fact
	links   []*store.Link
	metrics []*store.DecayRunMetric

	boosted  []string
	tracked  []string
	upserted [][]*store.Item
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]*store.Item{}, facts: map[string][]*store.Fact{}}
}

func (f *fakeStore) Migrate(ctx context.Context) error { return nil }

func (f *fakeStore) UpsertItems(ctx context.Context, items []*store.Item) error {
	f.upserted = append(f.upserted, items)
	for _, it := range items {
		f.items[it.ID] = it
	}
	return nil
}

func (f *fakeStore) LoadItems(ctx context.Context) ([]*store.Item, error) {
	var out []*store.Item
	for _, it := range f.items {
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeStore) GetItem(ctx context.Context, id string) (*store.Item, error) {
	if it, ok := f.items[id]; ok {
		return it, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) DeleteItem(ctx context.Context, id string) error { delete(f.items, id); return nil }

func (f *fakeStore) SaveFacts(ctx context.Context, chatID string, extracted []store.ExtractedFact) error {
	for _, e := range extracted {
		f.facts[chatID] = append(f.facts[chatID], &store.Fact{
			ChatID: chatID, Subject: e.Subject, Predicate: e.Predicate, Object: e.Object,
		})
	}
	return nil
}

func (f *fakeStore) LoadFacts(ctx context.Context, chatID string) ([]*store.Fact, error) {
	return f.facts[chatID], nil
}

func (f *fakeStore) BoostSalience(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	f.boosted = append(f.boosted, id)
	return nil
}

func (f *fakeStore) TrackView(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return store.ErrNotFound
	}
	f.tracked = append(f.tracked, id)
	return nil
}

func (f *fakeStore) AddLink(ctx context.Context, from, to, linkType string) error {
	f.links = append(f.links, &store.Link{FromID: from, ToID: to, Type: linkType})
	return nil
}

func (f *fakeStore) RemoveLink(ctx context.Context, a, b string) error {
	out := f.links[:0]
	for _, l := range f.links {
		if (l.FromID == a && l.ToID == b) || (l.FromID == b && l.ToID == a) {
			continue
		}
		out = append(out, l)
	}
	f.links = out
	return nil
}

func (f *fakeStore) ListLinks(ctx context.Context) ([]*store.Link, error) { return f.links, nil }

func (f *fakeStore) VectorKNN(ctx context.Context, query []float32, k int, filters store.Filters) ([]*store.Item, error) {
	return nil, nil
}

func (f *fakeStore) KeywordSearch(ctx context.Context, pattern string, filters store.Filters) ([]*store.Item, error) {
	return nil, nil
}

func (f *fakeStore) ListTags(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) ListRecent(ctx context.Context, count int) ([]*store.Item, error) {
	return nil, nil
}

func (f *fakeStore) ScanItemsForDecay(ctx context.Context, cursor string, batchSize int, intervalMs int64, at int64) ([]*store.Item, error) {
	return nil, nil
}

func (f *fakeStore) ScanFactsForDecay(ctx context.Context, cursor string, batchSize int, intervalMs int64, at int64) ([]*store.Fact, error) {
	return nil, nil
}

func (f *fakeStore) UpdateItemSalience(ctx context.Context, id string, newSalience float64, entry store.DecayHistoryEntry, lastDecayRun int64) error {
	return nil
}

func (f *fakeStore) UpdateFactSalience(ctx context.Context, id string, newSalience float64, entry store.DecayHistoryEntry, lastDecayRun int64) error {
	return nil
}

func (f *fakeStore) AllLiveSalienceValues(ctx context.Context) ([]float64, error) { return nil, nil }

func (f *fakeStore) InsertDecayRunMetric(ctx context.Context, m *store.DecayRunMetric) error {
	f.metrics = append(f.metrics, m)
	return nil
}

func (f *fakeStore) RecentDecayMetrics(ctx context.Context, limit int) ([]*store.DecayRunMetric, error) {
	if limit < len(f.metrics) {
		return f.metrics[:limit], nil
	}
	return f.metrics, nil
}

func (f *fakeStore) PruneDecayMetrics(ctx context.Context, olderThanMs int64) error { return nil }

func (f *fakeStore) Close() error { return nil }

var _ store.Storer = (*fakeStore)(nil)

func TestLoadAndSaveDatabaseRoundTrip(t *testing.T) {
	fs := newFakeStore()
	b := New(fs, nil, nil)

	ok, err := b.SaveDatabase(context.Background(), []*store.Item{{ID: "a", Title: "A"}})
	require.NoError(t, err)
	assert.True(t, ok)

	items, err := b.LoadDatabase(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].Title)
}

func TestSaveAndLoadFacts(t *testing.T) {
	fs := newFakeStore()
	b := New(fs, nil, nil)

	ok, err := b.SaveFacts(context.Background(), "chat-1", []store.ExtractedFact{
		{Subject: "user", Predicate: "likes", Object: "go", Confidence: 0.9},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	facts, err := b.LoadFacts(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "likes", facts[0].Predicate)
}

func TestBoostSalienceAndTrackViewPropagateNotFound(t *testing.T) {
	fs := newFakeStore()
	fs.items["x"] = &store.Item{ID: "x"}
	b := New(fs, nil, nil)

	ok, err := b.BoostSalience(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TrackChatView(context.Background(), "missing")
	assert.Error(t, err)
	assert.False(t, ok)

	ok, err = b.BoostSalience(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, ok)
}

func TestUpdateMemoryTypeNormalizesAndPreservesItem(t *testing.T) {
	fs := newFakeStore()
	fs.items["x"] = &store.Item{ID: "x", Title: "keep me", MemoryType: store.MemoryTypeEpisodic}
	b := New(fs, nil, nil)

	ok, err := b.UpdateMemoryType(context.Background(), "x", store.MemoryType("bogus"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, store.MemoryTypeDefault, fs.items["x"].MemoryType)
	assert.Equal(t, "keep me", fs.items["x"].Title)
}

func TestUpdateMemoryTypeMissingItem(t *testing.T) {
	fs := newFakeStore()
	b := New(fs, nil, nil)

	_, err := b.UpdateMemoryType(context.Background(), "missing", store.MemoryTypeSemantic)
	assert.Error(t, err)
}

func TestLinkRoundTrip(t *testing.T) {
	fs := newFakeStore()
	b := New(fs, nil, nil)

	ok, err := b.AddLink(context.Background(), "a", "b", "related")
	require.NoError(t, err)
	assert.True(t, ok)

	links, err := b.LoadLinks(context.Background())
	require.NoError(t, err)
	require.Len(t, links, 1)

	ok, err = b.RemoveLink(context.Background(), "b", "a")
	require.NoError(t, err)
	assert.True(t, ok)

	links, err = b.LoadLinks(context.Background())
	require.NoError(t, err)
	assert.Len(t, links, 0)
}

func TestGetDecayMetricsWithoutSchedulerReturnsEmptySamples(t *testing.T) {
	fs := newFakeStore()
	fs.metrics = []*store.DecayRunMetric{{RunTimestamp: 1}, {RunTimestamp: 2}}
	b := New(fs, nil, nil)

	metrics, err := b.GetDecayMetrics(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, metrics.RecentRuns, 2)
	assert.Empty(t, metrics.EntropySamples)
}

func TestTriggerDecayCycleWithoutSchedulerErrors(t *testing.T) {
	fs := newFakeStore()
	b := New(fs, nil, nil)

	_, err := b.TriggerDecayCycle(context.Background(), nil)
	assert.Error(t, err)
}

func TestTriggerDecayCycleUsesOverrideAndResetsIt(t *testing.T) {
	fs := newFakeStore()
	fs.items["x"] = &store.Item{
		ID: "x", Salience: 0.8, MemoryType: store.MemoryTypeEpisodic,
		LastAccessedAt: 0, RecallCount: 0,
	}
	sched := scheduler.New(fs, scheduler.Config{}, nil)
	b := New(fs, sched, nil)

	outcome, err := b.TriggerDecayCycle(context.Background(), &decay.LowActivity)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	require.Len(t, fs.metrics, 1)
	assert.Equal(t, decay.LowActivity.Label, fs.metrics[0].EnvironmentalContext)

	outcome2, err := b.TriggerDecayCycle(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, outcome2.Success)
	// Wall-clock resolution never yields low_activity, so a second metric
	// with a different label shows the override was cleared.
	require.Len(t, fs.metrics, 2)
	assert.NotEqual(t, decay.LowActivity.Label, fs.metrics[1].EnvironmentalContext)
}

func TestGetDecayMetricsIncludesSchedulerEntropy(t *testing.T) {
	fs := newFakeStore()
	sched := scheduler.New(fs, scheduler.Config{}, nil)
	b := New(fs, sched, nil)

	_, err := b.TriggerDecayCycle(context.Background(), nil)
	require.NoError(t, err)

	metrics, err := b.GetDecayMetrics(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, metrics.EntropySamples, 1)
}
