package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeTags(t *testing.T) {
	got := DedupeTags([]string{"a", "b", "a", "", "c", "b"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestMemoryTypeNormalize(t *testing.T) {
	assert.Equal(t, MemoryTypeEpisodic, MemoryTypeEpisodic.Normalize())
	assert.Equal(t, MemoryTypeDefault, MemoryType("").Normalize())
	assert.Equal(t, MemoryTypeDefault, MemoryType("bogus").Normalize())
}

func TestFiltersMatch(t *testing.T) {
	min := 0.5
	f := Filters{MemoryType: MemoryTypeSemantic, MinSalience: &min, ExcludeID: "x"}

	assert.True(t, f.Match(&Item{MemoryType: MemoryTypeSemantic, Salience: 0.6, ID: "y"}))
	assert.False(t, f.Match(&Item{MemoryType: MemoryTypeEpisodic, Salience: 0.6, ID: "y"}))
	assert.False(t, f.Match(&Item{MemoryType: MemoryTypeSemantic, Salience: 0.3, ID: "y"}))
	assert.False(t, f.Match(&Item{MemoryType: MemoryTypeSemantic, Salience: 0.6, ID: "x"}))
	assert.False(t, f.Match(nil))
}

func TestDecayMetadataAppendHistoryBounded(t *testing.T) {
	var meta DecayMetadata
	for i := 0; i < MaxDecayHistory+5; i++ {
		meta.AppendHistory(DecayHistoryEntry{RunAt: int64(i)})
	}
	require.Len(t, meta.History, MaxDecayHistory)
	assert.Equal(t, int64(5), meta.History[0].RunAt)
	assert.Equal(t, int64(MaxDecayHistory+4), meta.History[len(meta.History)-1].RunAt)
}

func TestSerializeParseEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.5, -0.25, 1, 0}
	raw := serializeEmbedding(in)
	require.NotNil(t, raw)
	out := parseEmbedding(raw)
	require.Len(t, out, len(in))
	for i := range in {
		assert.InDelta(t, in[i], out[i], 1e-6)
	}

	assert.Nil(t, serializeEmbedding(nil))
	assert.Nil(t, parseEmbedding(nil))
}

func TestSortStrings(t *testing.T) {
	ss := []string{"banana", "apple", "cherry", "apple"}
	sortStrings(ss)
	assert.Equal(t, []string{"apple", "apple", "banana", "cherry"}, ss)
}

// newTestStore connects to a live Postgres database addressed by
// DATABASE_URL, migrates it, and returns a store ready for integration
// tests. It skips the calling test when DATABASE_URL is unset, following
// the guarded-integration-test shape used elsewhere in the pack for
// tests that need a real external database.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping Postgres integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewPostgresStore(ctx, dsn, 32, nil)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgresStore_UpsertAndLoadItems(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &Item{
		ID:      "it-upsert-1",
		Kind:    KindChat,
		Title:   "hello",
		Summary: "a test chat",
		Tags:    []string{"x", "x", "y"},
		Source:  "Manual",
	}
	require.NoError(t, s.UpsertItems(ctx, []*Item{item}))
	defer s.DeleteItem(ctx, item.ID)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, []string{"x", "y"}, got.Tags)
	assert.Equal(t, DefaultSalience, got.Salience)
}

func TestPostgresStore_SaveFactsClosesPriorLiveFact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &Item{ID: "it-facts-1", Kind: KindChat, Title: "facts"}
	require.NoError(t, s.UpsertItems(ctx, []*Item{item}))
	defer s.DeleteItem(ctx, item.ID)

	require.NoError(t, s.SaveFacts(ctx, item.ID, []ExtractedFact{
		{Subject: "alice", Predicate: "likes", Object: "tea", Confidence: 0.9},
	}))
	require.NoError(t, s.SaveFacts(ctx, item.ID, []ExtractedFact{
		{Subject: "alice", Predicate: "likes", Object: "coffee", Confidence: 0.95},
	}))

	live, err := s.LoadFacts(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "coffee", live[0].Object)
}

func TestPostgresStore_BoostAndTrackView(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := &Item{ID: "it-boost-1", Kind: KindChat, Title: "boost me", Salience: 0.4}
	require.NoError(t, s.UpsertItems(ctx, []*Item{item}))
	defer s.DeleteItem(ctx, item.ID)

	require.NoError(t, s.BoostSalience(ctx, item.ID))
	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got.Salience, 1e-9)
	assert.Equal(t, 1, got.RecallCount)

	require.NoError(t, s.TrackView(ctx, item.ID))
	got, err = s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got.Salience, 1e-9)
	assert.Equal(t, 2, got.RecallCount)

	err = s.BoostSalience(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_LinksAreSymmetricOnRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &Item{ID: "it-link-a", Kind: KindChat, Title: "a"}
	b := &Item{ID: "it-link-b", Kind: KindChat, Title: "b"}
	require.NoError(t, s.UpsertItems(ctx, []*Item{a, b}))
	defer s.DeleteItem(ctx, a.ID)
	defer s.DeleteItem(ctx, b.ID)

	require.NoError(t, s.AddLink(ctx, a.ID, b.ID, "related"))
	require.NoError(t, s.RemoveLink(ctx, b.ID, a.ID))

	links, err := s.ListLinks(ctx)
	require.NoError(t, err)
	for _, l := range links {
		assert.False(t, l.FromID == a.ID && l.ToID == b.ID)
	}
}
