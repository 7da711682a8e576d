package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgoodwin/essayradar/internal/observability"
	"github.com/rgoodwin/essayradar/internal/types"
)

var threeEssays = []types.Essay{
	{Title: "How to Do Great Work", URL: "http://www.paulgraham.com/greatwork.html", Slug: "greatwork"},
	{Title: "Hackers & Painters", URL: "http://www.paulgraham.com/hp.html", Slug: "hp"},
	{Title: "Beating the Averages", URL: "http://www.paulgraham.com/avg.html", Slug: "avg"},
}

func newTestStore(t *testing.T) (*Store, *observability.CaptureSink) {
	t.Helper()
	sink := observability.NewCaptureSink()
	store, err := NewStore(t.TempDir(), sink)
	require.NoError(t, err)
	return store, sink
}

func TestCreate_DerivesIDWhenEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	state := store.Create("")

	assert.Regexp(t, `^\d{8}-\d{6}$`, state.ID)
	assert.Empty(t, state.Processed)
	assert.NotNil(t, state.Results)
}

func TestSeedPersistsCheckpoint(t *testing.T) {
	store, _ := newTestStore(t)
	state := store.Create("s1")

	store.Seed(threeEssays)

	assert.Equal(t, 3, state.Total)
	_, err := os.Stat(store.checkpointPath("s1"))
	assert.NoError(t, err)
}

func TestRecordProcessed_InvariantHolds(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)

	store.RecordProcessed(threeEssays[0], types.MatchResult{{ObjectID: "a", Points: 10}})
	store.RecordProcessed(threeEssays[2], nil)

	state := store.Session()
	assert.Equal(t, len(state.Processed), state.ProcessedCount)
	assert.Equal(t, state.ProcessedCount, len(state.Results))
	for _, key := range state.Processed {
		assert.Contains(t, state.Results, key)
	}
}

func TestRecordProcessed_DerivedStats(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)

	store.RecordProcessed(threeEssays[0], types.MatchResult{
		{ObjectID: "a", Points: 450},
		{ObjectID: "b", Points: 12},
	})

	result := store.Session().Results["How to Do Great Work"]
	require.NotNil(t, result)
	assert.Equal(t, 2, result.HitCount)
	assert.Equal(t, 450, result.MaxPoints)
	assert.False(t, result.ProcessedAt.IsZero())
}

func TestRecordProcessed_DuplicateIgnored(t *testing.T) {
	store, sink := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)

	store.RecordProcessed(threeEssays[0], nil)
	store.RecordProcessed(threeEssays[0], types.MatchResult{{ObjectID: "x"}})

	assert.Equal(t, 1, store.Session().ProcessedCount)
	assert.Equal(t, 0, store.Session().Results["How to Do Great Work"].HitCount)

	var warned bool
	for _, e := range sink.ByStep("checkpoint") {
		if e.Category == observability.CategoryWarn {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestRemaining_SetDifferenceInOriginalOrder(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)

	store.RecordProcessed(threeEssays[0], nil)
	store.RecordProcessed(threeEssays[2], nil)

	remaining := store.Remaining()
	require.Len(t, remaining, 1)
	assert.Equal(t, "Hackers & Painters", remaining[0].Title)

	assert.False(t, store.IsComplete())
	assert.Equal(t, "66.7", store.Stats().Percentage)
}

func TestStats(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")

	// Before seeding, total is zero.
	assert.Equal(t, "0.0", store.Stats().Percentage)
	assert.False(t, store.Stats().HasResults)

	store.Seed(threeEssays)
	store.RecordProcessed(threeEssays[1], types.MatchResult{{ObjectID: "a"}})

	stats := store.Stats()
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Remaining)
	assert.Equal(t, "33.3", stats.Percentage)
	assert.True(t, stats.HasResults)
}

func TestIsComplete(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)

	for _, essay := range threeEssays {
		assert.False(t, store.IsComplete())
		store.RecordProcessed(essay, nil)
	}
	assert.True(t, store.IsComplete())
}

func TestComplete_DeletesCheckpointKeepsResults(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)
	for _, essay := range threeEssays {
		store.RecordProcessed(essay, nil)
	}

	store.Complete()

	_, err := os.Stat(store.checkpointPath("s1"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(store.ResultsPath("s1"))
	assert.NoError(t, err)
	assert.True(t, store.Session().Completed)
}

func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	store.Create("s1")
	store.Seed(threeEssays)
	store.RecordProcessed(threeEssays[0], types.MatchResult{{ObjectID: "a", Points: 7}})

	fresh, err := NewStore(dir, nil)
	require.NoError(t, err)
	state := fresh.Load("s1")

	assert.Equal(t, "s1", state.ID)
	assert.Equal(t, 1, state.ProcessedCount)
	assert.Equal(t, 3, state.Total)
	require.Len(t, fresh.Remaining(), 2)
	assert.Equal(t, "Hackers & Painters", fresh.Remaining()[0].Title)
}

func TestLoad_MissingStartsFresh(t *testing.T) {
	store, sink := newTestStore(t)

	state := store.Load("nope")

	assert.Equal(t, "nope", state.ID)
	assert.Zero(t, state.ProcessedCount)
	events := sink.ByStep("checkpoint")
	require.NotEmpty(t, events)
	assert.Contains(t, events[0].Message, "starting fresh")
}

func TestLoad_CorruptStartsFresh(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkpoint_bad.json"), []byte("{truncated"), 0o644))

	state := store.Load("bad")
	assert.Zero(t, state.ProcessedCount)
}

func TestLoad_SchemaInvalidStartsFresh(t *testing.T) {
	dir := t.TempDir()
	sink := observability.NewCaptureSink()
	store, err := NewStore(dir, sink)
	require.NoError(t, err)

	// Valid JSON, wrong shape: processed_count as a string.
	bad := `{"id":"s1","essays":[],"total":0,"processed":[],"results":{},"processed_count":"two","completed":false}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkpoint_s1.json"), []byte(bad), 0o644))

	state := store.Load("s1")
	assert.Zero(t, state.ProcessedCount)

	var warned bool
	for _, e := range sink.ByStep("checkpoint") {
		if e.Category == observability.CategoryWarn {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestListSessionsAndLatest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	require.NoError(t, err)

	store.Create("20240101-080000")
	store.Seed(threeEssays)
	store.Create("20240102-090000")
	store.Seed(threeEssays)

	// Results files and unrelated files must not show up as sessions.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results_20240101-080000.json"), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := store.ListSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101-080000", "20240102-090000"}, ids)

	latest, ok := store.Latest()
	require.True(t, ok)
	assert.Equal(t, "20240102-090000", latest)
}

func TestResultsArtifactContent(t *testing.T) {
	store, _ := newTestStore(t)
	store.Create("s1")
	store.Seed(threeEssays)
	store.RecordProcessed(threeEssays[0], types.MatchResult{{ObjectID: "a", Title: "How to Do Great Work", Points: 450}})

	data, err := os.ReadFile(store.ResultsPath("s1"))
	require.NoError(t, err)

	var results map[string]*types.EssayResult
	require.NoError(t, json.Unmarshal(data, &results))
	require.Contains(t, results, "How to Do Great Work")
	assert.Equal(t, 450, results["How to Do Great Work"].MaxPoints)
}
