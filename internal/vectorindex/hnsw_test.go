package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWIndex_AddAndSearch(t *testing.T) {
	idx := NewHNSWIndex(testConfig(4))
	defer idx.Close()

	ids := []string{"a", "b", "c"}
	vectors := [][]float32{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0.9, 0.1, 0, 0},
	}
	require.NoError(t, idx.Add(ids, vectors))

	results, err := idx.Search([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWIndex_SearchOnEmptyIndexReturnsEmptyList(t *testing.T) {
	idx := NewHNSWIndex(testConfig(4))
	defer idx.Close()

	results, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWIndex_DimensionMismatchRejected(t *testing.T) {
	idx := NewHNSWIndex(testConfig(4))
	defer idx.Close()

	_, err := idx.Search([]float32{1, 0, 0}, 1)
	var mismatch ErrDimensionMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestHNSWIndex_LazyDeleteRemovesFromResults(t *testing.T) {
	idx := NewHNSWIndex(testConfig(4))
	defer idx.Close()

	require.NoError(t, idx.Add([]string{"a", "b"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))
	require.NoError(t, idx.Remove([]string{"a"}))

	assert.False(t, idx.Contains("a"))
	assert.Equal(t, 1, idx.Count())

	results, err := idx.Search([]float32{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestHNSWIndex_NeedsRebuildAfterEnoughTombstones(t *testing.T) {
	cfg := testConfig(2)
	cfg.RebuildThreshold = 3
	cfg.TombstoneRebuildRatio = 0.99 // force the absolute threshold to decide
	idx := NewHNSWIndex(cfg)
	defer idx.Close()

	ids := []string{"a", "b", "c", "d"}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}, {-1, 0}}
	require.NoError(t, idx.Add(ids, vectors))

	assert.False(t, idx.NeedsRebuild())
	require.NoError(t, idx.Remove([]string{"a", "b", "c"}))
	assert.True(t, idx.NeedsRebuild())
}

func TestHNSWIndex_RebuildDropsTombstonesAndPreservesLiveEntries(t *testing.T) {
	idx := NewHNSWIndex(testConfig(2))
	defer idx.Close()

	require.NoError(t, idx.Add([]string{"a", "b", "c"}, [][]float32{{1, 0}, {0, 1}, {-1, 0}}))
	require.NoError(t, idx.Remove([]string{"b"}))
	require.NoError(t, idx.Rebuild())

	assert.Equal(t, 2, idx.Count())
	assert.True(t, idx.Contains("a"))
	assert.True(t, idx.Contains("c"))
	assert.False(t, idx.NeedsRebuild())

	results, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWIndex_SaveAndLoadRoundTrips(t *testing.T) {
	idx := NewHNSWIndex(testConfig(4))
	defer idx.Close()

	require.NoError(t, idx.Add([]string{"a", "b"}, [][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}))

	path := filepath.Join(t.TempDir(), "hnsw.idx")
	require.NoError(t, idx.Save(path))

	loaded := NewHNSWIndex(testConfig(4))
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Contains("a"))
	assert.True(t, loaded.Contains("b"))
}

func TestHNSWIndex_OperationsAfterCloseFail(t *testing.T) {
	idx := NewHNSWIndex(testConfig(4))
	require.NoError(t, idx.Close())

	err := idx.Add([]string{"a"}, [][]float32{{1, 0, 0, 0}})
	assert.ErrorIs(t, err, ErrClosed{})
}
