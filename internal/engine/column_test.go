package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewColumnDefaultsAndEmptyConstruction(t *testing.T) {
	c := NewColumn([]int32{1, 2, 3}, -1)
	assert.Equal(t, 3, c.Size())
	assert.Equal(t, 3+defaultExtraCapacity(3), c.Capacity())

	empty := NewColumn(nil, -1)
	assert.Equal(t, 0, empty.Size())
	assert.Equal(t, 0, empty.RangeQuery(0, 100))
}

func TestSnapshotIsADefensiveCopy(t *testing.T) {
	c := NewColumn([]int32{3, 1, 2}, 5)
	snap := c.Snapshot()
	snap[0] = 999
	assert.NotEqual(t, snap[0], c.Snapshot()[0])
}

func TestInsertRemoveMutualCancellation(t *testing.T) {
	c := NewColumn([]int32{1, 2, 3}, 5)

	c.Insert(10)
	require.Equal(t, 1, c.PendingInsertCount())
	c.Remove(10)
	assert.Equal(t, 0, c.PendingInsertCount())
	assert.Equal(t, 0, c.PendingDeleteCount())

	c.Remove(1)
	require.Equal(t, 1, c.PendingDeleteCount())
	c.Insert(1)
	assert.Equal(t, 0, c.PendingInsertCount())
	assert.Equal(t, 0, c.PendingDeleteCount())
}

func TestResetStatsZeroesEverything(t *testing.T) {
	c := NewColumn([]int32{5, 2, 8, 1, 9, 3, 7, 4, 6, 0}, -1)
	c.RangeQuery(3, 7)
	require.Greater(t, c.GetStats().QueriesExecuted, 0)

	c.ResetStats()
	assert.Equal(t, Stats{}, c.GetStats())
}

// Scenario 1, spec §8: Construct from [5,2,8,1,9,3,7,4,6,0]; range_query(3,7) → 4;
// crack count becomes >= 1; array still contains the same multiset.
func TestScenarioBasicRangeQuery(t *testing.T) {
	seed := []int32{5, 2, 8, 1, 9, 3, 7, 4, 6, 0}
	c := NewColumn(seed, -1)

	got := c.RangeQuery(3, 7)
	assert.Equal(t, 4, got)
	assert.GreaterOrEqual(t, c.CrackCount(), 1)

	assert.ElementsMatch(t, seed, c.Snapshot())
}

// Scenario 2, spec §8: same column; range_query(0,100) → 10; range_query(100,200) → 0.
func TestScenarioFullAndOutOfBoundsRanges(t *testing.T) {
	c := NewColumn([]int32{5, 2, 8, 1, 9, 3, 7, 4, 6, 0}, -1)

	assert.Equal(t, 10, c.RangeQuery(0, 100))
	assert.Equal(t, 0, c.RangeQuery(100, 200))
}

// Scenario 3, spec §8: column [5,2,8,1,9]; insert(3); pending inserts = 1;
// range_query(0,10) → 6; pending inserts = 0.
func TestScenarioPendingInsertMergesIntoQuery(t *testing.T) {
	c := NewColumn([]int32{5, 2, 8, 1, 9}, 5)

	c.Insert(3)
	require.Equal(t, 1, c.PendingInsertCount())

	assert.Equal(t, 6, c.RangeQuery(0, 10))
	assert.Equal(t, 0, c.PendingInsertCount())
}

// Scenario 4, spec §8: column [5,2,8,1,9]; remove(5); pending deletes = 1;
// range_query(0,10) → 4; pending deletes = 0; crack count = 0 (index cleared
// by deletion).
func TestScenarioPendingDeleteClearsIndex(t *testing.T) {
	c := NewColumn([]int32{5, 2, 8, 1, 9}, 5)

	c.Remove(5)
	require.Equal(t, 1, c.PendingDeleteCount())

	assert.Equal(t, 4, c.RangeQuery(0, 10))
	assert.Equal(t, 0, c.PendingDeleteCount())
	assert.Equal(t, 0, c.CrackCount())
}

func TestEmptyRangeDoesNoWork(t *testing.T) {
	c := NewColumn([]int32{5, 2, 8, 1, 9, 3, 7, 4, 6, 0}, -1)

	assert.Equal(t, 0, c.RangeQuery(5, 5))
	assert.Equal(t, 0, c.RangeQuery(7, 3))
	assert.Equal(t, 0, c.CrackCount())
}

func TestUniqueElementRangeCountsOne(t *testing.T) {
	c := NewColumn([]int32{5, 2, 8, 1, 9, 3, 7, 4, 6, 0}, -1)
	assert.Equal(t, 1, c.RangeQuery(3, 4))
}
