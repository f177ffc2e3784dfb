// Package engine implements the adaptive-indexing (database cracking) core
// described by the crackstore specification: a single column's storage
// buffer, its cracker index, the in-place partition kernels, range-count
// query orchestration, and the lazy pending-update merge.
//
// Everything here is single-threaded and non-suspending: a Column is owned
// exclusively by one caller for its lifetime and must never be accessed
// concurrently or copied by value. Construction allocates the storage
// buffer once; no later operation reallocates it.
package engine

import (
	"github.com/google/btree"
)

// DefaultExtraCapacityDivisor and DefaultExtraCapacityFloor compute the
// default headroom reserved for pending inserts when a caller does not
// specify one: max(size/10, 1000).
const (
	DefaultExtraCapacityDivisor = 10
	DefaultExtraCapacityFloor   = 1000
)

// Column owns one column's storage buffer, cracker index, and pending
// update buffers. Construct with NewColumn; never copy a Column value,
// always hold and pass *Column.
type Column struct {
	_ noCopy

	data     []int32 // len(data) == capacity; only [0, size) holds live elements
	size     int
	capacity int

	index *crackerIndex

	pendingInserts sortedMultiset
	pendingDeletes sortedMultiset

	stats Stats
}

// defaultExtraCapacity implements the construct contract's default:
// max(size/10, 1000), substituted whenever the caller passes a negative k.
func defaultExtraCapacity(size int) int {
	headroom := size / DefaultExtraCapacityDivisor
	if headroom < DefaultExtraCapacityFloor {
		headroom = DefaultExtraCapacityFloor
	}
	return headroom
}

// NewColumn constructs a Column from a copy of data, with extraCapacity
// additional slots reserved for future inserts. A negative extraCapacity
// is replaced by the default max(size/10, 1000). A non-positive size
// (including a nil or empty data slice) yields an empty column that
// answers every range_query with 0, per spec §7's first recognized failure
// mode.
func NewColumn(data []int32, extraCapacity int) *Column {
	size := len(data)
	if extraCapacity < 0 {
		extraCapacity = defaultExtraCapacity(size)
	}

	capacity := size + extraCapacity
	if capacity < 0 {
		capacity = 0
	}

	buf := make([]int32, capacity)
	copy(buf, data)

	return &Column{
		data:     buf,
		size:     size,
		capacity: capacity,
		index:    newCrackerIndex(btree.New(32)),
	}
}

// Size returns the column's current logical length.
func (c *Column) Size() int { return c.size }

// Capacity returns the column's allocated capacity.
func (c *Column) Capacity() int { return c.capacity }

// CrackCount returns the number of cracks currently recorded in the index.
func (c *Column) CrackCount() int { return c.index.len() }

// PendingInsertCount returns the number of values queued for insertion.
func (c *Column) PendingInsertCount() int { return c.pendingInserts.len() }

// PendingDeleteCount returns the number of values queued for deletion.
func (c *Column) PendingDeleteCount() int { return c.pendingDeletes.len() }

// Snapshot returns a copy of the column's current logical contents. It is
// intended for tests and cross-validation against the naive baseline, not
// for the query path: no internal storage is ever lent out by reference
// (spec §5, "no references to internal storage escape through the API").
func (c *Column) Snapshot() []int32 {
	out := make([]int32, c.size)
	copy(out, c.data[:c.size])
	return out
}
