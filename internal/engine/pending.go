package engine

import "slices"

// sortedMultiset is a sorted []int32 supporting duplicate values, range
// scans, and erase-during-drain — the "sorted vector with in-place erase"
// spec §9 calls out as acceptable for the expected pending-update volume.
// No third-party sorted-multiset package for primitive integers appears
// anywhere in the retrieval pack (see DESIGN.md); this is the one
// deliberate standard-library component in the engine.
type sortedMultiset struct {
	values []int32
}

func (s *sortedMultiset) len() int { return len(s.values) }

// add inserts x keeping values sorted, in O(log n) comparisons plus an
// O(n) shift — acceptable at pending-buffer scale per spec §9.
func (s *sortedMultiset) add(x int32) {
	i, _ := slices.BinarySearch(s.values, x)
	s.values = slices.Insert(s.values, i, x)
}

// removeOne deletes a single occurrence of x, if present, and reports
// whether it found one.
func (s *sortedMultiset) removeOne(x int32) bool {
	i, ok := slices.BinarySearch(s.values, x)
	if !ok {
		return false
	}
	s.values = slices.Delete(s.values, i, i+1)
	return true
}

// drainRange removes and returns every value x with low <= x < high, in
// ascending order.
func (s *sortedMultiset) drainRange(low, high int32) []int32 {
	lo, _ := slices.BinarySearch(s.values, low)
	hi, _ := slices.BinarySearch(s.values, high)
	if lo >= hi {
		return nil
	}
	drained := append([]int32(nil), s.values[lo:hi]...)
	s.values = slices.Delete(s.values, lo, hi)
	return drained
}

// Insert queues value for insertion (spec §6). If value is currently
// pending delete, the delete is cancelled instead (invariant I4) rather
// than queuing a redundant insert.
func (c *Column) Insert(value int32) {
	if c.pendingDeletes.removeOne(value) {
		return
	}
	c.pendingInserts.add(value)
}

// Remove queues value for deletion (spec §6). If value is currently
// pending insert, the insert is cancelled instead (invariant I4).
func (c *Column) Remove(value int32) {
	if c.pendingInserts.removeOne(value) {
		return
	}
	c.pendingDeletes.add(value)
}

// mergePendingUpdates drains every pending insert/delete whose value
// falls in [low, high) into the storage buffer (spec §4.5). It must run
// before the piece locator, because it changes size.
func (c *Column) mergePendingUpdates(low, high int32) {
	for _, x := range c.pendingInserts.drainRange(low, high) {
		if c.size < c.capacity {
			c.data[c.size] = x
			c.size++
		}
		// size == capacity: the insert is dropped after being drained from
		// the pending buffer. Open question in spec §7/§9 — callers cannot
		// currently distinguish "merged" from "dropped"; see DESIGN.md.
	}

	for _, x := range c.pendingDeletes.drainRange(low, high) {
		for i := 0; i < c.size; i++ {
			if c.data[i] == x {
				c.size--
				c.data[i] = c.data[c.size]
				// The tail swap can move an element across piece boundaries
				// established anywhere in the array, so every crack's
				// position/value guarantee (I1/I2) is invalidated globally.
				c.index.clear()
				break
			}
		}
	}
}
