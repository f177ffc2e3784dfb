package engine

import "time"

// RangeQuery answers a half-open count query [low, high) by cracking the
// column at both boundaries and returning the number of live elements
// between them (spec §4.4). It is the only operation that creates cracks
// or installs pending updates into the storage buffer.
//
// An empty or inverted range (low >= high) is answered without touching
// the buffer or the pending queues at all, per spec §7.
func (c *Column) RangeQuery(low, high int32) int {
	start := time.Now()

	if low >= high {
		c.recordQuery(0, 0, 0, 0)
		return 0
	}

	c.mergePendingUpdates(low, high)

	if c.size == 0 {
		c.recordQuery(0, 0, 0, 0)
		return 0
	}

	lLow, rLow, _, _ := c.index.findPiece(low, c.size)
	lHigh, rHigh, _, _ := c.index.findPiece(high, c.size)

	var posLow, posHigh, tuplesTouched, cracksCreated int

	if lLow == lHigh && rLow == rHigh {
		// Both boundaries fall in the same piece: one sweep handles both,
		// instead of the two full passes two twoWayPartition calls would
		// cost (spec §4.3).
		i1, i2 := threeWaySplit(c.data, lLow, rLow, low, high)
		tuplesTouched = rLow - lLow
		posLow, posHigh = i1, i2
	} else {
		posLow = twoWayPartition(c.data, lLow, rLow, low)
		tuplesTouched += rLow - lLow

		posHigh = twoWayPartition(c.data, lHigh, rHigh, high)
		tuplesTouched += rHigh - lHigh
	}

	if c.index.addCrack(low, posLow, c.size) {
		cracksCreated++
	}
	if c.index.addCrack(high, posHigh, c.size) {
		cracksCreated++
	}

	resultCount := posHigh - posLow
	elapsed := time.Since(start)
	c.recordQuery(tuplesTouched, cracksCreated, resultCount, float64(elapsed)/float64(time.Millisecond))
	return resultCount
}
