package engine

// NaiveRangeCount counts elements x in data with low <= x < high by a
// plain linear scan. It exists only as an oracle for tests (law L1,
// "every RangeQuery result matches a full scan of the same logical
// contents") and is never called from the query path itself.
func NaiveRangeCount(data []int32, low, high int32) int {
	count := 0
	for _, x := range data {
		if x >= low && x < high {
			count++
		}
	}
	return count
}
