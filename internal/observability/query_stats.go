// Package observability tracks per-column range-query frequency on a
// node, for operators deciding which columns are hot enough to justify
// extra replicas or a larger extra-capacity headroom.
package observability

import (
	"sort"
	"sync"
	"time"
)

// ColumnActivity holds aggregated range-query activity for one column.
type ColumnActivity struct {
	Column        string
	QueryCount    int64
	TuplesTouched int64
	CracksCreated int64
	LastSeen      time.Time
	LastLow       int32
	LastHigh      int32
}

// NodeMetrics tracks range-query frequency and cracking work per column
// on a single node.
type NodeMetrics struct {
	mu     sync.RWMutex
	byName map[string]*ColumnActivity
	window time.Duration
}

// NewNodeMetrics creates a new node metrics recorder. window bounds how
// long an idle column's activity is retained before Prune discards it.
func NewNodeMetrics(window time.Duration) *NodeMetrics {
	return &NodeMetrics{
		byName: make(map[string]*ColumnActivity),
		window: window,
	}
}

// RecordRangeQuery records one range_query call against column, along
// with the per-query cracking work it performed. O(1) and thread-safe.
func (m *NodeMetrics) RecordRangeQuery(column string, low, high int32, tuplesTouched, cracksCreated int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	activity, exists := m.byName[column]
	if !exists {
		activity = &ColumnActivity{Column: column}
		m.byName[column] = activity
	}

	activity.QueryCount++
	activity.TuplesTouched += int64(tuplesTouched)
	activity.CracksCreated += int64(cracksCreated)
	activity.LastSeen = time.Now()
	activity.LastLow = low
	activity.LastHigh = high
}

// TopColumns returns the n busiest columns by query count, descending.
func (m *NodeMetrics) TopColumns(n int) []ColumnActivity {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || len(m.byName) == 0 {
		return []ColumnActivity{}
	}

	activities := make([]ColumnActivity, 0, len(m.byName))
	for _, a := range m.byName {
		activities = append(activities, *a)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].QueryCount > activities[j].QueryCount
	})

	if n > len(activities) {
		n = len(activities)
	}
	return activities[:n]
}

// Activity returns the recorded activity for one column, if any.
func (m *NodeMetrics) Activity(column string) (ColumnActivity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.byName[column]
	if !ok {
		return ColumnActivity{}, false
	}
	return *a, true
}

// Prune removes columns whose activity has not been updated within the
// configured window. Call periodically (e.g. every few minutes).
func (m *NodeMetrics) Prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := time.Now().Add(-m.window)
	for name, a := range m.byName {
		if a.LastSeen.Before(threshold) {
			delete(m.byName, name)
		}
	}
}
