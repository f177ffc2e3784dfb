package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/arkilian/crackstore/internal/crackerr"
	"github.com/arkilian/crackstore/internal/engine"
	"github.com/arkilian/crackstore/internal/observability"
	"github.com/arkilian/crackstore/internal/storage"
)

// QueryResult is the node's response shape for a range query, matching
// spec §6's surrounding-surface contract: {count, tuples_touched,
// cracks_used, query_time_ms}.
type QueryResult struct {
	Count         int     `json:"count"`
	TuplesTouched int     `json:"tuples_touched"`
	CracksUsed    int     `json:"cracks_used"`
	QueryTimeMs   float64 `json:"query_time_ms"`
}

// columnEntry pairs one engine.Column with the mutex that serializes
// access to it. The engine itself is neither thread-safe nor
// suspending (spec §5); the node is the "external collaborator" that
// owns the lock.
type columnEntry struct {
	mu  sync.Mutex
	col *engine.Column
}

// Node holds every column currently resident on this process and
// forwards LoadColumn/RangeQuery/Insert/Remove calls into the
// corresponding engine.
type Node struct {
	id      string
	storage storage.ObjectStorage
	metrics *observability.NodeMetrics

	defaultExtraCapacity int

	mu      sync.RWMutex
	columns map[string]*columnEntry
}

// New constructs a Node. objStorage may be nil if the node never loads
// columns from object storage (LoadColumn is still usable with inline
// data). defaultExtraCapacity is used whenever a caller does not specify
// one explicitly; a negative value defers to the engine's own default.
// metrics may be nil to disable query-frequency tracking.
func New(id string, objStorage storage.ObjectStorage, defaultExtraCapacity int, metrics *observability.NodeMetrics) *Node {
	return &Node{
		id:                   id,
		storage:              objStorage,
		metrics:              metrics,
		defaultExtraCapacity: defaultExtraCapacity,
		columns:              make(map[string]*columnEntry),
	}
}

// ID returns the node's identifier, as registered with the coordinator.
func (n *Node) ID() string { return n.id }

// DefaultExtraCapacity returns the headroom callers should pass to
// LoadColumn when a request does not specify one explicitly.
func (n *Node) DefaultExtraCapacity() int { return n.defaultExtraCapacity }

// LoadColumn constructs a new engine for name from data, replacing any
// previous engine for that name (spec §6). A zero-row load is rejected
// rather than silently accepted as an empty column — a usability guard
// the engine itself does not impose (spec §7 treats non-positive size as
// a legitimate empty column), but one the load boundary should.
func (n *Node) LoadColumn(name string, data []int32, extraCapacity int) error {
	if len(data) == 0 {
		return crackerr.New(crackerr.CategoryNode, crackerr.CodeEmptyColumn, fmt.Sprintf("column %q: refusing to load zero rows", name))
	}

	col := engine.NewColumn(data, extraCapacity)

	n.mu.Lock()
	n.columns[name] = &columnEntry{col: col}
	n.mu.Unlock()

	return nil
}

// LoadColumnFromStorage downloads and decodes a snappy-compressed column
// payload from object storage and loads it under name, per SPEC_FULL's
// bulk-loading surface.
func (n *Node) LoadColumnFromStorage(ctx context.Context, name, objectPath string, extraCapacity int) error {
	if n.storage == nil {
		return crackerr.New(crackerr.CategoryNode, crackerr.CodeInvalidConfig, "node has no object storage configured")
	}

	tmp := filepath.Join(os.TempDir(), "crackstore-"+uuid.NewString())
	defer os.Remove(tmp)

	if err := n.storage.Download(ctx, objectPath, tmp); err != nil {
		return crackerr.Wrap(crackerr.CategoryNode, crackerr.CodeDownloadFailed, fmt.Sprintf("download column %q from %q", name, objectPath), err)
	}

	blob, err := os.ReadFile(tmp)
	if err != nil {
		return crackerr.Wrap(crackerr.CategoryNode, crackerr.CodeDownloadFailed, "read downloaded column payload", err)
	}

	data, err := DecodeColumn(blob)
	if err != nil {
		return err
	}

	return n.LoadColumn(name, data, extraCapacity)
}

// LoadColumnsFromStorage bulk-loads several columns from object storage
// concurrently, using the teacher's batch downloader to bound how many
// objects are in flight at once. It returns a per-column error map rather
// than aborting the whole batch on the first failure, since a bulk load
// spanning many columns should not let one bad object path take down the
// rest.
func (n *Node) LoadColumnsFromStorage(ctx context.Context, objectPaths map[string]string, extraCapacity int) (map[string]error, error) {
	if n.storage == nil {
		return nil, crackerr.New(crackerr.CategoryNode, crackerr.CodeInvalidConfig, "node has no object storage configured")
	}
	if len(objectPaths) == 0 {
		return map[string]error{}, nil
	}

	names := make([]string, 0, len(objectPaths))
	paths := make([]string, 0, len(objectPaths))
	for name, path := range objectPaths {
		names = append(names, name)
		paths = append(paths, path)
	}

	downloader := storage.NewBatchDownloader(n.storage, 8, os.TempDir())
	batch, err := downloader.Download(ctx, &storage.BatchRequest{ObjectPaths: paths})
	if err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryNode, crackerr.CodeDownloadFailed, "batch download columns", err)
	}

	errs := make(map[string]error, len(names))
	for i, name := range names {
		path := paths[i]

		if dlErr, failed := batch.Errors[path]; failed {
			errs[name] = crackerr.Wrap(crackerr.CategoryNode, crackerr.CodeDownloadFailed, fmt.Sprintf("download column %q from %q", name, path), dlErr)
			continue
		}

		blob, err := os.ReadFile(batch.LocalPaths[path])
		if err != nil {
			errs[name] = crackerr.Wrap(crackerr.CategoryNode, crackerr.CodeDownloadFailed, "read downloaded column payload", err)
			continue
		}
		os.Remove(batch.LocalPaths[path])

		data, err := DecodeColumn(blob)
		if err != nil {
			errs[name] = err
			continue
		}

		if err := n.LoadColumn(name, data, extraCapacity); err != nil {
			errs[name] = err
		}
	}

	return errs, nil
}

func (n *Node) lookup(name string) (*columnEntry, error) {
	n.mu.RLock()
	entry, ok := n.columns[name]
	n.mu.RUnlock()
	if !ok {
		return nil, crackerr.New(crackerr.CategoryNode, crackerr.CodeColumnNotFound, fmt.Sprintf("column %q is not loaded on this node", name))
	}
	return entry, nil
}

// RangeQuery forwards to the named engine and reports its full result
// shape, including the per-query statistics the coordinator aggregates.
func (n *Node) RangeQuery(name string, low, high int32) (*QueryResult, error) {
	entry, err := n.lookup(name)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	count := entry.col.RangeQuery(low, high)
	stats := entry.col.GetStats()
	entry.mu.Unlock()

	if n.metrics != nil {
		n.metrics.RecordRangeQuery(name, low, high, stats.LastTuplesTouched, stats.LastCracksCreated)
	}

	return &QueryResult{
		Count:         count,
		TuplesTouched: stats.LastTuplesTouched,
		CracksUsed:    entry.crackCountLocked(),
		QueryTimeMs:   stats.LastQueryTimeMs,
	}, nil
}

func (e *columnEntry) crackCountLocked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.col.CrackCount()
}

// Insert queues value for insertion on column name (spec §6). It
// surfaces capacity exhaustion as a distinct error rather than letting
// the engine drop the update silently at merge time — the production
// refinement spec §7's open question calls for.
func (n *Node) Insert(name string, value int32) error {
	entry, err := n.lookup(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.col.Size()+entry.col.PendingInsertCount() >= entry.col.Capacity() {
		return crackerr.New(crackerr.CategoryNode, crackerr.CodeCapacityExceeded,
			fmt.Sprintf("column %q: capacity %d exhausted, insert rejected", name, entry.col.Capacity()))
	}

	entry.col.Insert(value)
	return nil
}

// Remove queues value for deletion on column name (spec §6).
func (n *Node) Remove(name string, value int32) error {
	entry, err := n.lookup(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.col.Remove(value)
	return nil
}

// GetStats returns the named column's statistics snapshot.
func (n *Node) GetStats(name string) (engine.Stats, error) {
	entry, err := n.lookup(name)
	if err != nil {
		return engine.Stats{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.col.GetStats(), nil
}

// ResetStats zeroes the named column's statistics.
func (n *Node) ResetStats(name string) error {
	entry, err := n.lookup(name)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.col.ResetStats()
	return nil
}

// ListColumns returns the names of every column currently loaded on this
// node.
func (n *Node) ListColumns() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.columns))
	for name := range n.columns {
		names = append(names, name)
	}
	return names
}

// Metrics exposes the node's query-frequency recorder, if one was
// configured.
func (n *Node) Metrics() *observability.NodeMetrics { return n.metrics }
