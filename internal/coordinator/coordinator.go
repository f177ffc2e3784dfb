package coordinator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arkilian/crackstore/internal/crackerr"
	"github.com/arkilian/crackstore/internal/node"
)

// NodeClient is how the coordinator talks to a node. The production
// implementation speaks JSON over HTTP (httpclient.go); tests substitute
// an in-memory fake.
type NodeClient interface {
	LoadColumn(ctx context.Context, addr, column string, data []int32, extraCapacity int) error
	RangeQuery(ctx context.Context, addr, column string, low, high int32) (*node.QueryResult, error)
}

// AggregateResult is the coordinator's response to a fanned-out range
// query: spec §6 asks only for a sum of counts; SPEC_FULL also rolls up
// per-node cracking work so operators can see whether a query is still
// cold cluster-wide.
type AggregateResult struct {
	Count           int
	TuplesTouched   int
	CracksUsed      int
	QueryTimeMs     float64 // slowest node in the fan-out
	NodesQueried    int
	NodesWithColumn int
	NodeErrors      map[string]string // nodeID -> error, excludes "column not loaded"
}

// Coordinator routes column placement by hashing the column name and fans
// range queries out to every registered node.
type Coordinator struct {
	catalog       *Catalog
	client        NodeClient
	fanoutTimeout time.Duration
	concurrency   int
}

// New constructs a Coordinator.
func New(catalog *Catalog, client NodeClient, fanoutTimeout time.Duration, concurrency int) *Coordinator {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Coordinator{catalog: catalog, client: client, fanoutTimeout: fanoutTimeout, concurrency: concurrency}
}

// LoadColumn routes column to one node by hashing its name, sends it there,
// and records the placement so future diagnostics can find it directly.
func (c *Coordinator) LoadColumn(ctx context.Context, column string, data []int32, extraCapacity int) (NodeRecord, error) {
	nodes, err := c.catalog.ListNodes(ctx)
	if err != nil {
		return NodeRecord{}, err
	}

	target, err := RouteColumn(column, nodes)
	if err != nil {
		return NodeRecord{}, err
	}

	if err := c.client.LoadColumn(ctx, target.Addr, column, data, extraCapacity); err != nil {
		return NodeRecord{}, crackerr.WrapCoordinatorError(crackerr.CodeNodeUnreachable, "load column on routed node", err)
	}

	if err := c.catalog.AssignColumn(ctx, column, target.ID); err != nil {
		return target, err
	}
	return target, nil
}

// RangeQuery fans a range query out to every registered node and sums
// their results, per spec §6: "A coordinator fans a query out to all
// registered nodes and sums counts." Nodes that don't hold the column
// are silently excluded from the sum, not treated as errors.
func (c *Coordinator) RangeQuery(ctx context.Context, column string, low, high int32) (*AggregateResult, error) {
	nodes, err := c.catalog.ListNodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, crackerr.New(crackerr.CategoryCoordinator, crackerr.CodeNoNodesRegistered, "no nodes registered")
	}

	ctx, cancel := context.WithTimeout(ctx, c.fanoutTimeout)
	defer cancel()

	var mu sync.Mutex
	result := &AggregateResult{NodeErrors: make(map[string]string)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, n := range nodes {
		n := n
		g.Go(func() error {
			res, err := c.client.RangeQuery(gctx, n.Addr, column, low, high)

			mu.Lock()
			defer mu.Unlock()
			result.NodesQueried++

			if err != nil {
				if crackerr.Code(err) == crackerr.CodeColumnNotFound {
					return nil
				}
				result.NodeErrors[n.ID] = err.Error()
				return nil
			}

			result.NodesWithColumn++
			result.Count += res.Count
			result.TuplesTouched += res.TuplesTouched
			result.CracksUsed += res.CracksUsed
			if res.QueryTimeMs > result.QueryTimeMs {
				result.QueryTimeMs = res.QueryTimeMs
			}
			return nil
		})
	}

	// errgroup.WithContext's returned error is always nil here: every
	// goroutine reports node failures into NodeErrors instead of
	// returning an error, so the fan-out itself never aborts early.
	_ = g.Wait()

	return result, nil
}

// ListNodes exposes the catalog's node registry.
func (c *Coordinator) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	return c.catalog.ListNodes(ctx)
}

// RegisterNode adds or updates a node in the catalog.
func (c *Coordinator) RegisterNode(ctx context.Context, id, addr string) error {
	return c.catalog.RegisterNode(ctx, id, addr)
}
