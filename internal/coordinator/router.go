package coordinator

import (
	"github.com/spaolacci/murmur3"

	"github.com/arkilian/crackstore/internal/crackerr"
)

// RouteColumn deterministically picks one of nodes for column, by
// hashing the column name. Given the same node set, the same column
// always routes to the same node, so a fresh coordinator with no catalog
// history still agrees with itself query to query.
func RouteColumn(column string, nodes []NodeRecord) (NodeRecord, error) {
	if len(nodes) == 0 {
		return NodeRecord{}, crackerr.New(crackerr.CategoryCoordinator, crackerr.CodeNoNodesRegistered, "no nodes registered")
	}

	h := murmur3.Sum32([]byte(column))
	return nodes[h%uint32(len(nodes))], nil
}
