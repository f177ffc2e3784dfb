// Package coordinator fans a range query out across every node that
// holds a piece of the queried column and aggregates the results, per
// spec §6's out-of-core coordinator surface.
package coordinator

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arkilian/crackstore/internal/crackerr"
)

// NodeRecord is one node as tracked by the catalog.
type NodeRecord struct {
	ID           string
	Addr         string
	RegisteredAt time.Time
}

// Catalog persists node registrations and column-to-node placement
// decisions in sqlite, grounded on the reference distribution layer's
// manifest pattern but scaled down to the two small tables this domain
// needs (nodes and column_placement).
type Catalog struct {
	db *sql.DB
	mu sync.Mutex
}

// NewCatalog opens (creating if necessary) a sqlite-backed catalog at
// dbPath.
func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, "open catalog database", err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			addr TEXT NOT NULL,
			registered_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS column_placement (
			column_name TEXT PRIMARY KEY,
			node_id TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, "initialize catalog schema", err)
		}
	}
	return nil
}

// RegisterNode records a node's address, replacing any previous record
// with the same ID.
func (c *Catalog) RegisterNode(ctx context.Context, id, addr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO nodes (id, addr, registered_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET addr = excluded.addr, registered_at = excluded.registered_at`,
		id, addr, time.Now().Unix())
	if err != nil {
		return crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, fmt.Sprintf("register node %q", id), err)
	}
	return nil
}

// ListNodes returns every registered node.
func (c *Catalog) ListNodes(ctx context.Context) ([]NodeRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, addr, registered_at FROM nodes ORDER BY id`)
	if err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, "list nodes", err)
	}
	defer rows.Close()

	var out []NodeRecord
	for rows.Next() {
		var rec NodeRecord
		var registeredAt int64
		if err := rows.Scan(&rec.ID, &rec.Addr, &registeredAt); err != nil {
			return nil, crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, "scan node row", err)
		}
		rec.RegisteredAt = time.Unix(registeredAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AssignColumn records which node a column was routed to, for
// ResolveColumn to read back. Coordinator.RangeQuery does not consult
// it: range queries still fan out to every registered node.
func (c *Catalog) AssignColumn(ctx context.Context, column, nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.ExecContext(ctx,
		`INSERT INTO column_placement (column_name, node_id) VALUES (?, ?)
		 ON CONFLICT(column_name) DO UPDATE SET node_id = excluded.node_id`,
		column, nodeID)
	if err != nil {
		return crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, fmt.Sprintf("assign column %q", column), err)
	}
	return nil
}

// ResolveColumn returns the node a column was previously assigned to.
func (c *Catalog) ResolveColumn(ctx context.Context, column string) (string, error) {
	var nodeID string
	err := c.db.QueryRowContext(ctx, `SELECT node_id FROM column_placement WHERE column_name = ?`, column).Scan(&nodeID)
	if err == sql.ErrNoRows {
		return "", crackerr.New(crackerr.CategoryCoordinator, crackerr.CodeColumnNotFound, fmt.Sprintf("column %q has no recorded placement", column))
	}
	if err != nil {
		return "", crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeCatalogFailed, "resolve column placement", err)
	}
	return nodeID, nil
}

// Close closes the catalog's database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
