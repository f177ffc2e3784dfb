package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/crackstore/internal/coordinator"
	"github.com/arkilian/crackstore/internal/node"
)

type fakeNodeClient struct {
	results map[string]*node.QueryResult
}

func (f *fakeNodeClient) LoadColumn(ctx context.Context, addr, column string, data []int32, extraCapacity int) error {
	return nil
}

func (f *fakeNodeClient) RangeQuery(ctx context.Context, addr, column string, low, high int32) (*node.QueryResult, error) {
	if res, ok := f.results[addr]; ok {
		return res, nil
	}
	return &node.QueryResult{}, nil
}

func newTestCoordinatorMux(t *testing.T) *http.ServeMux {
	t.Helper()
	dir := t.TempDir()
	cat, err := coordinator.NewCatalog(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	require.NoError(t, cat.RegisterNode(context.Background(), "node-1", "n1"))

	client := &fakeNodeClient{results: map[string]*node.QueryResult{"n1": {Count: 3, TuplesTouched: 5}}}
	co := coordinator.New(cat, client, time.Second, 4)

	mux := http.NewServeMux()
	NewCoordinatorHandlers(co).Register(mux)
	return mux
}

func TestCoordinatorRegisterThenListNodesOverHTTP(t *testing.T) {
	mux := newTestCoordinatorMux(t)

	body, err := json.Marshal(map[string]string{"id": "node-2", "addr": "n2"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/nodes", bytes.NewReader(body))
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/nodes", nil)
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var nodes []coordinator.NodeRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&nodes))
	assert.Len(t, nodes, 2)
}

func TestCoordinatorRangeQueryOverHTTP(t *testing.T) {
	mux := newTestCoordinatorMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/columns/age/range_query?low=0&high=10", nil)
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result coordinator.AggregateResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.Equal(t, 3, result.Count)
}
