package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/arkilian/crackstore/internal/crackerr"
	"github.com/arkilian/crackstore/internal/node"
)

// HTTPNodeClient implements NodeClient over the node's JSON HTTP API
// (internal/api/http/node_handlers.go).
type HTTPNodeClient struct {
	httpClient *http.Client
}

// NewHTTPNodeClient constructs a NodeClient with the given per-request
// timeout.
func NewHTTPNodeClient(timeout time.Duration) *HTTPNodeClient {
	return &HTTPNodeClient{httpClient: &http.Client{Timeout: timeout}}
}

type loadColumnRequest struct {
	Data          []int32 `json:"data"`
	ExtraCapacity int     `json:"extra_capacity"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// LoadColumn sends the column's raw values to addr over HTTP. Large
// columns should go through LoadColumnFromStorage on the node instead;
// this path is for coordinator-initiated loads of modest size.
func (h *HTTPNodeClient) LoadColumn(ctx context.Context, addr, column string, data []int32, extraCapacity int) error {
	body, err := json.Marshal(loadColumnRequest{Data: data, ExtraCapacity: extraCapacity})
	if err != nil {
		return crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeBadInput, "marshal load-column request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, fmt.Sprintf("http://%s/columns/%s", addr, url.PathEscape(column)), bytes.NewReader(body))
	if err != nil {
		return crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeNodeUnreachable, "build load-column request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeNodeUnreachable, fmt.Sprintf("reach node at %s", addr), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeNodeError(resp)
	}
	return nil
}

// RangeQuery calls the node's range-query endpoint and decodes its
// {count, tuples_touched, cracks_used, query_time_ms} response.
func (h *HTTPNodeClient) RangeQuery(ctx context.Context, addr, column string, low, high int32) (*node.QueryResult, error) {
	u := fmt.Sprintf("http://%s/columns/%s/range_query?low=%d&high=%d", addr, url.PathEscape(column), low, high)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeNodeUnreachable, "build range-query request", err)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeNodeUnreachable, fmt.Sprintf("reach node at %s", addr), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeNodeError(resp)
	}

	var result node.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, crackerr.Wrap(crackerr.CategoryCoordinator, crackerr.CodeDecodeFailed, "decode range-query response", err)
	}
	return &result, nil
}

func decodeNodeError(resp *http.Response) error {
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Code == "" {
		return crackerr.New(crackerr.CategoryCoordinator, crackerr.CodeNodeUnreachable, fmt.Sprintf("node returned status %d", resp.StatusCode))
	}
	return crackerr.New(crackerr.CategoryNode, errResp.Code, errResp.Error)
}
