package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/arkilian/crackstore/internal/crackerr"
	"github.com/arkilian/crackstore/internal/node"
)

// NodeHandlers exposes a Node's LoadColumn/RangeQuery/Insert/Remove/stats
// operations as the JSON HTTP API the coordinator and CLI speak (spec §6:
// "the wire format ... [is] not part of this core specification" —
// JSON-over-HTTP is this distribution's choice).
type NodeHandlers struct {
	n *node.Node
}

// NewNodeHandlers wraps n for HTTP serving.
func NewNodeHandlers(n *node.Node) *NodeHandlers {
	return &NodeHandlers{n: n}
}

// Register attaches every node route to mux under DefaultMiddleware.
func (h *NodeHandlers) Register(mux *http.ServeMux) {
	mux.Handle("PUT /columns/{name}", DefaultMiddleware()(http.HandlerFunc(h.handleLoadColumn)))
	mux.Handle("GET /columns/{name}/range_query", DefaultMiddleware()(http.HandlerFunc(h.handleRangeQuery)))
	mux.Handle("POST /columns/{name}/insert", DefaultMiddleware()(http.HandlerFunc(h.handleInsert)))
	mux.Handle("POST /columns/{name}/remove", DefaultMiddleware()(http.HandlerFunc(h.handleRemove)))
	mux.Handle("GET /columns/{name}/stats", DefaultMiddleware()(http.HandlerFunc(h.handleGetStats)))
	mux.Handle("POST /columns/{name}/stats/reset", DefaultMiddleware()(http.HandlerFunc(h.handleResetStats)))
	mux.Handle("GET /columns", DefaultMiddleware()(http.HandlerFunc(h.handleListColumns)))
	mux.Handle("POST /columns/bulk_load", DefaultMiddleware()(http.HandlerFunc(h.handleBulkLoad)))
}

type loadColumnBody struct {
	Data          []int32 `json:"data"`
	ObjectPath    string  `json:"object_path"`
	ExtraCapacity int     `json:"extra_capacity"`
}

func (h *NodeHandlers) handleLoadColumn(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	var body loadColumnBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	extraCapacity := body.ExtraCapacity
	if extraCapacity == 0 {
		extraCapacity = h.n.DefaultExtraCapacity()
	}

	var err error
	if body.ObjectPath != "" {
		err = h.n.LoadColumnFromStorage(r.Context(), name, body.ObjectPath, extraCapacity)
	} else {
		err = h.n.LoadColumn(name, body.Data, extraCapacity)
	}

	writeNodeResult(w, requestID, nil, err)
}

func (h *NodeHandlers) handleRangeQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	low, high, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	result, err := h.n.RangeQuery(name, low, high)
	writeNodeResult(w, requestID, result, err)
}

func (h *NodeHandlers) handleInsert(w http.ResponseWriter, r *http.Request) {
	h.handleMutate(w, r, h.n.Insert)
}

func (h *NodeHandlers) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.handleMutate(w, r, h.n.Remove)
}

func (h *NodeHandlers) handleMutate(w http.ResponseWriter, r *http.Request, op func(name string, value int32) error) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	var body struct {
		Value int32 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	err := op(name, body.Value)
	writeNodeResult(w, requestID, nil, err)
}

func (h *NodeHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	stats, err := h.n.GetStats(name)
	writeNodeResult(w, requestID, stats, err)
}

func (h *NodeHandlers) handleResetStats(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	err := h.n.ResetStats(name)
	writeNodeResult(w, requestID, nil, err)
}

func (h *NodeHandlers) handleBulkLoad(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var body struct {
		Paths         map[string]string `json:"paths"`
		ExtraCapacity int               `json:"extra_capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	extraCapacity := body.ExtraCapacity
	if extraCapacity == 0 {
		extraCapacity = h.n.DefaultExtraCapacity()
	}

	errs, err := h.n.LoadColumnsFromStorage(r.Context(), body.Paths, extraCapacity)
	if err != nil {
		writeNodeResult(w, requestID, nil, err)
		return
	}

	failed := make(map[string]string, len(errs))
	for name, colErr := range errs {
		failed[name] = colErr.Error()
	}
	writeJSON(w, http.StatusOK, map[string]any{"failed": failed, "loaded": len(body.Paths) - len(failed)})
}

func (h *NodeHandlers) handleListColumns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"columns": h.n.ListColumns()})
}

func parseRange(r *http.Request) (int32, int32, error) {
	low, err := strconv.ParseInt(r.URL.Query().Get("low"), 10, 32)
	if err != nil {
		return 0, 0, crackerr.New(crackerr.CategoryNode, crackerr.CodeBadInput, "low must be an integer")
	}
	high, err := strconv.ParseInt(r.URL.Query().Get("high"), 10, 32)
	if err != nil {
		return 0, 0, crackerr.New(crackerr.CategoryNode, crackerr.CodeBadInput, "high must be an integer")
	}
	return int32(low), int32(high), nil
}

// writeNodeResult writes either a JSON error (with the crackstore error
// code preserved for clients that branch on it) or the success payload.
func writeNodeResult(w http.ResponseWriter, requestID string, payload interface{}, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		code := crackerr.Code(err)
		switch code {
		case crackerr.CodeColumnNotFound:
			status = http.StatusNotFound
		case crackerr.CodeBadInput, crackerr.CodeEmptyColumn, crackerr.CodeInvalidRange:
			status = http.StatusBadRequest
		case crackerr.CodeCapacityExceeded:
			status = http.StatusConflict
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(struct {
			Error     string `json:"error"`
			Code      string `json:"code"`
			RequestID string `json:"request_id,omitempty"`
		}{Error: err.Error(), Code: code, RequestID: requestID})
		return
	}

	if payload == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
