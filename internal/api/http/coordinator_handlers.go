package http

import (
	"encoding/json"
	"net/http"

	"github.com/arkilian/crackstore/internal/coordinator"
	"github.com/arkilian/crackstore/internal/crackerr"
)

// CoordinatorHandlers exposes a Coordinator's LoadColumn/RangeQuery and
// node registry over HTTP.
type CoordinatorHandlers struct {
	co *coordinator.Coordinator
}

// NewCoordinatorHandlers wraps co for HTTP serving.
func NewCoordinatorHandlers(co *coordinator.Coordinator) *CoordinatorHandlers {
	return &CoordinatorHandlers{co: co}
}

// Register attaches every coordinator route to mux under DefaultMiddleware.
func (h *CoordinatorHandlers) Register(mux *http.ServeMux) {
	mux.Handle("PUT /columns/{name}", DefaultMiddleware()(http.HandlerFunc(h.handleLoadColumn)))
	mux.Handle("GET /columns/{name}/range_query", DefaultMiddleware()(http.HandlerFunc(h.handleRangeQuery)))
	mux.Handle("POST /nodes", DefaultMiddleware()(http.HandlerFunc(h.handleRegisterNode)))
	mux.Handle("GET /nodes", DefaultMiddleware()(http.HandlerFunc(h.handleListNodes)))
}

func (h *CoordinatorHandlers) handleLoadColumn(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	var body struct {
		Data          []int32 `json:"data"`
		ExtraCapacity int     `json:"extra_capacity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	target, err := h.co.LoadColumn(r.Context(), name, body.Data, body.ExtraCapacity)
	writeCoordinatorResult(w, requestID, target, err)
}

func (h *CoordinatorHandlers) handleRangeQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	requestID := GetRequestID(r.Context())

	low, high, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	result, err := h.co.RangeQuery(r.Context(), name, low, high)
	writeCoordinatorResult(w, requestID, result, err)
}

func (h *CoordinatorHandlers) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var body struct {
		ID   string `json:"id"`
		Addr string `json:"addr"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", requestID)
		return
	}

	err := h.co.RegisterNode(r.Context(), body.ID, body.Addr)
	writeCoordinatorResult(w, requestID, nil, err)
}

func (h *CoordinatorHandlers) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.co.ListNodes(r.Context())
	writeCoordinatorResult(w, GetRequestID(r.Context()), nodes, err)
}

func writeCoordinatorResult(w http.ResponseWriter, requestID string, payload interface{}, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		switch crackerr.Code(err) {
		case crackerr.CodeColumnNotFound, crackerr.CodeNoNodesRegistered:
			status = http.StatusNotFound
		case crackerr.CodeBadInput:
			status = http.StatusBadRequest
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(struct {
			Error     string `json:"error"`
			Code      string `json:"code"`
			RequestID string `json:"request_id,omitempty"`
		}{Error: err.Error(), Code: crackerr.Code(err), RequestID: requestID})
		return
	}

	if payload == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
