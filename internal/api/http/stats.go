package http

import (
	"net/http"
	"strconv"

	"github.com/arkilian/vaultquery/internal/observability"
	"github.com/arkilian/vaultquery/internal/storage"
	"github.com/arkilian/vaultquery/internal/typeindex"
	"github.com/arkilian/vaultquery/internal/vault"
)

const defaultTopN = 10

// SessionStatter reports session usage of the underlying store.
type SessionStatter interface {
	Stats() storage.StoreStats
}

// StatsResponse is the body of GET /v1/vault/stats.
type StatsResponse struct {
	Queries   observability.Snapshot `json:"queries"`
	Sessions  *storage.StoreStats    `json:"sessions,omitempty"`
	RequestID string                 `json:"request_id"`
}

// StatsHandler handles GET /v1/vault/stats.
type StatsHandler struct {
	stats    *observability.QueryStats
	sessions SessionStatter
}

// NewStatsHandler creates a stats handler. sessions may be nil.
func NewStatsHandler(stats *observability.QueryStats, sessions SessionStatter) *StatsHandler {
	return &StatsHandler{stats: stats, sessions: sessions}
}

// ServeHTTP returns the top predicates, optionally limited by ?top=N.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", requestID)
		return
	}

	top := defaultTopN
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer", "", requestID)
			return
		}
		top = n
	}

	h.stats.Prune()
	resp := StatsResponse{Queries: h.stats.Snapshot(top), RequestID: requestID}
	if h.sessions != nil {
		s := h.sessions.Stats()
		resp.Sessions = &s
	}
	writeJSON(w, http.StatusOK, resp)
}

// TypesResponse is the body of GET /v1/vault/types.
type TypesResponse struct {
	Index     typeindex.Index `json:"index"`
	RequestID string          `json:"request_id"`
}

// TypesHandler handles GET /v1/vault/types by resolving the type index
// against the stored contract types.
type TypesHandler struct {
	svc *vault.Service
}

// NewTypesHandler creates a types handler.
func NewTypesHandler(svc *vault.Service) *TypesHandler {
	return &TypesHandler{svc: svc}
}

func (h *TypesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", requestID)
		return
	}

	idx, err := h.svc.ResolveTypes(r.Context())
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, err.Error(), code, requestID)
		return
	}
	writeJSON(w, http.StatusOK, TypesResponse{Index: idx, RequestID: requestID})
}
