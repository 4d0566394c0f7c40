package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/arkilian/vaultquery/internal/codec"
	"github.com/arkilian/vaultquery/internal/vault"
	"github.com/arkilian/vaultquery/pkg/criteria"
	"github.com/arkilian/vaultquery/pkg/types"
)

// MaxRequestBytes bounds the size of a query request body.
const MaxRequestBytes = 1 << 20

// QueryRequest is the body of POST /v1/vault/query. Every field is optional.
type QueryRequest struct {
	Criteria     json.RawMessage `json:"criteria,omitempty"`
	PageNumber   *int            `json:"page_number,omitempty"`
	PageSize     *int            `json:"page_size,omitempty"`
	Sort         types.Sort      `json:"sort"`
	ContractType string          `json:"contract_type,omitempty"`
}

// QueryResponse is one page of states with payloads rendered as JSON.
type QueryResponse struct {
	States               []types.StateAndRef[json.RawMessage] `json:"states"`
	Metadata             []types.StateMetadata                `json:"states_metadata"`
	Paging               types.PageSpecification              `json:"paging"`
	TotalStatesAvailable int64                                `json:"total_states_available"`
	RequestID            string                               `json:"request_id"`
}

// QueryHandler handles POST /v1/vault/query requests.
type QueryHandler struct {
	svc             *vault.Service
	defaultPageSize int
	logger          *slog.Logger
}

// NewQueryHandler creates a query handler. States are decoded with the
// snappy JSON codec and returned verbatim.
func NewQueryHandler(svc *vault.Service, defaultPageSize int, logger *slog.Logger) *QueryHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = types.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryHandler{svc: svc, defaultPageSize: defaultPageSize, logger: logger}
}

// ServeHTTP handles the query HTTP request.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "", requestID)
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes)).Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, fmt.Sprintf("invalid request body: %v", err), "", requestID)
		return
	}

	var expr criteria.Expression
	if len(req.Criteria) > 0 && string(req.Criteria) != "null" {
		var err error
		if expr, err = criteria.Decode(req.Criteria); err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), "", requestID)
			return
		}
	}

	page := types.PageSpecification{Number: types.DefaultPageNumber, Size: h.defaultPageSize}
	if req.PageNumber != nil {
		page.Number = *req.PageNumber
	}
	if req.PageSize != nil {
		page.Size = *req.PageSize
	}

	result, err := vault.QueryBy[json.RawMessage](r.Context(), h.svc, codec.SnappyJSON[json.RawMessage]{},
		expr, page, req.Sort, req.ContractType)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, err.Error(), code, requestID)
		return
	}

	writeJSON(w, http.StatusOK, QueryResponse{
		States:               result.States,
		Metadata:             result.Metadata,
		Paging:               result.Paging,
		TotalStatesAvailable: result.TotalStatesAvailable,
		RequestID:            requestID,
	})
}
