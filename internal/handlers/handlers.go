package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"licitacoes/internal/service"
	"licitacoes/models"
)

// Handler wires the HTTP surface to the services.
type Handler struct {
	Bids         *service.BidService
	Documents    *service.DocumentService
	Requirements *service.RequirementService
	Clients      *service.ClientService
}

func NewHandler(bids *service.BidService, documents *service.DocumentService,
	requirements *service.RequirementService, clients *service.ClientService) *Handler {
	return &Handler{
		Bids:         bids,
		Documents:    documents,
		Requirements: requirements,
		Clients:      clients,
	}
}

// PingHandler responds "ok" for server checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type errorResponse struct {
	Error  string           `json:"error"`
	Status models.BidStatus `json:"bidStatus,omitempty"`
}

// writeError maps the error taxonomy onto HTTP codes. Invalid-state replies
// carry the authoritative bid status so the UI can explain the refusal.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	code := http.StatusInternalServerError

	var stateErr *models.InvalidStateError
	switch {
	case errors.As(err, &stateErr):
		code = http.StatusConflict
		resp.Status = stateErr.Status
	case errors.Is(err, models.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, models.ErrStorage):
		code = http.StatusBadGateway
	}

	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &models.ValidationError{Reason: "invalid JSON body: " + err.Error()}
	}
	return nil
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams reads limit and offset with defaults and caps.
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 20, Offset: 0}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			params.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}
