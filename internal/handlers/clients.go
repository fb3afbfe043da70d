package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateClientHandler handles POST /api/clientes
func (h *Handler) CreateClientHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		CorporateName string `json:"corporateName"`
		CNPJ          string `json:"cnpj"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	client, err := h.Clients.Create(r.Context(), input.CorporateName, input.CNPJ)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// GetClientHandler handles GET /api/clientes/{clientId}
func (h *Handler) GetClientHandler(w http.ResponseWriter, r *http.Request) {
	client, err := h.Clients.Get(r.Context(), chi.URLParam(r, "clientId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// GetClientsHandler handles GET /api/clientes
func (h *Handler) GetClientsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)
	clients, err := h.Clients.List(r.Context(), params.Limit, params.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}
