package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"licitacoes/internal/service"
)

// CreateRequirementHandler handles POST /api/licitacoes/{bidId}/requisitos
func (h *Handler) CreateRequirementHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Description string `json:"description"`
		Notes       string `json:"notes"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	req, err := h.Requirements.Create(r.Context(), chi.URLParam(r, "bidId"), input.Description, input.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// GetRequirementsHandler handles GET /api/licitacoes/{bidId}/requisitos.
// Read access is never gated on bid status.
func (h *Handler) GetRequirementsHandler(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Requirements.List(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// EditRequirementHandler handles PATCH /api/requisitos/{requirementId}
func (h *Handler) EditRequirementHandler(w http.ResponseWriter, r *http.Request) {
	var patch service.RequirementPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	req, err := h.Requirements.Update(r.Context(), chi.URLParam(r, "requirementId"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// DeleteRequirementHandler handles DELETE /api/requisitos/{requirementId}
func (h *Handler) DeleteRequirementHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Requirements.Delete(r.Context(), chi.URLParam(r, "requirementId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
