package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"licitacoes/internal/service"
	"licitacoes/models"
)

// UploadBidDocumentHandler handles POST /api/licitacoes/{bidId}/documentos
func (h *Handler) UploadBidDocumentHandler(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, models.ScopeBid, chi.URLParam(r, "bidId"))
}

// UploadClientDocumentHandler handles POST /api/clientes/{clientId}/documentos
func (h *Handler) UploadClientDocumentHandler(w http.ResponseWriter, r *http.Request) {
	h.uploadDocument(w, r, models.ScopeClient, chi.URLParam(r, "clientId"))
}

func (h *Handler) uploadDocument(w http.ResponseWriter, r *http.Request, scope models.DocumentScope, ownerID string) {
	// Bound the whole request at the configured file ceiling plus form
	// overhead; ParseMultipartForm alone never rejects oversized bodies.
	r.Body = http.MaxBytesReader(w, r.Body, h.Documents.MaxUploadBytes()+1<<20)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeError(w, &models.ValidationError{Reason: "invalid or oversized multipart form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, &models.ValidationError{Reason: "no file provided"})
		return
	}
	defer file.Close()

	typeID, err := strconv.Atoi(r.FormValue("type_id"))
	if err != nil {
		writeError(w, &models.ValidationError{Reason: "type_id is required"})
		return
	}

	var expiresAt *time.Time
	if v := r.FormValue("expires_at"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, &models.ValidationError{Reason: "expires_at must be YYYY-MM-DD"})
			return
		}
		expiresAt = &t
	}

	result, err := h.Documents.Upload(r.Context(), service.UploadInput{
		Scope:     scope,
		OwnerID:   ownerID,
		FileName:  header.Filename,
		Size:      header.Size,
		Content:   file,
		TypeID:    typeID,
		ExpiresAt: expiresAt,
		Notes:     r.FormValue("notes"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetBidDocumentsHandler handles GET /api/licitacoes/{bidId}/documentos
func (h *Handler) GetBidDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Documents.List(r.Context(), models.ScopeBid, chi.URLParam(r, "bidId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// GetClientDocumentsHandler handles GET /api/clientes/{clientId}/documentos
func (h *Handler) GetClientDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Documents.List(r.Context(), models.ScopeClient, chi.URLParam(r, "clientId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// DeleteDocumentHandler handles DELETE /api/documentos/{documentId}
func (h *Handler) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Documents.Delete(r.Context(), chi.URLParam(r, "documentId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EditDocumentHandler handles PATCH /api/documentos/{documentId} for the
// mutable fields (expiry, notes).
func (h *Handler) EditDocumentHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ExpiresAt *time.Time `json:"expiresAt"`
		Notes     string     `json:"notes"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	doc, err := h.Documents.UpdateMeta(r.Context(), chi.URLParam(r, "documentId"), input.ExpiresAt, input.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// GetDocumentURLHandler handles GET /api/documentos/{documentId}/url
func (h *Handler) GetDocumentURLHandler(w http.ResponseWriter, r *http.Request) {
	url, err := h.Documents.SignedURL(r.Context(), chi.URLParam(r, "documentId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// GetDocumentTypesHandler handles GET /api/tipos-documento
func (h *Handler) GetDocumentTypesHandler(w http.ResponseWriter, r *http.Request) {
	types, err := h.Documents.ListTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}
