package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"licitacoes/db"
	"licitacoes/internal/service"
	"licitacoes/models"
)

// CreateBidHandler handles POST /api/licitacoes
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	var draft service.BidDraft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.Bids.Create(r.Context(), draft)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

// GetBidsHandler handles GET /api/licitacoes with status/modality filters.
func (h *Handler) GetBidsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)

	filter := db.BidFilter{Limit: params.Limit, Offset: params.Offset}
	for _, v := range r.URL.Query()["status"] {
		if s := models.BidStatus(v); s.Valid() {
			filter.Statuses = append(filter.Statuses, s)
		}
	}
	for _, v := range r.URL.Query()["modality"] {
		if m := models.Modality(v); m.Valid() {
			filter.Modalities = append(filter.Modalities, m)
		}
	}

	bids, err := h.Bids.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// GetBidHandler handles GET /api/licitacoes/{bidId}
func (h *Handler) GetBidHandler(w http.ResponseWriter, r *http.Request) {
	bid, err := h.Bids.Get(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// EditBidHandler handles PATCH /api/licitacoes/{bidId}. Status never changes
// through this path.
func (h *Handler) EditBidHandler(w http.ResponseWriter, r *http.Request) {
	var patch service.BidPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.Bids.Update(r.Context(), chi.URLParam(r, "bidId"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// ConfirmBidHandler handles POST /api/licitacoes/{bidId}/confirm
func (h *Handler) ConfirmBidHandler(w http.ResponseWriter, r *http.Request) {
	bid, err := h.Bids.Confirm(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// CloseBidHandler handles POST /api/licitacoes/{bidId}/close
func (h *Handler) CloseBidHandler(w http.ResponseWriter, r *http.Request) {
	var outcome models.ClosingOutcome
	if err := decodeJSON(w, r, &outcome); err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.Bids.Close(r.Context(), chi.URLParam(r, "bidId"), outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

// AbortBidHandler handles POST /api/licitacoes/{bidId}/abort with one of the
// non-CLOSED terminal statuses.
func (h *Handler) AbortBidHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Status models.BidStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.Bids.Abort(r.Context(), chi.URLParam(r, "bidId"), input.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}
