package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xtxerr/marketstats/internal/manager"
)

type createParticipantRequest struct {
	Name               string  `json:"name"`
	Identification     string  `json:"identification"`
	IdentificationType string  `json:"identification_type"`
	Description        string  `json:"description"`
	MarketIDs          []int64 `json:"market_ids"`
}

func (h *Handler) listParticipants(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusOK, h.mgr.Participants.List(r.Context()), viewParticipants)
}

func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondResult(w, http.StatusOK, h.mgr.Participants.Get(r.Context(), id), viewParticipant)
}

func (h *Handler) listParticipantsByMarket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	respondResult(w, http.StatusOK, h.mgr.Participants.ListByMarket(r.Context(), code), viewParticipants)
}

func (h *Handler) createParticipant(w http.ResponseWriter, r *http.Request) {
	var req createParticipantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.mgr.Participants.Create(r.Context(), manager.ParticipantInput{
		Name:               req.Name,
		Identification:     req.Identification,
		IdentificationType: req.IdentificationType,
		Description:        req.Description,
		MarketIDs:          req.MarketIDs,
	})
	respondResult(w, http.StatusCreated, res, viewParticipant)
}

func (h *Handler) updateParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateDescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondResult(w, http.StatusOK, h.mgr.Participants.Update(r.Context(), id, req.Description), viewParticipant)
}

func (h *Handler) deleteParticipant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondVoid(w, h.mgr.Participants.Delete(r.Context(), id))
}

// =============================================================================
// Memberships
// =============================================================================

func (h *Handler) addMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondVoid(w, h.mgr.Participants.AddMembership(r.Context(), id, chi.URLParam(r, "code")))
}

func (h *Handler) removeMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondVoid(w, h.mgr.Participants.RemoveMembership(r.Context(), id, chi.URLParam(r, "code")))
}
