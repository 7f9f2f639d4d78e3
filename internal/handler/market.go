package handler

import (
	"net/http"

	"github.com/xtxerr/marketstats/internal/manager"
)

type createMarketRequest struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Country     string `json:"country"`
}

type updateDescriptionRequest struct {
	Description string `json:"description"`
}

func (h *Handler) listMarkets(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusOK, h.mgr.Markets.List(r.Context()), viewMarkets)
}

func (h *Handler) getMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondResult(w, http.StatusOK, h.mgr.Markets.Get(r.Context(), id), viewMarket)
}

func (h *Handler) createMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := h.mgr.Markets.Create(r.Context(), manager.MarketInput{
		Code:        req.Code,
		Description: req.Description,
		Country:     req.Country,
	})
	respondResult(w, http.StatusCreated, res, viewMarket)
}

func (h *Handler) updateMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateDescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondResult(w, http.StatusOK, h.mgr.Markets.Update(r.Context(), id, req.Description), viewMarket)
}

func (h *Handler) deleteMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondVoid(w, h.mgr.Markets.Delete(r.Context(), id))
}
