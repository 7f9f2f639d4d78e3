package handler

import (
	"net/http"
)

type createCountryRequest struct {
	Name string `json:"name"`
}

func (h *Handler) listCountries(w http.ResponseWriter, r *http.Request) {
	respondResult(w, http.StatusOK, h.mgr.Countries.List(r.Context()), viewCountries)
}

func (h *Handler) getCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondResult(w, http.StatusOK, h.mgr.Countries.Get(r.Context(), id), viewCountry)
}

func (h *Handler) createCountry(w http.ResponseWriter, r *http.Request) {
	var req createCountryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	respondResult(w, http.StatusCreated, h.mgr.Countries.Create(r.Context(), req.Name), viewCountry)
}

func (h *Handler) deleteCountry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	respondVoid(w, h.mgr.Countries.Delete(r.Context(), id))
}
