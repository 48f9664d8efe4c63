package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/lookup"
)

type displayOrderRequest struct {
	ID           int64 `json:"id" validate:"required,gt=0"`
	DisplayOrder int   `json:"display_order" validate:"gte=0"`
}

// lookupRoutes mounts the same six endpoints for every reference table.
func (a *API) lookupRoutes(root *mux.Router) {
	admin := RequireRole(identity.RoleAdministrator)
	for _, def := range lookup.All {
		repo, ok := a.svc.Lookups[def.Key]
		if !ok {
			continue
		}
		h := lookupHandlers{repo: repo, def: def}
		r := root.PathPrefix("/" + def.Route).Subrouter()
		r.HandleFunc("/get-"+def.Route+"-by-id/{id}", h.get).Methods(http.MethodGet)
		r.HandleFunc("/get-all-"+def.PluralRoute()+"-from-db", h.list).Methods(http.MethodGet)
		r.Handle("/insert-"+def.Route, admin(http.HandlerFunc(h.insert))).Methods(http.MethodPost)
		r.Handle("/update-"+def.Route, admin(http.HandlerFunc(h.update))).Methods(http.MethodPut)
		r.Handle("/delete-"+def.Route+"/{id}", admin(http.HandlerFunc(h.delete))).Methods(http.MethodDelete)
		if def.Orderable {
			r.Handle("/update-"+def.Route+"-display-order", admin(http.HandlerFunc(h.displayOrder))).Methods(http.MethodPut)
		}
	}
}

type lookupHandlers struct {
	repo lookup.Repository
	def  lookup.Definition
}

func (h lookupHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	item, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h lookupHandlers) list(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}
	page, err := h.repo.GetAll(r.Context(), q.Paging())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h lookupHandlers) insert(w http.ResponseWriter, r *http.Request) {
	var item lookup.Item
	if !decodeValid(w, r, &item) {
		return
	}
	item.ID = 0
	id, err := h.repo.Insert(r.Context(), item)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h lookupHandlers) update(w http.ResponseWriter, r *http.Request) {
	var item lookup.Item
	if !decodeValid(w, r, &item) {
		return
	}
	if item.ID <= 0 {
		writeError(w, r, http.StatusBadRequest, "id must be a positive integer")
		return
	}
	updated, err := h.repo.Update(r.Context(), item)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, h.def.Label+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (h lookupHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, h.def.Label+" not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h lookupHandlers) displayOrder(w http.ResponseWriter, r *http.Request) {
	var req displayOrderRequest
	if !decodeValid(w, r, &req) {
		return
	}
	updated, err := h.repo.UpdateDisplayOrder(r.Context(), req.ID, req.DisplayOrder)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, h.def.Label+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}
