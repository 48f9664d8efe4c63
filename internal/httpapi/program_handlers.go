package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/program"
)

func (a *API) programRoutes(root *mux.Router) {
	r := root.PathPrefix("/program").Subrouter()
	admin := RequireRole(identity.RoleAdministrator)

	r.HandleFunc("/get-program-by-id/{id}", a.getProgram).Methods(http.MethodGet)
	r.HandleFunc("/get-all-programs-from-db", a.listPrograms).Methods(http.MethodGet)
	r.HandleFunc("/get-programs-by-agency/{id}", a.programsByAgency).Methods(http.MethodGet)
	r.HandleFunc("/get-programs-by-user/{id}", a.programsByUser).Methods(http.MethodGet)
	r.Handle("/insert-program", admin(http.HandlerFunc(a.insertProgram))).Methods(http.MethodPost)
	r.Handle("/update-program", admin(http.HandlerFunc(a.updateProgram))).Methods(http.MethodPut)
	r.Handle("/delete-program/{id}", admin(http.HandlerFunc(a.deleteProgram))).Methods(http.MethodDelete)
}

func (a *API) getProgram(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := a.svc.Programs.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) listPrograms(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}
	page, err := a.svc.Programs.GetAll(r.Context(), q.Paging())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) programsByAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !a.requireAgency(w, r, id) {
		return
	}
	list, err := a.svc.Programs.ByAgency(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) programsByUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.requireSelfOrAdmin(w, r, id) {
		return
	}
	list, err := a.svc.Programs.ByUser(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) insertProgram(w http.ResponseWriter, r *http.Request) {
	var p program.Program
	if !decodeValid(w, r, &p) {
		return
	}
	p.ID = 0
	id, err := a.svc.Programs.Insert(r.Context(), p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "program.insert", "program", idString(id), nil)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateProgram(w http.ResponseWriter, r *http.Request) {
	var p program.Program
	if !decodeValid(w, r, &p) {
		return
	}
	updated, err := a.svc.Programs.Update(r.Context(), p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "program not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) deleteProgram(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := a.svc.Programs.Delete(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "program not found")
		return
	}
	a.audit(r, "program.delete", "program", idString(id), nil)
	w.WriteHeader(http.StatusNoContent)
}
