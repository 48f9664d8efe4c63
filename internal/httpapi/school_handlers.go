package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/school"
)

func (a *API) schoolRoutes(root *mux.Router) {
	r := root.PathPrefix("/school").Subrouter()
	r.HandleFunc("/get-school-by-id/{id}", a.getSchool).Methods(http.MethodGet)
	r.HandleFunc("/get-all-schools-from-db", a.listSchools).Methods(http.MethodGet)
	r.HandleFunc("/insert-school", a.insertSchool).Methods(http.MethodPost)
	r.HandleFunc("/update-school", a.updateSchool).Methods(http.MethodPut)
	r.HandleFunc("/delete-school/{id}", a.deleteSchool).Methods(http.MethodDelete)
}

// schools returns the repository or writes 503 when none is configured.
func (a *API) schools(w http.ResponseWriter, r *http.Request, perm string) (school.Repository, bool) {
	if !a.requirePermission(w, r, perm) {
		return nil, false
	}
	if a.svc.Schools == nil {
		handleError(w, r, errUnavailable)
		return nil, false
	}
	return a.svc.Schools, true
}

func (a *API) getSchool(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.schools(w, r, auth.PermSchoolRead)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := repo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.requireAgency(w, r, s.AgencyID) {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *API) listSchools(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.schools(w, r, auth.PermSchoolRead)
	if !ok {
		return
	}
	q, ok := query(w, r)
	if !ok {
		return
	}
	if !isAdmin(r) {
		q.AgencyID = callerAgency(r)
		if !a.requireAgency(w, r, q.AgencyID) {
			return
		}
	}
	page, err := repo.GetAll(r.Context(), school.Filter{Query: q.Paging(), AgencyID: q.AgencyID})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) insertSchool(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.schools(w, r, auth.PermSchoolCreate)
	if !ok {
		return
	}
	var s school.School
	if !decodeValid(w, r, &s) {
		return
	}
	if !a.requireAgency(w, r, s.AgencyID) {
		return
	}
	s.ID = 0
	id, err := repo.Insert(r.Context(), s)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "school.insert", "school", idString(id), map[string]string{
		"agency_id": idString(s.AgencyID),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateSchool(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.schools(w, r, auth.PermSchoolUpdate)
	if !ok {
		return
	}
	var s school.School
	if !decodeValid(w, r, &s) {
		return
	}
	current, err := repo.GetByID(r.Context(), s.ID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	// a school cannot be moved out of the caller's agency
	if !a.requireAgency(w, r, current.AgencyID) || !a.requireAgency(w, r, s.AgencyID) {
		return
	}
	updated, err := repo.Update(r.Context(), s)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "school not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) deleteSchool(w http.ResponseWriter, r *http.Request) {
	repo, ok := a.schools(w, r, auth.PermSchoolDelete)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := repo.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.requireAgency(w, r, s.AgencyID) {
		return
	}
	if _, err := repo.Delete(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "school.delete", "school", idString(id), nil)
	w.WriteHeader(http.StatusNoContent)
}
