package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
)

type agencyStatusRequest struct {
	ID                     int64  `json:"id" validate:"required,gt=0"`
	StatusID               int64  `json:"status_id" validate:"required,gt=0"`
	RejectionJustification string `json:"rejection_justification" validate:"max=1000"`
}

type agencyLogoRequest struct {
	ID      int64  `json:"id" validate:"required,gt=0"`
	LogoURL string `json:"logo_url" validate:"required,url"`
}

func (a *API) agencyRoutes(root *mux.Router) {
	admin := RequireRole(identity.RoleAdministrator)

	r := root.PathPrefix("/agency").Subrouter()
	r.HandleFunc("/get-agency-by-id/{id}", a.getAgency).Methods(http.MethodGet)
	r.HandleFunc("/get-all-agencies-from-db", a.listAgencies).Methods(http.MethodGet)
	r.Handle("/insert-agency", admin(http.HandlerFunc(a.insertAgency))).Methods(http.MethodPost)
	r.HandleFunc("/update-agency", a.updateAgency).Methods(http.MethodPut)
	r.Handle("/delete-agency/{id}", admin(http.HandlerFunc(a.deleteAgency))).Methods(http.MethodDelete)
	r.Handle("/update-agency-status", admin(http.HandlerFunc(a.updateAgencyStatus))).Methods(http.MethodPut)
	r.HandleFunc("/update-agency-logo", a.updateAgencyLogo).Methods(http.MethodPut)

	f := root.PathPrefix("/agency-files").Subrouter()
	f.HandleFunc("/get-agency-file-by-id/{id}", a.getAgencyFile).Methods(http.MethodGet)
	f.HandleFunc("/get-all-agency-files-from-db", a.listAgencyFiles).Methods(http.MethodGet)
	f.HandleFunc("/insert-agency-file", a.insertAgencyFile).Methods(http.MethodPost)
	f.HandleFunc("/delete-agency-file/{id}", a.deleteAgencyFile).Methods(http.MethodDelete)

	u := root.PathPrefix("/agency-users").Subrouter()
	u.HandleFunc("/get-all-agency-users-from-db", a.listAgencyUsers).Methods(http.MethodGet)
	u.HandleFunc("/get-agency-users-by-agency/{id}", a.agencyUsersByAgency).Methods(http.MethodGet)
	u.HandleFunc("/get-agency-user-by-user/{id}", a.agencyUserByUser).Methods(http.MethodGet)
	u.Handle("/insert-agency-user", admin(http.HandlerFunc(a.insertAgencyUser))).Methods(http.MethodPost)
	u.Handle("/delete-agency-user/{id}", admin(http.HandlerFunc(a.deleteAgencyUser))).Methods(http.MethodDelete)
}

func (a *API) getAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !a.requireAgency(w, r, id) {
		return
	}
	ag, err := a.svc.Agencies.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ag)
}

// listAgencies restricts non-administrators to the agencies they are assigned to.
func (a *API) listAgencies(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}
	f := agency.Filter{
		Query:    q.Paging(),
		RegionID: q.RegionID,
		CityID:   q.CityID,
		StatusID: q.StatusID,
		UserID:   q.UserID,
	}
	if !isAdmin(r) {
		f.UserID = principal(r).UserID
	}
	page, err := a.svc.Agencies.GetAll(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) insertAgency(w http.ResponseWriter, r *http.Request) {
	var ag agency.Agency
	if !decodeValid(w, r, &ag) {
		return
	}
	ag.ID = 0
	if ag.StatusID == 0 {
		ag.StatusID = agency.StatusPending
	}
	id, err := a.svc.Agencies.Insert(r.Context(), ag)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "agency.insert", "agency", idString(id), nil)
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateAgency(w http.ResponseWriter, r *http.Request) {
	var ag agency.Agency
	if !decodeValid(w, r, &ag) {
		return
	}
	if !a.requireAgency(w, r, ag.ID) {
		return
	}
	if !isAdmin(r) {
		// status changes go through update-agency-status
		current, err := a.svc.Agencies.GetByID(r.Context(), ag.ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		ag.StatusID = current.StatusID
		ag.RejectionJustification = current.RejectionJustification
	}
	updated, err := a.svc.Agencies.Update(r.Context(), ag)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "agency not found")
		return
	}
	a.audit(r, "agency.update", "agency", idString(ag.ID), nil)
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) deleteAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := a.svc.Agencies.Delete(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "agency not found")
		return
	}
	a.audit(r, "agency.delete", "agency", idString(id), nil)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) updateAgencyStatus(w http.ResponseWriter, r *http.Request) {
	var req agencyStatusRequest
	if !decodeValid(w, r, &req) {
		return
	}
	updated, err := a.svc.Agencies.UpdateStatus(r.Context(), req.ID, req.StatusID, req.RejectionJustification)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "agency not found")
		return
	}
	a.audit(r, "agency.status", "agency", idString(req.ID), map[string]string{
		"status_id": idString(req.StatusID),
	})
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) updateAgencyLogo(w http.ResponseWriter, r *http.Request) {
	var req agencyLogoRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if !a.requireAgency(w, r, req.ID) {
		return
	}
	updated, err := a.svc.Agencies.UpdateLogo(r.Context(), req.ID, req.LogoURL)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !updated {
		writeError(w, r, http.StatusNotFound, "agency not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

// --- files ---

func (a *API) getAgencyFile(w http.ResponseWriter, r *http.Request) {
	if a.svc.Files == nil {
		handleError(w, r, errUnavailable)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := a.svc.Files.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.requireAgency(w, r, f.AgencyID) {
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (a *API) listAgencyFiles(w http.ResponseWriter, r *http.Request) {
	if a.svc.Files == nil {
		handleError(w, r, errUnavailable)
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
	page, err := a.svc.Files.GetAll(r.Context(), agency.FileFilter{Query: q.Paging(), AgencyID: q.AgencyID})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) insertAgencyFile(w http.ResponseWriter, r *http.Request) {
	if a.svc.Files == nil {
		handleError(w, r, errUnavailable)
		return
	}
	var f agency.File
	if !decodeValid(w, r, &f) {
		return
	}
	if !a.requireAgency(w, r, f.AgencyID) {
		return
	}
	f.ID = 0
	f.UploadedBy = principal(r).UserID
	id, err := a.svc.Files.Insert(r.Context(), f)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "agency.file.insert", "agency_file", idString(id), map[string]string{
		"agency_id": idString(f.AgencyID),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) deleteAgencyFile(w http.ResponseWriter, r *http.Request) {
	if a.svc.Files == nil {
		handleError(w, r, errUnavailable)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := a.svc.Files.GetByID(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !a.requireAgency(w, r, f.AgencyID) {
		return
	}
	if _, err := a.svc.Files.Delete(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- user assignments ---

func (a *API) listAgencyUsers(w http.ResponseWriter, r *http.Request) {
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
	page, err := a.svc.Assignments.GetAll(r.Context(), agency.AssignmentFilter{Query: q.Paging(), AgencyID: q.AgencyID})
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) agencyUsersByAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok || !a.requireAgency(w, r, id) {
		return
	}
	list, err := a.svc.Assignments.ByAgency(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) agencyUserByUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.requireSelfOrAdmin(w, r, id) {
		return
	}
	as, err := a.svc.Assignments.ByUser(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, as)
}

func (a *API) insertAgencyUser(w http.ResponseWriter, r *http.Request) {
	var as agency.UserAssignment
	if !decodeValid(w, r, &as) {
		return
	}
	if as.UserID == "" || as.AgencyID <= 0 {
		writeError(w, r, http.StatusBadRequest, "user_id and agency_id are required")
		return
	}
	as.ID = 0
	if uid, ok := auth.UserIDFromContext(r.Context()); ok {
		as.AssignedBy = uid
	}
	id, err := a.svc.Assignments.Insert(r.Context(), as)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) deleteAgencyUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := a.svc.Assignments.Delete(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, http.StatusNotFound, "assignment not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
