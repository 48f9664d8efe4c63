package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"nutriadmin.org/internal/account"
	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/identity"
)

type loginRequest struct {
	UserName string `json:"user_name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerAgencyRequest struct {
	Agency     agency.Agency   `json:"agency"`
	ProgramIDs []int64         `json:"program_ids"`
	User       account.NewUser `json:"user"`
}

type registerUserRequest struct {
	User      account.NewUser `json:"user"`
	Role      string          `json:"role" validate:"required,oneof=Administrator Agency-Administrator Monitor"`
	AgencyID  int64           `json:"agency_id" validate:"gte=0"`
	IsOwner   bool            `json:"is_owner"`
	IsMonitor bool            `json:"is_monitor"`
}

type userActiveRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	IsActive bool   `json:"is_active"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

type assignPermissionsRequest struct {
	UserID        string  `json:"user_id" validate:"required"`
	PermissionIDs []int64 `json:"permission_ids"`
}

type assignProgramsRequest struct {
	UserID     string  `json:"user_id" validate:"required"`
	ProgramIDs []int64 `json:"program_ids"`
}

func (a *API) accountRoutes(root *mux.Router) {
	r := root.PathPrefix("/user").Subrouter()
	admin := RequireRole(identity.RoleAdministrator)
	staff := RequireRole(identity.RoleAdministrator, identity.RoleAgencyAdministrator)

	r.HandleFunc("/login", a.login).Methods(http.MethodPost)
	r.HandleFunc("/register-user-agency", a.registerUserAgency).Methods(http.MethodPost)
	r.HandleFunc("/update-temporal-password", a.updateTemporalPassword).Methods(http.MethodPut)
	r.HandleFunc("/reset-password", a.resetPassword).Methods(http.MethodPost)

	r.HandleFunc("/get-user-by-id/{id}", a.getUser).Methods(http.MethodGet)
	r.Handle("/get-all-users-from-db", admin(http.HandlerFunc(a.listUsers))).Methods(http.MethodGet)
	r.Handle("/register-user", staff(http.HandlerFunc(a.registerUser))).Methods(http.MethodPost)
	r.HandleFunc("/update-user", a.updateUser).Methods(http.MethodPut)
	r.Handle("/update-user-active", admin(http.HandlerFunc(a.updateUserActive))).Methods(http.MethodPut)
	r.Handle("/delete-user/{id}", admin(http.HandlerFunc(a.deleteUser))).Methods(http.MethodDelete)
	r.Handle("/force-password/{id}", admin(http.HandlerFunc(a.forcePassword))).Methods(http.MethodPost)
	r.HandleFunc("/change-password", a.changePassword).Methods(http.MethodPut)
	r.Handle("/assign-permissions", admin(http.HandlerFunc(a.assignPermissions))).Methods(http.MethodPost)
	r.HandleFunc("/get-user-permissions/{id}", a.userPermissions).Methods(http.MethodGet)
	r.Handle("/assign-programs", admin(http.HandlerFunc(a.assignPrograms))).Methods(http.MethodPost)
	r.Handle("/assign-agency", admin(http.HandlerFunc(a.assignAgency))).Methods(http.MethodPost)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeValid(w, r, &req) {
		return
	}
	token, err := a.svc.Account.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		if isAny(err, []error{account.ErrUserNotFound, account.ErrInvalidCredentials}) {
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (a *API) registerUserAgency(w http.ResponseWriter, r *http.Request) {
	var req registerAgencyRequest
	if !decodeValid(w, r, &req) {
		return
	}
	out, err := a.svc.Account.RegisterUserAgency(r.Context(), account.AgencyRegistration{
		Agency:     req.Agency,
		ProgramIDs: req.ProgramIDs,
	}, req.User)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// updateTemporalPassword reads email, newPassword and temporaryPassword from the query bag.
func (a *API) updateTemporalPassword(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}
	if q.Email == "" || q.NewPassword == "" || q.TemporaryPassword == "" {
		writeError(w, r, http.StatusBadRequest, "email, newPassword and temporaryPassword are required")
		return
	}
	if err := a.svc.Account.UpdateTemporalPassword(r.Context(), q.Email, q.NewPassword, q.TemporaryPassword); err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Contraseña actualizada"})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}
	if q.Email == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}
	if err := a.svc.Account.ResetPassword(r.Context(), q.Email); err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.requireSelfOrAdmin(w, r, id) {
		return
	}
	d, err := a.svc.Account.GetUser(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q, ok := query(w, r)
	if !ok {
		return
	}
	page, err := a.svc.Account.ListUsers(r.Context(), identity.Filter{Query: q.Paging(), Role: q.Role})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// registerUser creates staff. Agency administrators can only add users to
// their own agency and cannot create Administrators.
func (a *API) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if !isAdmin(r) {
		if req.Role == identity.RoleAdministrator {
			writeError(w, r, http.StatusForbidden, "only administrators can create administrators")
			return
		}
		req.AgencyID = callerAgency(r)
		req.IsOwner = false
	}
	id, err := a.svc.Account.RegisterUser(r.Context(), req.User, req.Role, req.AgencyID, account.AssignmentFlags{
		IsOwner:   req.IsOwner,
		IsMonitor: req.IsMonitor,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r, "user.register", "user", id, map[string]string{
		"role":      req.Role,
		"agency_id": idString(req.AgencyID),
	})
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	var req account.ProfileUpdate
	if !decodeValid(w, r, &req) {
		return
	}
	if !a.requireSelfOrAdmin(w, r, req.ID) {
		return
	}
	if err := a.svc.Account.UpdateProfile(r.Context(), req); err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) updateUserActive(w http.ResponseWriter, r *http.Request) {
	var req userActiveRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := a.svc.Account.SetActive(r.Context(), req.UserID, req.IsActive); err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": true})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.svc.Account.DeleteUser(r.Context(), id); err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) forcePassword(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.svc.Account.ForcePassword(r.Context(), id); err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *API) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := a.svc.Account.ChangePassword(r.Context(), principal(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) assignPermissions(w http.ResponseWriter, r *http.Request) {
	var req assignPermissionsRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := a.svc.Account.AssignPermissions(r.Context(), req.UserID, req.PermissionIDs); err != nil {
		handleAccountError(w, r, err)
		return
	}
	a.audit(r, "user.permissions.assign", "user", req.UserID, map[string]string{
		"count": strconv.Itoa(len(req.PermissionIDs)),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) userPermissions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !a.requireSelfOrAdmin(w, r, id) {
		return
	}
	perms, err := a.svc.Account.UserPermissions(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, perms)
}

func (a *API) assignPrograms(w http.ResponseWriter, r *http.Request) {
	var req assignProgramsRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := a.svc.Account.AssignPrograms(r.Context(), req.UserID, req.ProgramIDs); err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) assignAgency(w http.ResponseWriter, r *http.Request) {
	var req account.AgencyAssignment
	if !decodeValid(w, r, &req) {
		return
	}
	id, err := a.svc.Account.AssignAgency(r.Context(), req)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}
