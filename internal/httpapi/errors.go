package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/account"
	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/audit"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/geo"
	"nutriadmin.org/internal/household"
	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/lookup"
	"nutriadmin.org/internal/obs"
	"nutriadmin.org/internal/program"
	"nutriadmin.org/internal/school"
	"nutriadmin.org/internal/store/pg"
)

var validate = validator.New()

var (
	notFoundErrors = []error{
		pg.ErrNotFound, lookup.ErrNotFound, agency.ErrNotFound, program.ErrNotFound,
		school.ErrNotFound, household.ErrNotFound, geo.ErrNotFound, auth.ErrNotFound,
		identity.ErrUserNotFound, account.ErrUserNotFound, account.ErrAgencyNotFound,
	}
	invalidErrors = []error{
		lookup.ErrInvalidInput, lookup.ErrNotOrderable, agency.ErrInvalidInput,
		program.ErrInvalidInput, school.ErrInvalidInput, household.ErrInvalidInput,
		auth.ErrInvalidInput, account.ErrInvalidInput,
	}
	conflictErrors = []error{pg.ErrConflict, pg.ErrReference}
)

var errUnavailable = errors.New("storage for this resource is not configured")

// fieldError is one failed validation rule in a 400 response.
type fieldError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func writeErrorList(w http.ResponseWriter, r *http.Request, msg string, list []fieldError) {
	payload := map[string]any{
		"error":  msg,
		"errors": list,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, http.StatusBadRequest, payload)
}

// validationList extracts rule violations from err, if it carries any.
func validationList(err error) ([]fieldError, bool) {
	var rules identity.Errors
	if errors.As(err, &rules) {
		out := make([]fieldError, 0, len(rules))
		for _, e := range rules {
			out = append(out, fieldError{Code: e.Code, Description: e.Description})
		}
		return out, true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{
				Code:        fe.Tag(),
				Description: fe.Namespace() + " failed on '" + fe.Tag() + "'",
			})
		}
		return out, true
	}
	return nil, false
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// handleError maps repository errors for the CRUD routes. Unknown errors are 500.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	if list, ok := validationList(err); ok {
		writeErrorList(w, r, "validation failed", list)
		return
	}
	switch {
	case errors.Is(err, errUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
	case isAny(err, invalidErrors):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case isAny(err, notFoundErrors):
		writeError(w, r, http.StatusNotFound, "resource not found")
	case isAny(err, conflictErrors):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		logFailure(r, err)
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// handleAccountError maps account workflow errors. Unknown errors are 400.
func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	if list, ok := validationList(err); ok {
		writeErrorList(w, r, "validation failed", list)
		return
	}
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, account.ErrTemporaryPasswordActive), errors.Is(err, account.ErrTemporaryPasswordInactive):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrUserInactive), errors.Is(err, account.ErrAgencyNotCreated):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case isAny(err, invalidErrors):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case isAny(err, notFoundErrors):
		writeError(w, r, http.StatusNotFound, err.Error())
	case isAny(err, conflictErrors):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		logFailure(r, err)
		writeError(w, r, http.StatusBadRequest, "operation failed")
	}
}

func logFailure(r *http.Request, err error) {
	obs.Logger().WithFields(logrus.Fields{
		"request_id": RequestIDFromContext(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	}).WithError(err).Error("request_failed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// decodeValid decodes the body into dst and runs its validate tags. It writes
// the 400 response itself and reports whether the handler may continue.
func decodeValid(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		if list, ok := validationList(err); ok {
			writeErrorList(w, r, "validation failed", list)
			return false
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (a *API) audit(r *http.Request, action, resource, id string, meta map[string]string) {
	var fields map[string]any
	if len(meta) > 0 {
		fields = make(map[string]any, len(meta))
		for k, v := range meta {
			fields[k] = v
		}
	}
	_ = audit.Record(r.Context(), audit.Event{Action: action, Resource: resource, ResourceID: id, Fields: fields})
}
