package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/metrics",
	"/healthz",
	"/readyz",
	"/v1/info",
	"/user/login",
	"/user/register-user-agency",
	"/user/update-temporal-password",
	"/user/reset-password",
}

func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if a.svc == nil || a.svc.Tokens == nil {
			// guarded routes stay closed without a token service
			writeError(w, r, http.StatusInternalServerError, "authentication unavailable")
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="nutriadmin"`)
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := a.svc.Tokens.ParseAndValidate(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
				writeError(w, r, http.StatusUnauthorized, "invalid token")
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		ctx := auth.ContextWithPrincipal(r.Context(), auth.NewPrincipal(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

func isAdmin(r *http.Request) bool {
	return principal(r).HasRole(identity.RoleAdministrator)
}

// callerAgency is the agency id carried by the caller's token, 0 if none.
func callerAgency(r *http.Request) int64 {
	id, err := strconv.ParseInt(principal(r).AgencyID, 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// requirePermission writes 403 unless the caller is an Administrator or holds perm.
func (a *API) requirePermission(w http.ResponseWriter, r *http.Request, perm string) bool {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return false
	}
	if p.HasRole(identity.RoleAdministrator) || p.HasPermission(perm) {
		return true
	}
	writeError(w, r, http.StatusForbidden, "missing permission "+perm)
	return false
}

// requireAgency writes 403 unless the caller is an Administrator or belongs to agencyID.
func (a *API) requireAgency(w http.ResponseWriter, r *http.Request, agencyID int64) bool {
	if isAdmin(r) || (agencyID > 0 && callerAgency(r) == agencyID) {
		return true
	}
	writeError(w, r, http.StatusForbidden, "agency is outside the caller's scope")
	return false
}

// requireSelfOrAdmin writes 403 unless the caller is userID or an Administrator.
func (a *API) requireSelfOrAdmin(w http.ResponseWriter, r *http.Request, userID string) bool {
	if isAdmin(r) || principal(r).UserID == userID {
		return true
	}
	writeError(w, r, http.StatusForbidden, "user is outside the caller's scope")
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}
