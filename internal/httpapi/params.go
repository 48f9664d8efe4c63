package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"nutriadmin.org/internal/paging"
)

// QueryParameters is the query-string bag shared by every list and account route.
type QueryParameters struct {
	Take              int
	Skip              int
	Name              string
	Alls              bool
	AgencyID          int64
	RegionID          int64
	CityID            int64
	StatusID          int64
	HouseholdID       int64
	MemberID          int64
	ProgramID         int64
	UserID            string
	Role              string
	Email             string
	Password          string
	NewPassword       string
	TemporaryPassword string
}

func parseQuery(r *http.Request) (QueryParameters, error) {
	v := r.URL.Query()
	q := QueryParameters{
		Name:              strings.TrimSpace(v.Get("name")),
		UserID:            strings.TrimSpace(v.Get("userId")),
		Role:              strings.TrimSpace(v.Get("role")),
		Email:             strings.TrimSpace(v.Get("email")),
		Password:          v.Get("password"),
		NewPassword:       v.Get("newPassword"),
		TemporaryPassword: v.Get("temporaryPassword"),
	}
	ints := []struct {
		key string
		dst *int
	}{{"take", &q.Take}, {"skip", &q.Skip}}
	for _, f := range ints {
		raw := strings.TrimSpace(v.Get(f.key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return QueryParameters{}, fmt.Errorf("%s must be a non-negative integer", f.key)
		}
		*f.dst = n
	}
	ids := []struct {
		key string
		dst *int64
	}{
		{"agencyId", &q.AgencyID}, {"regionId", &q.RegionID}, {"cityId", &q.CityID},
		{"statusId", &q.StatusID}, {"householdId", &q.HouseholdID}, {"memberId", &q.MemberID},
		{"programId", &q.ProgramID},
	}
	for _, f := range ids {
		raw := strings.TrimSpace(v.Get(f.key))
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return QueryParameters{}, fmt.Errorf("%s must be a non-negative integer", f.key)
		}
		*f.dst = n
	}
	if raw := strings.TrimSpace(v.Get("alls")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return QueryParameters{}, fmt.Errorf("alls must be a boolean")
		}
		q.Alls = b
	}
	return q, nil
}

// Paging is the take/skip/name/alls part of the bag.
func (q QueryParameters) Paging() paging.Query {
	return paging.Query{Take: q.Take, Skip: q.Skip, Name: q.Name, Alls: q.Alls}
}

// query parses the bag and writes a 400 on failure.
func query(w http.ResponseWriter, r *http.Request) (QueryParameters, bool) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return QueryParameters{}, false
	}
	return q, true
}

// pathID reads the positive integer {id} route variable and writes a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func idString(id int64) string { return strconv.FormatInt(id, 10) }
