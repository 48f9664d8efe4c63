package auth

import (
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// MonitorRole receives program claims but never agency claims.
const MonitorRole = "Monitor"

// ProgramRef is a program as it appears in token claims.
type ProgramRef struct {
	ID   int64
	Name string
}

// Identity is everything a login resolves about a user before signing.
type Identity struct {
	UserID      string
	UserName    string
	Email       string
	FirstName   string
	LastName    string
	Roles       []string
	AgencyID    int64
	AgencyName  string
	Programs    []ProgramRef
	Permissions []string
}

// IsMonitor reports whether the identity holds the Monitor role.
func (id Identity) IsMonitor() bool {
	for _, r := range id.Roles {
		if strings.EqualFold(r, MonitorRole) {
			return true
		}
	}
	return false
}

// BuildClaims assembles the application claims. Monitors get name and program
// claims only; every other role also gets agency and permission claims.
func BuildClaims(id Identity) jwt.MapClaims {
	claims := jwt.MapClaims{
		"nameid":      id.UserID,
		"unique_name": id.UserName,
		"email":       id.Email,
		"role":        nonNil(id.Roles),
		"name":        id.FirstName,
		"last_name":   id.LastName,
	}
	names := make([]string, 0, len(id.Programs))
	programIDs := make([]string, 0, len(id.Programs))
	for _, p := range id.Programs {
		names = append(names, p.Name)
		programIDs = append(programIDs, strconv.FormatInt(p.ID, 10))
	}
	claims["program"] = names
	claims["programId"] = programIDs
	if id.IsMonitor() {
		return claims
	}
	claims["agency"] = id.AgencyName
	claims["agencyId"] = strconv.FormatInt(id.AgencyID, 10)
	claims["permission"] = nonNil(id.Permissions)
	return claims
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
