package auth

import "strings"

// Principal represents an authenticated user with resolved roles and permissions.
type Principal struct {
	UserID      string
	UserName    string
	Email       string
	Roles       []string
	AgencyID    string
	Permissions map[string]struct{}
}

// NewPrincipal builds the principal carried by a verified token.
func NewPrincipal(c *Claims) Principal {
	set := make(map[string]struct{}, len(c.Permissions))
	for _, p := range c.Permissions {
		set[strings.ToLower(p)] = struct{}{}
	}
	return Principal{
		UserID:      c.UserID,
		UserName:    c.UserName,
		Email:       c.Email,
		Roles:       c.Roles,
		AgencyID:    c.AgencyID,
		Permissions: set,
	}
}

// HasPermission reports whether the principal can execute action identified by key.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[strings.ToLower(key)]
	return ok
}

// HasRole reports whether the principal holds role, ignoring case.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}
