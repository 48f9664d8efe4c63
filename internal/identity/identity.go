// Package identity is the user store of the service: users, role membership and
// password credentials, with the validation rules applied on every write.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"nutriadmin.org/internal/paging"
)

// Built-in roles.
const (
	RoleAdministrator       = "Administrator"
	RoleAgencyAdministrator = "Agency-Administrator"
	RoleMonitor             = "Monitor"
)

// MinPasswordLength is the shortest password accepted by CreateUser and SetPassword.
const MinPasswordLength = 8

var ErrUserNotFound = errors.New("identity: user not found")

// ErrDuplicateUser is returned by a Store when the normalized user name or
// email is already taken at insert time.
var ErrDuplicateUser = errors.New("identity: user name or email already taken")

type User struct {
	ID                        string     `json:"id" db:"id"`
	UserName                  string     `json:"user_name" db:"user_name"`
	NormalizedUserName        string     `json:"-" db:"normalized_user_name"`
	Email                     string     `json:"email" db:"email"`
	NormalizedEmail           string     `json:"-" db:"normalized_email"`
	FirstName                 string     `json:"first_name" db:"first_name"`
	LastName                  string     `json:"last_name" db:"last_name"`
	SecondLastName            string     `json:"second_last_name" db:"second_last_name"`
	PhoneNumber               string     `json:"phone_number" db:"phone_number"`
	AvatarURL                 string     `json:"avatar_url" db:"avatar_url"`
	PasswordHash              string     `json:"-" db:"password_hash"`
	IsActive                  bool       `json:"is_active" db:"is_active"`
	IsTemporalPasswordActived bool       `json:"is_temporal_password_actived" db:"is_temporal_password_actived"`
	EmailConfirmed            bool       `json:"email_confirmed" db:"email_confirmed"`
	CreatedAt                 time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                 *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Error is one failed identity rule.
type Error struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Errors is the list of rules an identity operation violated.
type Errors []Error

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, item := range e {
		parts = append(parts, item.Code+": "+item.Description)
	}
	return "identity: " + strings.Join(parts, "; ")
}

func fail(code, description string) Errors {
	return Errors{{Code: code, Description: description}}
}

// Filter narrows user listings by name/email substring and role.
type Filter struct {
	paging.Query
	Role string
}

// Store is the persistence used by Manager. Lookups by name or email take
// normalized values.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id string) error
	UserByID(ctx context.Context, id string) (User, error)
	UserByNormalizedEmail(ctx context.Context, email string) (User, error)
	UserByNormalizedName(ctx context.Context, name string) (User, error)
	ListUsers(ctx context.Context, f Filter) (paging.Page[User], error)

	RoleExists(ctx context.Context, role string) (bool, error)
	AddUserRole(ctx context.Context, userID, role string) error
	RemoveUserRole(ctx context.Context, userID, role string) error
	UserRoles(ctx context.Context, userID string) ([]string, error)
}

// Normalize is the lookup form of user names and emails.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
