// Package account runs the user lifecycle: agency owner registration with
// compensation, staff registration, login and the temporary password exchange.
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/ids"
	"nutriadmin.org/internal/notify"
	"nutriadmin.org/internal/obs"
	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/program"
)

// RegisteredMessage is returned to the caller after a successful owner registration.
const RegisteredMessage = "Usuario registrado exitosamente"

// UserManager is the identity surface the workflow needs. *identity.Manager satisfies it.
type UserManager interface {
	CreateUser(ctx context.Context, u identity.User, password string) (identity.User, error)
	FindByID(ctx context.Context, id string) (identity.User, error)
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	FindByNameOrEmail(ctx context.Context, login string) (identity.User, error)
	UpdateUser(ctx context.Context, u identity.User) error
	DeleteUser(ctx context.Context, id string) error
	ListUsers(ctx context.Context, f identity.Filter) (paging.Page[identity.User], error)
	AddToRole(ctx context.Context, userID, role string) error
	RemoveFromRole(ctx context.Context, userID, role string) error
	Roles(ctx context.Context, userID string) ([]string, error)
	IsInRole(ctx context.Context, userID, role string) (bool, error)
	CheckPassword(u identity.User, password string) bool
	SetPassword(ctx context.Context, userID, password string) error
}

// Deps are the collaborators of Service.
type Deps struct {
	Users         UserManager
	Agencies      agency.Repository
	Assignments   agency.AssignmentRepository
	Programs      program.Repository
	Permissions   auth.PermissionStore
	TempPasswords auth.TemporaryPasswordStore
	Mail          notify.EmailService
	Tokens        *auth.TokenService
}

// Service implements the account workflows.
type Service struct {
	Deps
	development bool
	devPassword string
	log         *logrus.Logger
}

// Option configures Service behavior.
type Option func(*Service) error

// WithDevelopment issues the fixed password instead of random ones and lets
// inactive users log in.
func WithDevelopment(fixedPassword string) Option {
	return func(s *Service) error {
		if len(fixedPassword) < identity.MinPasswordLength {
			return errors.New("account: development password is shorter than the password policy")
		}
		s.development = true
		s.devPassword = fixedPassword
		return nil
	}
}

func NewService(d Deps, opts ...Option) (*Service, error) {
	if d.Users == nil || d.Agencies == nil || d.Assignments == nil || d.Programs == nil ||
		d.Permissions == nil || d.TempPasswords == nil || d.Mail == nil || d.Tokens == nil {
		return nil, errors.New("account: all dependencies are required")
	}
	s := &Service{Deps: d, log: obs.Logger()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewUser is the profile supplied when an account is created.
type NewUser struct {
	UserName       string `json:"user_name"`
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	SecondLastName string `json:"second_last_name"`
	PhoneNumber    string `json:"phone_number"`
	AvatarURL      string `json:"avatar_url"`
}

func (n NewUser) toUser() identity.User {
	return identity.User{
		UserName:                  strings.TrimSpace(n.UserName),
		Email:                     strings.TrimSpace(n.Email),
		FirstName:                 strings.TrimSpace(n.FirstName),
		LastName:                  strings.TrimSpace(n.LastName),
		SecondLastName:            strings.TrimSpace(n.SecondLastName),
		PhoneNumber:               strings.TrimSpace(n.PhoneNumber),
		AvatarURL:                 strings.TrimSpace(n.AvatarURL),
		IsActive:                  true,
		IsTemporalPasswordActived: true,
		EmailConfirmed:            false,
	}
}

func recipient(u identity.User) notify.Recipient {
	return notify.Recipient{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// temporaryPassword is the fixed development value or the first eight
// characters of a random UUID.
func (s *Service) temporaryPassword() string {
	if s.development {
		return s.devPassword
	}
	return ids.TemporaryPassword()
}

// Development reports whether development conveniences are on.
func (s *Service) Development() bool { return s.development }

func (s *Service) logger(ctx context.Context, op string) *logrus.Entry {
	fields := logrus.Fields{"component": "account", "op": op}
	if uid, ok := auth.UserIDFromContext(ctx); ok {
		fields["actor_id"] = uid
	}
	return s.log.WithFields(fields)
}
