package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/ids"
	"nutriadmin.org/internal/paging"
)

var validate = validator.New()

// Manager applies the user rules (unique name and email, password policy,
// known roles) on top of a Store.
type Manager struct {
	store Store
	now   func() time.Time
}

// ManagerOption configures Manager behavior.
type ManagerOption func(*Manager)

// WithClock overrides the time source used for audit timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func NewManager(store Store, opts ...ManagerOption) *Manager {
	m := &Manager{store: store, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateUser validates u, hashes password and stores the user. The returned
// user carries the generated id. Rule violations come back as Errors.
func (m *Manager) CreateUser(ctx context.Context, u User, password string) (User, error) {
	u.UserName = strings.TrimSpace(u.UserName)
	u.Email = strings.TrimSpace(u.Email)
	if u.UserName == "" {
		u.UserName = u.Email
	}
	var problems Errors
	if validate.Var(u.Email, "required,email") != nil {
		problems = append(problems, Error{Code: "InvalidEmail", Description: fmt.Sprintf("Email '%s' is invalid.", u.Email)})
	}
	if u.UserName == "" {
		problems = append(problems, Error{Code: "InvalidUserName", Description: "User name is required."})
	}
	problems = append(problems, checkPassword(password)...)
	if len(problems) > 0 {
		return User{}, problems
	}

	u.NormalizedEmail = Normalize(u.Email)
	u.NormalizedUserName = Normalize(u.UserName)
	if _, err := m.store.UserByNormalizedEmail(ctx, u.NormalizedEmail); err == nil {
		problems = append(problems, Error{Code: "DuplicateEmail", Description: fmt.Sprintf("Email '%s' is already taken.", u.Email)})
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	if _, err := m.store.UserByNormalizedName(ctx, u.NormalizedUserName); err == nil {
		problems = append(problems, Error{Code: "DuplicateUserName", Description: fmt.Sprintf("User name '%s' is already taken.", u.UserName)})
	} else if !errors.Is(err, ErrUserNotFound) {
		return User{}, err
	}
	if len(problems) > 0 {
		return User{}, problems
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u.ID = ids.NewUserID()
	u.PasswordHash = hash
	u.CreatedAt = m.now()
	u.UpdatedAt = nil
	if err := m.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			// lost a race with a concurrent registration for the same name or email
			if _, lookupErr := m.store.UserByNormalizedEmail(ctx, u.NormalizedEmail); lookupErr == nil {
				return User{}, fail("DuplicateEmail", fmt.Sprintf("Email '%s' is already taken.", u.Email))
			}
			return User{}, fail("DuplicateUserName", fmt.Sprintf("User name '%s' is already taken.", u.UserName))
		}
		return User{}, err
	}
	return u, nil
}

func (m *Manager) FindByID(ctx context.Context, id string) (User, error) {
	if strings.TrimSpace(id) == "" {
		return User{}, ErrUserNotFound
	}
	return m.store.UserByID(ctx, id)
}

func (m *Manager) FindByEmail(ctx context.Context, email string) (User, error) {
	if strings.TrimSpace(email) == "" {
		return User{}, ErrUserNotFound
	}
	return m.store.UserByNormalizedEmail(ctx, Normalize(email))
}

// FindByNameOrEmail resolves a login identifier: user name first, then email.
func (m *Manager) FindByNameOrEmail(ctx context.Context, login string) (User, error) {
	if strings.TrimSpace(login) == "" {
		return User{}, ErrUserNotFound
	}
	u, err := m.store.UserByNormalizedName(ctx, Normalize(login))
	if err == nil || !errors.Is(err, ErrUserNotFound) {
		return u, err
	}
	return m.store.UserByNormalizedEmail(ctx, Normalize(login))
}

// UpdateUser persists profile and flag changes. Credentials are changed through SetPassword.
func (m *Manager) UpdateUser(ctx context.Context, u User) error {
	current, err := m.store.UserByID(ctx, u.ID)
	if err != nil {
		return err
	}
	u.Email = strings.TrimSpace(u.Email)
	u.UserName = strings.TrimSpace(u.UserName)
	if u.UserName == "" {
		u.UserName = current.UserName
	}
	if u.Email == "" {
		u.Email = current.Email
	}
	if validate.Var(u.Email, "email") != nil {
		return fail("InvalidEmail", fmt.Sprintf("Email '%s' is invalid.", u.Email))
	}
	u.NormalizedEmail = Normalize(u.Email)
	u.NormalizedUserName = Normalize(u.UserName)
	if u.NormalizedEmail != current.NormalizedEmail {
		if other, err := m.store.UserByNormalizedEmail(ctx, u.NormalizedEmail); err == nil && other.ID != u.ID {
			return fail("DuplicateEmail", fmt.Sprintf("Email '%s' is already taken.", u.Email))
		}
	}
	if u.NormalizedUserName != current.NormalizedUserName {
		if other, err := m.store.UserByNormalizedName(ctx, u.NormalizedUserName); err == nil && other.ID != u.ID {
			return fail("DuplicateUserName", fmt.Sprintf("User name '%s' is already taken.", u.UserName))
		}
	}
	u.PasswordHash = current.PasswordHash
	u.CreatedAt = current.CreatedAt
	now := m.now()
	u.UpdatedAt = &now
	return m.store.UpdateUser(ctx, u)
}

func (m *Manager) DeleteUser(ctx context.Context, id string) error {
	if _, err := m.store.UserByID(ctx, id); err != nil {
		return err
	}
	return m.store.DeleteUser(ctx, id)
}

func (m *Manager) ListUsers(ctx context.Context, f Filter) (paging.Page[User], error) {
	f.Query = f.Query.Normalize()
	f.Role = strings.TrimSpace(f.Role)
	return m.store.ListUsers(ctx, f)
}

func (m *Manager) AddToRole(ctx context.Context, userID, role string) error {
	role = strings.TrimSpace(role)
	ok, err := m.store.RoleExists(ctx, role)
	if err != nil {
		return err
	}
	if !ok {
		return fail("RoleNotFound", fmt.Sprintf("Role %s does not exist.", role))
	}
	in, err := m.IsInRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if in {
		return fail("UserAlreadyInRole", fmt.Sprintf("User already in role '%s'.", role))
	}
	return m.store.AddUserRole(ctx, userID, role)
}

func (m *Manager) RemoveFromRole(ctx context.Context, userID, role string) error {
	in, err := m.IsInRole(ctx, userID, role)
	if err != nil {
		return err
	}
	if !in {
		return fail("UserNotInRole", fmt.Sprintf("User is not in role '%s'.", role))
	}
	return m.store.RemoveUserRole(ctx, userID, strings.TrimSpace(role))
}

func (m *Manager) Roles(ctx context.Context, userID string) ([]string, error) {
	return m.store.UserRoles(ctx, userID)
}

func (m *Manager) IsInRole(ctx context.Context, userID, role string) (bool, error) {
	roles, err := m.store.UserRoles(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if strings.EqualFold(r, strings.TrimSpace(role)) {
			return true, nil
		}
	}
	return false, nil
}

// CheckPassword reports whether password matches the user's stored credential.
func (m *Manager) CheckPassword(u User, password string) bool {
	return auth.VerifyPassword(u.PasswordHash, password) == nil
}

// SetPassword replaces the user's credential after checking the password policy.
func (m *Manager) SetPassword(ctx context.Context, userID, password string) error {
	if problems := checkPassword(password); len(problems) > 0 {
		return problems
	}
	u, err := m.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	now := m.now()
	u.UpdatedAt = &now
	return m.store.UpdateUser(ctx, u)
}

func checkPassword(password string) Errors {
	if len(password) < MinPasswordLength {
		return fail("PasswordTooShort", fmt.Sprintf("Passwords must be at least %d characters.", MinPasswordLength))
	}
	return nil
}
