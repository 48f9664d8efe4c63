package account

import (
	"context"
	"errors"
	"strconv"

	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/audit"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/paging"
	"nutriadmin.org/internal/program"
)

// UserDetails is a user with everything the admin screens show next to it.
type UserDetails struct {
	identity.User
	Roles       []string               `json:"roles"`
	Agency      *agency.UserAssignment `json:"agency,omitempty"`
	Permissions []auth.Permission      `json:"permissions"`
	Programs    []program.Program      `json:"programs"`
}

func (s *Service) GetUser(ctx context.Context, userID string) (UserDetails, error) {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return UserDetails{}, ErrUserNotFound
	}
	if err != nil {
		return UserDetails{}, err
	}
	d := UserDetails{User: user}
	if d.Roles, err = s.Users.Roles(ctx, userID); err != nil {
		return UserDetails{}, err
	}
	if d.Permissions, err = s.Permissions.ByUser(ctx, userID); err != nil {
		return UserDetails{}, err
	}
	if d.Programs, err = s.Programs.ByUser(ctx, userID); err != nil {
		return UserDetails{}, err
	}
	assignment, err := s.Assignments.ByUser(ctx, userID)
	switch {
	case errors.Is(err, agency.ErrNotFound):
	case err != nil:
		return UserDetails{}, err
	default:
		d.Agency = &assignment
	}
	return d, nil
}

func (s *Service) ListUsers(ctx context.Context, f identity.Filter) (paging.Page[identity.User], error) {
	return s.Users.ListUsers(ctx, f)
}

// ProfileUpdate carries the editable profile fields of a user.
type ProfileUpdate struct {
	ID             string `json:"id" validate:"required"`
	UserName       string `json:"user_name"`
	Email          string `json:"email" validate:"omitempty,email"`
	FirstName      string `json:"first_name" validate:"required,max=100"`
	LastName       string `json:"last_name" validate:"required,max=100"`
	SecondLastName string `json:"second_last_name"`
	PhoneNumber    string `json:"phone_number"`
	AvatarURL      string `json:"avatar_url"`
}

// UpdateProfile rewrites the profile of p.ID. Flags and credentials are untouched.
func (s *Service) UpdateProfile(ctx context.Context, p ProfileUpdate) error {
	user, err := s.Users.FindByID(ctx, p.ID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	nu := NewUser{
		UserName: p.UserName, Email: p.Email,
		FirstName: p.FirstName, LastName: p.LastName, SecondLastName: p.SecondLastName,
		PhoneNumber: p.PhoneNumber, AvatarURL: p.AvatarURL,
	}.toUser()
	user.UserName = nu.UserName
	user.Email = nu.Email
	user.FirstName = nu.FirstName
	user.LastName = nu.LastName
	user.SecondLastName = nu.SecondLastName
	user.PhoneNumber = nu.PhoneNumber
	user.AvatarURL = nu.AvatarURL
	return s.Users.UpdateUser(ctx, user)
}

// SetActive enables or disables login for userID.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) error {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	user.IsActive = active
	if err := s.Users.UpdateUser(ctx, user); err != nil {
		return err
	}
	_ = audit.Record(ctx, audit.Event{
		Action:     "account.user_active_changed",
		Resource:   "user",
		ResourceID: userID,
		Fields:     map[string]any{"active": strconv.FormatBool(active)},
	})
	return nil
}

// DeleteUser removes a user with its roles, permissions, program coverage,
// assignment and temporary passwords. The agency itself is kept.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	roles, err := s.Users.Roles(ctx, userID)
	if err != nil {
		return err
	}
	for _, r := range roles {
		if err := s.Users.RemoveFromRole(ctx, userID, r); err != nil {
			return err
		}
	}
	if _, err := s.Permissions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if err := s.Programs.AssignToUser(ctx, userID, nil); err != nil {
		return err
	}
	if _, err := s.Assignments.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.TempPasswords.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.Users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.user_deleted", Resource: "user", ResourceID: userID, Fields: map[string]any{"email": user.Email}})
	return nil
}

// AgencyAssignment is the request to attach a user to an agency.
type AgencyAssignment struct {
	UserID    string `json:"user_id" validate:"required"`
	AgencyID  int64  `json:"agency_id" validate:"required,gt=0"`
	IsMonitor bool   `json:"is_monitor"`
}

// AssignAgency replaces the agency of a user and notifies them. A user belongs
// to at most one agency.
func (s *Service) AssignAgency(ctx context.Context, req AgencyAssignment) (int64, error) {
	user, err := s.Users.FindByID(ctx, req.UserID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	a, err := s.Agencies.GetByID(ctx, req.AgencyID)
	if errors.Is(err, agency.ErrNotFound) {
		return 0, ErrAgencyNotFound
	}
	if err != nil {
		return 0, err
	}
	if _, err := s.Assignments.DeleteByUser(ctx, user.ID); err != nil {
		return 0, err
	}
	assignedBy, _ := auth.UserIDFromContext(ctx)
	id, err := s.Assignments.Insert(ctx, agency.UserAssignment{
		UserID:     user.ID,
		AgencyID:   a.ID,
		IsMonitor:  req.IsMonitor,
		AssignedBy: assignedBy,
	})
	if err != nil {
		return 0, err
	}
	if err := s.Mail.SendAgencyAssignment(ctx, recipient(user), a.Name, req.IsMonitor); err != nil {
		s.logger(ctx, "assign_agency").WithError(err).WithField("user_id", user.ID).Error("assignment email failed")
	}
	_ = audit.Record(ctx, audit.Event{
		Action:     "account.agency_assigned",
		Resource:   "user",
		ResourceID: user.ID,
		Fields:     map[string]any{"agency_id": strconv.FormatInt(a.ID, 10)},
	})
	return id, nil
}

// AssignPermissions replaces the direct permission grants of userID.
func (s *Service) AssignPermissions(ctx context.Context, userID string, permissionIDs []int64) error {
	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if _, err := s.Permissions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		if id <= 0 {
			return ErrInvalidInput
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.Permissions.Assign(ctx, userID, id); err != nil {
			return err
		}
	}
	return nil
}

// UserPermissions returns the direct grants of userID.
func (s *Service) UserPermissions(ctx context.Context, userID string) ([]auth.Permission, error) {
	return s.Permissions.ByUser(ctx, userID)
}

// AssignPrograms replaces the programs a monitor covers.
func (s *Service) AssignPrograms(ctx context.Context, userID string, programIDs []int64) error {
	if _, err := s.Users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.Programs.AssignToUser(ctx, userID, programIDs)
}
