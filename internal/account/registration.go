package account

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/audit"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
)

// AgencyRegistration is the agency half of an owner registration.
type AgencyRegistration struct {
	Agency     agency.Agency
	ProgramIDs []int64
}

// Registration is the outcome of RegisterUserAgency.
type Registration struct {
	UserID   string `json:"user_id"`
	AgencyID int64  `json:"agency_id"`
	Message  string `json:"message"`
}

// RegisterUserAgency provisions an agency together with its administrator.
// Any failure after the user exists removes the user and whatever agency
// state was created before returning.
func (s *Service) RegisterUserAgency(ctx context.Context, reg AgencyRegistration, nu NewUser) (Registration, error) {
	log := s.logger(ctx, "register_user_agency").WithField("email", nu.Email)
	password := s.temporaryPassword()

	// A failed create leaves nothing to compensate. Cleaning up by email here
	// would remove a concurrent registrant who won the unique index.
	user, err := s.Users.CreateUser(ctx, nu.toUser(), password)
	if err != nil {
		log.WithError(err).Warn("create user failed")
		return Registration{}, err
	}
	log = log.WithField("user_id", user.ID)

	if err := s.Users.AddToRole(ctx, user.ID, identity.RoleAgencyAdministrator); err != nil {
		log.WithError(err).Warn("add role failed")
		s.rollback(ctx, user.Email, 0)
		return Registration{}, err
	}
	if _, err := s.TempPasswords.Insert(ctx, user.ID, password); err != nil {
		log.WithError(err).Error("persist temporary password failed")
		s.rollback(ctx, user.Email, 0)
		return Registration{}, err
	}

	a := reg.Agency
	a.ID = 0
	a.ProgramIDs = nil
	// new agencies always wait for an Administrator to review them
	a.StatusID = agency.StatusPending
	a.RejectionJustification = ""
	agencyID, err := s.Agencies.Insert(ctx, a)
	if err != nil || agencyID == 0 {
		log.WithError(err).Error("insert agency failed")
		s.rollback(ctx, user.Email, agencyID)
		if err == nil {
			return Registration{}, ErrAgencyNotCreated
		}
		return Registration{}, fmt.Errorf("%w: %w", ErrAgencyNotCreated, err)
	}
	log = log.WithField("agency_id", agencyID)

	for _, pid := range reg.ProgramIDs {
		if _, err := s.Agencies.InsertProgram(ctx, agencyID, pid); err != nil {
			log.WithError(err).WithField("program_id", pid).Warn("link agency program failed")
		}
	}

	if _, err := s.Assignments.Insert(ctx, agency.UserAssignment{
		UserID:     user.ID,
		AgencyID:   agencyID,
		IsOwner:    true,
		AssignedBy: user.ID,
	}); err != nil {
		log.WithError(err).Error("assign agency failed")
		s.rollback(ctx, user.Email, agencyID)
		return Registration{}, err
	}

	if err := s.Mail.SendWelcome(ctx, recipient(user), a.Name, password); err != nil {
		log.WithError(err).Error("welcome email failed")
	}
	for _, perm := range auth.SchoolPermissions {
		if _, err := s.Permissions.AssignByName(ctx, user.ID, perm); err != nil {
			log.WithError(err).WithField("permission", perm).Warn("assign permission failed")
		}
	}

	_ = audit.Record(ctx, audit.Event{
		Action:     "account.agency_registered",
		Resource:   "agency",
		ResourceID: strconv.FormatInt(agencyID, 10),
		Fields:     map[string]any{"owner_id": user.ID},
	})
	return Registration{UserID: user.ID, AgencyID: agencyID, Message: RegisteredMessage}, nil
}

// rollback runs the cleanup for email and removes agencyID when the agency was
// created but never linked to the user.
func (s *Service) rollback(ctx context.Context, email string, agencyID int64) {
	log := s.logger(ctx, "rollback").WithField("email", email)
	if err := s.RemoveUserAndAgencyRelatedDataByEmail(ctx, email); err != nil {
		log.WithError(err).Error("compensation failed")
	}
	if agencyID > 0 {
		if _, err := s.Agencies.Delete(ctx, agencyID); err != nil {
			log.WithError(err).WithField("agency_id", agencyID).Error("compensation agency delete failed")
		}
	}
}

// RemoveUserAndAgencyRelatedDataByEmail deletes a user and everything the owner
// registration created for it. Each step is skipped when its target is gone,
// so repeated calls are no-ops.
func (s *Service) RemoveUserAndAgencyRelatedDataByEmail(ctx context.Context, email string) error {
	user, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	in, err := s.Users.IsInRole(ctx, user.ID, identity.RoleAgencyAdministrator)
	if err != nil {
		return err
	}
	if in {
		if err := s.Users.RemoveFromRole(ctx, user.ID, identity.RoleAgencyAdministrator); err != nil {
			return err
		}
	}
	if _, err := s.TempPasswords.DeleteByUser(ctx, user.ID); err != nil {
		return err
	}
	if _, err := s.Permissions.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	assignment, err := s.Assignments.ByUser(ctx, user.ID)
	switch {
	case errors.Is(err, agency.ErrNotFound):
	case err != nil:
		return err
	default:
		if _, err := s.Assignments.DeleteByUser(ctx, user.ID); err != nil {
			return err
		}
		if assignment.IsOwner {
			if _, err := s.Agencies.Delete(ctx, assignment.AgencyID); err != nil {
				return err
			}
		}
	}

	if err := s.Users.DeleteUser(ctx, user.ID); err != nil && !errors.Is(err, identity.ErrUserNotFound) {
		return err
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.user_removed", Resource: "user", ResourceID: user.ID, Fields: map[string]any{"email": user.Email}})
	return nil
}

// AssignmentFlags carry the owner/monitor marks of a staff assignment.
type AssignmentFlags struct {
	IsOwner   bool `json:"is_owner"`
	IsMonitor bool `json:"is_monitor"`
}

// RegisterUser creates a staff user in role attached to agencyID. Steps after
// the user exists are not undone; a failure leaves the user in place and logs it.
func (s *Service) RegisterUser(ctx context.Context, nu NewUser, role string, agencyID int64, flags AssignmentFlags) (string, error) {
	log := s.logger(ctx, "register_user").WithField("email", nu.Email)
	password := s.temporaryPassword()

	user, err := s.Users.CreateUser(ctx, nu.toUser(), password)
	if err != nil {
		return "", err
	}
	orphan := func(step string, err error) (string, error) {
		log.WithError(err).WithFields(map[string]any{"user_id": user.ID, "step": step}).
			Warn("user left without complete registration")
		return user.ID, err
	}

	if err := s.Users.AddToRole(ctx, user.ID, role); err != nil {
		return orphan("add_role", err)
	}
	assignedBy, _ := auth.UserIDFromContext(ctx)
	if agencyID > 0 {
		if _, err := s.Assignments.Insert(ctx, agency.UserAssignment{
			UserID:     user.ID,
			AgencyID:   agencyID,
			IsOwner:    flags.IsOwner,
			IsMonitor:  flags.IsMonitor,
			AssignedBy: assignedBy,
		}); err != nil {
			return orphan("assign_agency", err)
		}
	}
	if _, err := s.TempPasswords.Insert(ctx, user.ID, password); err != nil {
		return orphan("temporary_password", err)
	}
	if err := s.Mail.SendTemporaryPassword(ctx, recipient(user), password); err != nil {
		return orphan("email", err)
	}

	_ = audit.Record(ctx, audit.Event{
		Action:     "account.user_registered",
		Resource:   "user",
		ResourceID: user.ID,
		Fields:     map[string]any{"role": role, "agency_id": strconv.FormatInt(agencyID, 10)},
	})
	return user.ID, nil
}
