package account

import (
	"context"
	"errors"

	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/audit"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/program"
)

// Login authenticates userNameOrEmail and issues an access token.
//
// The checks run in a fixed order: unknown user, active temporary password,
// inactive account (skipped in development), then the password itself. A user
// holding a temporary password never gets a token, whatever password is sent.
func (s *Service) Login(ctx context.Context, userNameOrEmail, password string) (auth.Token, error) {
	log := s.logger(ctx, "login").WithField("login", userNameOrEmail)

	user, err := s.Users.FindByNameOrEmail(ctx, userNameOrEmail)
	if errors.Is(err, identity.ErrUserNotFound) {
		return auth.Token{}, ErrUserNotFound
	}
	if err != nil {
		return auth.Token{}, err
	}
	if user.IsTemporalPasswordActived {
		return auth.Token{}, ErrTemporaryPasswordActive
	}
	if !user.IsActive && !s.development {
		return auth.Token{}, ErrUserInactive
	}
	if !s.Users.CheckPassword(user, password) {
		log.Info("login rejected")
		return auth.Token{}, ErrInvalidCredentials
	}

	id, err := s.resolveIdentity(ctx, user)
	if err != nil {
		log.WithError(err).Error("resolve identity failed")
		return auth.Token{}, err
	}
	token, err := s.Tokens.Issue(id)
	if err != nil {
		return auth.Token{}, err
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.login", Resource: "user", ResourceID: user.ID})
	return token, nil
}

// resolveIdentity loads the roles, permissions, agency and programs that go
// into the token of user.
func (s *Service) resolveIdentity(ctx context.Context, user identity.User) (auth.Identity, error) {
	roles, err := s.Users.Roles(ctx, user.ID)
	if err != nil {
		return auth.Identity{}, err
	}
	id := auth.Identity{
		UserID:    user.ID,
		UserName:  user.UserName,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Roles:     roles,
	}

	if id.IsMonitor() {
		programs, err := s.Programs.ByUser(ctx, user.ID)
		if err != nil {
			return auth.Identity{}, err
		}
		id.Programs = programRefs(programs)
		return id, nil
	}

	if id.Permissions, err = auth.EffectivePermissions(ctx, s.Permissions, user.ID, roles); err != nil {
		return auth.Identity{}, err
	}
	assignment, err := s.Assignments.ByUser(ctx, user.ID)
	if errors.Is(err, agency.ErrNotFound) {
		return id, nil
	}
	if err != nil {
		return auth.Identity{}, err
	}
	id.AgencyID = assignment.AgencyID
	id.AgencyName = assignment.AgencyName
	if id.AgencyName == "" {
		a, err := s.Agencies.GetByID(ctx, assignment.AgencyID)
		if err != nil && !errors.Is(err, agency.ErrNotFound) {
			return auth.Identity{}, err
		}
		id.AgencyName = a.Name
	}
	programs, err := s.Programs.ByAgency(ctx, assignment.AgencyID)
	if err != nil {
		return auth.Identity{}, err
	}
	id.Programs = programRefs(programs)
	return id, nil
}

func programRefs(programs []program.Program) []auth.ProgramRef {
	refs := make([]auth.ProgramRef, 0, len(programs))
	for _, p := range programs {
		refs = append(refs, auth.ProgramRef{ID: p.ID, Name: p.Name})
	}
	return refs
}
