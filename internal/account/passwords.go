package account

import (
	"context"
	"errors"

	"nutriadmin.org/internal/audit"
	"nutriadmin.org/internal/identity"
)

// UpdateTemporalPassword exchanges the active temporary password of email for
// newPassword. The temporary password is checked against the stored credential.
func (s *Service) UpdateTemporalPassword(ctx context.Context, email, newPassword, temporaryPassword string) error {
	user, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !user.IsTemporalPasswordActived {
		return ErrTemporaryPasswordInactive
	}
	if !s.Users.CheckPassword(user, temporaryPassword) {
		return ErrInvalidCredentials
	}
	if err := s.Users.SetPassword(ctx, user.ID, newPassword); err != nil {
		return err
	}

	// SetPassword rewrote the hash; reload so UpdateUser keeps it.
	user, err = s.Users.FindByID(ctx, user.ID)
	if err != nil {
		return err
	}
	user.IsTemporalPasswordActived = false
	user.EmailConfirmed = true
	if err := s.Users.UpdateUser(ctx, user); err != nil {
		return err
	}
	if _, err := s.TempPasswords.DeleteByUser(ctx, user.ID); err != nil {
		s.logger(ctx, "update_temporal_password").WithError(err).WithField("user_id", user.ID).
			Warn("clear temporary password rows failed")
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.temporary_password_exchanged", Resource: "user", ResourceID: user.ID})
	return nil
}

// ForcePassword issues a new temporary password for userID and mails it.
func (s *Service) ForcePassword(ctx context.Context, userID string) error {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	password, err := s.rotate(ctx, user)
	if err != nil {
		return err
	}
	if err := s.Mail.SendTemporaryPassword(ctx, recipient(user), password); err != nil {
		return err
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.password_forced", Resource: "user", ResourceID: user.ID})
	return nil
}

// ResetPassword is the self-service variant of ForcePassword, keyed by email.
func (s *Service) ResetPassword(ctx context.Context, email string) error {
	user, err := s.Users.FindByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	password, err := s.rotate(ctx, user)
	if err != nil {
		return err
	}
	if err := s.Mail.SendPasswordReset(ctx, recipient(user), password); err != nil {
		return err
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.password_reset", Resource: "user", ResourceID: user.ID})
	return nil
}

// ChangePassword replaces the password of a user who knows the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.Users.FindByID(ctx, userID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if !s.Users.CheckPassword(user, current) {
		return ErrInvalidCredentials
	}
	if err := s.Users.SetPassword(ctx, user.ID, next); err != nil {
		return err
	}
	_ = audit.Record(ctx, audit.Event{Action: "account.password_changed", Resource: "user", ResourceID: user.ID})
	return nil
}

// rotate replaces the credential of user with a fresh temporary password,
// raises the temporary flag and records the audit row.
func (s *Service) rotate(ctx context.Context, user identity.User) (string, error) {
	password := s.temporaryPassword()
	if err := s.Users.SetPassword(ctx, user.ID, password); err != nil {
		return "", err
	}
	fresh, err := s.Users.FindByID(ctx, user.ID)
	if err != nil {
		return "", err
	}
	fresh.IsTemporalPasswordActived = true
	if err := s.Users.UpdateUser(ctx, fresh); err != nil {
		return "", err
	}
	if _, err := s.TempPasswords.Insert(ctx, user.ID, password); err != nil {
		return "", err
	}
	return password, nil
}
