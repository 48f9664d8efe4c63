package account

import "errors"

var (
	ErrUserNotFound              = errors.New("account: user not found")
	ErrInvalidCredentials        = errors.New("account: invalid credentials")
	ErrTemporaryPasswordActive   = errors.New("account: temporary password must be changed before login")
	ErrTemporaryPasswordInactive = errors.New("account: no temporary password is active")
	ErrUserInactive              = errors.New("account: user is inactive")
	ErrAgencyNotCreated          = errors.New("account: agency could not be created")
	ErrAgencyNotFound            = errors.New("account: agency not found")
	ErrInvalidInput              = errors.New("account: invalid input")
)
