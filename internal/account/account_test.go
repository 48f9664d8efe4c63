package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/notify"
	"nutriadmin.org/internal/program"
	"nutriadmin.org/internal/store/pg"
)

const devPassword = "9c272156"

type sentMail struct {
	kind     string
	to       string
	password string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMail) record(kind string, to notify.Recipient, pw string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{kind: kind, to: to.Email, password: pw})
	return f.err
}

func (f *fakeMail) SendWelcome(_ context.Context, to notify.Recipient, _ string, pw string) error {
	return f.record("welcome", to, pw)
}

func (f *fakeMail) SendTemporaryPassword(_ context.Context, to notify.Recipient, pw string) error {
	return f.record("temporary", to, pw)
}

func (f *fakeMail) SendAgencyAssignment(_ context.Context, to notify.Recipient, _ string, _ bool) error {
	return f.record("assignment", to, "")
}

func (f *fakeMail) SendPasswordReset(_ context.Context, to notify.Recipient, pw string) error {
	return f.record("reset", to, pw)
}

// zeroIDAgencies reports success without creating anything.
type zeroIDAgencies struct {
	agency.Repository
}

func (zeroIDAgencies) Insert(context.Context, agency.Agency) (int64, error) { return 0, nil }

type fixture struct {
	svc         *Service
	store       *identity.MemoryStore
	agencies    *agency.Memory
	assignments *agency.MemoryAssignments
	programs    *program.Memory
	perms       *auth.MemoryPermissions
	temps       *auth.MemoryTemporaryPasswords
	mail        *fakeMail
	tokens      *auth.TokenService
}

func newFixture(t *testing.T, wrap func(agency.Repository) agency.Repository) *fixture {
	t.Helper()
	f := &fixture{
		store:       identity.NewMemoryStore(identity.RoleAdministrator, identity.RoleAgencyAdministrator, identity.RoleMonitor),
		agencies:    agency.NewMemory(),
		assignments: agency.NewMemoryAssignments(),
		programs:    program.NewMemory("Comedor", "Despensa"),
		perms:       auth.NewMemoryPermissions(auth.SchoolPermissions...),
		temps:       auth.NewMemoryTemporaryPasswords(),
		mail:        &fakeMail{},
	}
	f.programs.AgencyLinks = f.agencies.ProgramIDs
	f.agencies.Programs = f.programs
	f.agencies.Assignments = f.assignments
	f.assignments.AgencyName = func(id int64) string {
		a, err := f.agencies.GetByID(context.Background(), id)
		if err != nil {
			return ""
		}
		return a.Name
	}

	var err error
	f.tokens, err = auth.NewTokenService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	var agencies agency.Repository = f.agencies
	if wrap != nil {
		agencies = wrap(agencies)
	}
	f.svc, err = NewService(Deps{
		Users:         identity.NewManager(f.store),
		Agencies:      agencies,
		Assignments:   f.assignments,
		Programs:      f.programs,
		Permissions:   f.perms,
		TempPasswords: f.temps,
		Mail:          f.mail,
		Tokens:        f.tokens,
	}, WithDevelopment(devPassword))
	require.NoError(t, err)
	return f
}

func acme() (AgencyRegistration, NewUser) {
	return AgencyRegistration{
			Agency:     agency.Agency{Name: "Acme Pantry", IsActive: true},
			ProgramIDs: []int64{1, 2},
		}, NewUser{
			Email:     "admin@acme.example",
			FirstName: "Ana",
			LastName:  "Rivera",
		}
}

func TestRegisterUserAgencyProvisionsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()

	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)
	require.Equal(t, RegisteredMessage, out.Message)
	require.NotZero(t, out.AgencyID)

	a, err := f.agencies.GetByID(ctx, out.AgencyID)
	require.NoError(t, err)
	require.Equal(t, agency.StatusPending, a.StatusID)
	require.Len(t, a.Programs, 2)
	require.Len(t, a.Users, 1)
	require.True(t, a.Users[0].IsOwner)
	require.Equal(t, out.UserID, a.Users[0].AssignedBy)

	user, err := f.store.UserByID(ctx, out.UserID)
	require.NoError(t, err)
	require.True(t, user.IsTemporalPasswordActived)
	require.True(t, user.IsActive)
	require.False(t, user.EmailConfirmed)

	roles, err := f.store.UserRoles(ctx, out.UserID)
	require.NoError(t, err)
	require.Equal(t, []string{identity.RoleAgencyAdministrator}, roles)

	perms, err := f.perms.ByUser(ctx, out.UserID)
	require.NoError(t, err)
	require.Len(t, perms, len(auth.SchoolPermissions))

	temps, err := f.temps.ByUser(ctx, out.UserID)
	require.NoError(t, err)
	require.Len(t, temps, 1)

	require.Len(t, f.mail.sent, 1)
	require.Equal(t, sentMail{kind: "welcome", to: "admin@acme.example", password: devPassword}, f.mail.sent[0])
}

func TestRegisterUserAgencyCompensatesWhenAgencyIsNotCreated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, func(r agency.Repository) agency.Repository { return zeroIDAgencies{r} })
	reg, nu := acme()

	_, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.ErrorIs(t, err, ErrAgencyNotCreated)

	_, err = f.store.UserByNormalizedEmail(ctx, identity.Normalize(nu.Email))
	require.ErrorIs(t, err, identity.ErrUserNotFound)

	page, err := f.store.ListUsers(ctx, identity.Filter{})
	require.NoError(t, err)
	require.Zero(t, page.Count)

	all, err := f.assignments.GetAll(ctx, agency.AssignmentFilter{})
	require.NoError(t, err)
	require.Zero(t, all.Count)
	require.Empty(t, f.mail.sent)
}

func TestRegisterUserAgencyRejectsDuplicateEmailWithoutCleanup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()

	first, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	_, err = f.svc.RegisterUserAgency(ctx, reg, nu)
	var rules identity.Errors
	require.True(t, errors.As(err, &rules))
	require.Equal(t, "DuplicateEmail", rules[0].Code)

	// The first registration must survive the failed second attempt.
	_, err = f.store.UserByID(ctx, first.UserID)
	require.NoError(t, err)
	_, err = f.agencies.GetByID(ctx, first.AgencyID)
	require.NoError(t, err)
}

func TestRemoveUserAndAgencyRelatedDataIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()

	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveUserAndAgencyRelatedDataByEmail(ctx, nu.Email))
	require.NoError(t, f.svc.RemoveUserAndAgencyRelatedDataByEmail(ctx, nu.Email))

	_, err = f.store.UserByID(ctx, out.UserID)
	require.ErrorIs(t, err, identity.ErrUserNotFound)
	_, err = f.agencies.GetByID(ctx, out.AgencyID)
	require.ErrorIs(t, err, agency.ErrNotFound)
	temps, err := f.temps.ByUser(ctx, out.UserID)
	require.NoError(t, err)
	require.Empty(t, temps)
}

func TestLoginGatesTemporaryPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	_, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	for _, pw := range []string{devPassword, "wrong-password", ""} {
		_, err := f.svc.Login(ctx, nu.Email, pw)
		require.ErrorIs(t, err, ErrTemporaryPasswordActive, "password %q", pw)
	}

	_, err = f.svc.Login(ctx, "nobody@acme.example", devPassword)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegistrationLoginEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "n3w-password", "not-it"), ErrInvalidCredentials)
	require.NoError(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "n3w-password", devPassword))
	require.ErrorIs(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "other-password", devPassword), ErrTemporaryPasswordInactive)

	user, err := f.store.UserByID(ctx, out.UserID)
	require.NoError(t, err)
	require.False(t, user.IsTemporalPasswordActived)
	require.True(t, user.EmailConfirmed)

	_, err = f.svc.Login(ctx, nu.Email, devPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)

	token, err := f.svc.Login(ctx, nu.Email, "n3w-password")
	require.NoError(t, err)
	require.Equal(t, "Bearer", token.TokenType)
	require.Equal(t, int64(f.tokens.TTL().Seconds()), token.ExpiresIn)

	claims, err := f.tokens.ParseAndValidate(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, out.UserID, claims.UserID)
	require.Equal(t, "Acme Pantry", claims.Agency)
	require.Equal(t, "1", claims.AgencyID)
	require.ElementsMatch(t, []string{"Comedor", "Despensa"}, claims.Programs)
	require.ElementsMatch(t, auth.SchoolPermissions, claims.Permissions)
}

func TestMonitorLoginCarriesProgramsButNoAgency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	monitorID, err := f.svc.RegisterUser(ctx, NewUser{
		Email: "monitor@acme.example", FirstName: "Mario", LastName: "Diaz",
	}, identity.RoleMonitor, out.AgencyID, AssignmentFlags{IsMonitor: true})
	require.NoError(t, err)
	require.NoError(t, f.svc.AssignPrograms(ctx, monitorID, []int64{2}))
	require.NoError(t, f.svc.UpdateTemporalPassword(ctx, "monitor@acme.example", "monitor-pass", devPassword))

	token, err := f.svc.Login(ctx, "monitor@acme.example", "monitor-pass")
	require.NoError(t, err)
	claims, err := f.tokens.ParseAndValidate(token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{"Despensa"}, claims.Programs)
	require.Equal(t, []string{"2"}, claims.ProgramIDs)
	require.Empty(t, claims.Agency)
	require.Empty(t, claims.AgencyID)
	require.Empty(t, claims.Permissions)
}

func TestLoginRejectsInactiveOutsideDevelopment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "n3w-password", devPassword))
	require.NoError(t, f.svc.SetActive(ctx, out.UserID, false))

	f.svc.development = false

	_, err = f.svc.Login(ctx, nu.Email, "n3w-password")
	require.ErrorIs(t, err, ErrUserInactive)

	f.svc.development = true
	_, err = f.svc.Login(ctx, nu.Email, "n3w-password")
	require.NoError(t, err)
}

func TestForceAndResetPasswordReactivateTemporaryFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "n3w-password", devPassword))

	require.NoError(t, f.svc.ForcePassword(ctx, out.UserID))
	_, err = f.svc.Login(ctx, nu.Email, "n3w-password")
	require.ErrorIs(t, err, ErrTemporaryPasswordActive)
	require.Equal(t, "temporary", f.mail.sent[len(f.mail.sent)-1].kind)

	require.NoError(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "third-password", devPassword))
	require.NoError(t, f.svc.ResetPassword(ctx, nu.Email))
	require.Equal(t, "reset", f.mail.sent[len(f.mail.sent)-1].kind)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "ghost@acme.example"), ErrUserNotFound)
	require.ErrorIs(t, f.svc.ForcePassword(ctx, "missing"), ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateTemporalPassword(ctx, nu.Email, "n3w-password", devPassword))

	require.ErrorIs(t, f.svc.ChangePassword(ctx, out.UserID, "bad", "another-password"), ErrInvalidCredentials)

	err = f.svc.ChangePassword(ctx, out.UserID, "n3w-password", "short")
	var rules identity.Errors
	require.True(t, errors.As(err, &rules))

	require.NoError(t, f.svc.ChangePassword(ctx, out.UserID, "n3w-password", "another-password"))
	_, err = f.svc.Login(ctx, nu.Email, "another-password")
	require.NoError(t, err)
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	second, err := f.agencies.Insert(ctx, agency.Agency{Name: "Beta Kitchen"})
	require.NoError(t, err)
	staffID, err := f.svc.RegisterUser(ctx, NewUser{
		Email: "staff@acme.example", FirstName: "Sol", LastName: "Luna",
	}, identity.RoleAgencyAdministrator, out.AgencyID, AssignmentFlags{})
	require.NoError(t, err)

	_, err = f.svc.AssignAgency(ctx, AgencyAssignment{UserID: staffID, AgencyID: second})
	require.NoError(t, err)
	details, err := f.svc.GetUser(ctx, staffID)
	require.NoError(t, err)
	require.NotNil(t, details.Agency)
	require.Equal(t, second, details.Agency.AgencyID)
	require.Equal(t, "Beta Kitchen", details.Agency.AgencyName)
	require.Equal(t, "assignment", f.mail.sent[len(f.mail.sent)-1].kind)

	_, err = f.svc.AssignAgency(ctx, AgencyAssignment{UserID: staffID, AgencyID: 999})
	require.ErrorIs(t, err, ErrAgencyNotFound)

	require.NoError(t, f.svc.AssignPermissions(ctx, staffID, []int64{2, 2, 3}))
	perms, err := f.svc.UserPermissions(ctx, staffID)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	require.ErrorIs(t, f.svc.AssignPermissions(ctx, staffID, []int64{0}), ErrInvalidInput)

	require.NoError(t, f.svc.UpdateProfile(ctx, ProfileUpdate{ID: staffID, FirstName: "Sol", LastName: "Sombra"}))
	details, err = f.svc.GetUser(ctx, staffID)
	require.NoError(t, err)
	require.Equal(t, "Sombra", details.LastName)
	require.Equal(t, "staff@acme.example", details.Email)

	page, err := f.svc.ListUsers(ctx, identity.Filter{Role: identity.RoleAgencyAdministrator})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.Count)

	require.NoError(t, f.svc.DeleteUser(ctx, staffID))
	_, err = f.svc.GetUser(ctx, staffID)
	require.ErrorIs(t, err, ErrUserNotFound)
	_, err = f.agencies.GetByID(ctx, second)
	require.NoError(t, err)
	require.ErrorIs(t, f.svc.DeleteUser(ctx, staffID), ErrUserNotFound)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(Deps{})
	require.Error(t, err)

	f := newFixture(t, nil)
	_, err = NewService(f.svc.Deps, WithDevelopment("short"))
	require.Error(t, err)
}

// conflictingUsers fails CreateUser the way Postgres does when a concurrent
// registration commits the same email first.
type conflictingUsers struct {
	UserManager
}

func (conflictingUsers) CreateUser(context.Context, identity.User, string) (identity.User, error) {
	return identity.User{}, errors.Join(pg.ErrConflict, errors.New(`duplicate key value violates unique constraint "identity_users_normalized_email_key"`))
}

func TestRegisterUserAgencyCreateFailureKeepsExistingOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()

	first, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	f.svc.Users = conflictingUsers{f.svc.Users}
	_, err = f.svc.RegisterUserAgency(ctx, reg, nu)
	require.ErrorIs(t, err, pg.ErrConflict)

	owner, err := f.store.UserByID(ctx, first.UserID)
	require.NoError(t, err)
	require.Equal(t, nu.Email, owner.Email)

	_, err = f.agencies.GetByID(ctx, first.AgencyID)
	require.NoError(t, err)
	assignment, err := f.assignments.ByUser(ctx, first.UserID)
	require.NoError(t, err)
	require.Equal(t, first.AgencyID, assignment.AgencyID)
	temps, err := f.temps.ByUser(ctx, first.UserID)
	require.NoError(t, err)
	require.Len(t, temps, 1)
}

func TestRegisterUserAgencyIgnoresSuppliedStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	reg, nu := acme()
	reg.Agency.StatusID = 2
	reg.Agency.RejectionJustification = "n/a"

	out, err := f.svc.RegisterUserAgency(ctx, reg, nu)
	require.NoError(t, err)

	a, err := f.agencies.GetByID(ctx, out.AgencyID)
	require.NoError(t, err)
	require.Equal(t, agency.StatusPending, a.StatusID)
	require.Empty(t, a.RejectionJustification)
}
