// Package app assembles the repositories and services of the API from the
// runtime configuration. With a Postgres DSN every store is backed by the
// database procedures; without one the service runs on in-process stores.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"nutriadmin.org/internal/account"
	"nutriadmin.org/internal/agency"
	"nutriadmin.org/internal/auth"
	"nutriadmin.org/internal/cache"
	"nutriadmin.org/internal/config"
	"nutriadmin.org/internal/geo"
	"nutriadmin.org/internal/household"
	"nutriadmin.org/internal/identity"
	"nutriadmin.org/internal/lookup"
	"nutriadmin.org/internal/notify"
	"nutriadmin.org/internal/obs"
	"nutriadmin.org/internal/program"
	"nutriadmin.org/internal/school"
	"nutriadmin.org/internal/store/pg"
)

const mailTimeout = 10 * time.Second

// Services holds every collaborator the HTTP layer needs. Schools, Households,
// Geo and Files are nil when no database is configured.
type Services struct {
	DB    *pg.Store
	Cache cache.Backend

	Lookups       map[string]lookup.Repository
	Programs      program.Repository
	Agencies      agency.Repository
	Assignments   agency.AssignmentRepository
	Files         agency.FileRepository
	Schools       school.Repository
	Households    household.Repository
	Geo           geo.Repository
	Users         *identity.Manager
	Permissions   auth.PermissionStore
	TempPasswords auth.TemporaryPasswordStore
	Tokens        *auth.TokenService
	Mail          notify.EmailService
	Account       *account.Service
}

// New wires the services for cfg. db may be nil; backend may be nil, which
// disables caching.
func New(cfg config.Config, db *pg.Store, backend cache.Backend) (*Services, error) {
	if backend == nil {
		backend = cache.Noop{}
	}
	tokens, err := auth.NewTokenService(cfg.AuthSecret,
		auth.WithIssuer(cfg.AuthIssuer),
		auth.WithAudience(cfg.AuthAudience),
		auth.WithTTL(cfg.TokenTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("token service: %w", err)
	}

	var transport notify.Transport = notify.LogTransport{}
	if cfg.MailRelayURL != "" {
		transport = notify.NewRelayTransport(cfg.MailRelayURL, cfg.MailAPIKey, mailTimeout)
	}
	mailer, err := notify.NewMailer(transport, cfg.MailFrom, cfg.LoginURL)
	if err != nil {
		return nil, err
	}

	s := &Services{DB: db, Cache: backend, Tokens: tokens, Mail: mailer}
	if db != nil {
		s.wirePostgres(cfg, db)
	} else {
		s.wireMemory()
	}
	for key, repo := range s.Lookups {
		if repo.Definition().Cached {
			s.Lookups[key] = lookup.NewCached(repo, backend, cfg.CacheTTL)
		}
	}

	var opts []account.Option
	if cfg.IsDevelopment() {
		opts = append(opts, account.WithDevelopment(cfg.DevTemporaryPassword))
	}
	s.Account, err = account.NewService(account.Deps{
		Users:         s.Users,
		Agencies:      s.Agencies,
		Assignments:   s.Assignments,
		Programs:      s.Programs,
		Permissions:   s.Permissions,
		TempPasswords: s.TempPasswords,
		Mail:          s.Mail,
		Tokens:        s.Tokens,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Services) wirePostgres(cfg config.Config, db *pg.Store) {
	s.Lookups = make(map[string]lookup.Repository, len(lookup.All))
	for _, def := range lookup.All {
		s.Lookups[def.Key] = lookup.NewPGRepository(db, def)
	}
	s.Programs = program.NewPGRepository(db)
	s.Agencies = agency.NewPGRepository(db)
	s.Assignments = agency.NewPGAssignments(db)
	s.Files = agency.NewPGFiles(db, cfg.FilesBaseURL)
	s.Schools = school.NewPGRepository(db)
	s.Households = household.NewPGRepository(db)
	s.Geo = geo.NewPGRepository(db)
	s.Users = identity.NewManager(identity.NewPGStore(db.DB()))
	s.Permissions = auth.NewPGPermissions(db)
	s.TempPasswords = auth.NewPGTemporaryPasswords(db)
}

// memorySeeds are the rows reference tables start with when no database is
// configured. AgencyStatus keeps "Pendiente" first so its id matches
// agency.StatusPending.
var memorySeeds = map[string][]string{
	lookup.AgencyStatus.Key: {"Pendiente", "Aprobada", "Rechazada"},
	lookup.MealType.Key:     {"Desayuno", "Almuerzo", "Merienda", "Cena"},
	lookup.Permission.Key:   auth.SchoolPermissions,
}

func (s *Services) wireMemory() {
	s.Lookups = make(map[string]lookup.Repository, len(lookup.All))
	for _, def := range lookup.All {
		s.Lookups[def.Key] = lookup.NewMemoryStore(def, memorySeeds[def.Key]...)
	}

	programs := program.NewMemory()
	agencies := agency.NewMemory()
	assignments := agency.NewMemoryAssignments()
	programs.AgencyLinks = agencies.ProgramIDs
	agencies.Programs = programs
	agencies.Assignments = assignments
	assignments.AgencyName = func(id int64) string {
		a, err := agencies.GetByID(context.Background(), id)
		if err != nil {
			return ""
		}
		return a.Name
	}
	s.Programs = programs
	s.Agencies = agencies
	s.Assignments = assignments

	perms := auth.NewMemoryPermissions(auth.SchoolPermissions...)
	perms.GrantRole(identity.RoleAdministrator, auth.SchoolPermissions...)
	s.Permissions = perms
	s.TempPasswords = auth.NewMemoryTemporaryPasswords()
	s.Users = identity.NewManager(identity.NewMemoryStore(
		identity.RoleAdministrator, identity.RoleAgencyAdministrator, identity.RoleMonitor,
	))
}

// BootstrapAdmin creates an active Administrator with a permanent password
// unless a user with email already exists.
func (s *Services) BootstrapAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	if _, err := s.Users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, identity.ErrUserNotFound) {
		return err
	}
	u, err := s.Users.CreateUser(ctx, identity.User{
		Email:          email,
		FirstName:      "Admin",
		IsActive:       true,
		EmailConfirmed: true,
	}, password)
	if err != nil {
		return err
	}
	if err := s.Users.AddToRole(ctx, u.ID, identity.RoleAdministrator); err != nil {
		return err
	}
	obs.Logger().WithFields(logrus.Fields{"user_id": u.ID, "email": email}).Info("administrator bootstrapped")
	return nil
}

// Ping checks the database when one is configured.
func (s *Services) Ping(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Ping(ctx)
}

func (s *Services) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
