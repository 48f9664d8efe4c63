package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"slices"

	"nutriadmin.org/internal/store/pg"
)

const testSecret = "test-secret-0123456789"

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc, err := NewTokenService(testSecret, WithIssuer("test-issuer"), WithAudience("api"), WithTTL(30*time.Minute))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	tok, err := svc.Issue(Identity{
		UserID:      "user-42",
		UserName:    "owner@acme.example",
		Email:       "owner@acme.example",
		Roles:       []string{"Agency-Administrator"},
		AgencyID:    7,
		AgencyName:  "Acme Pantry",
		Permissions: []string{PermSchoolRead},
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if tok.TokenType != "Bearer" || tok.ExpiresIn != 1800 {
		t.Fatalf("unexpected token envelope: %+v", tok)
	}

	claims, err := svc.ParseAndValidate(tok.AccessToken)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "user-42" || claims.UserID != "user-42" {
		t.Fatalf("unexpected subject: %s / %s", claims.Subject, claims.UserID)
	}
	if claims.Issuer != "test-issuer" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
	if claims.AgencyID != "7" || claims.Agency != "Acme Pantry" {
		t.Fatalf("agency claims missing: %+v", claims)
	}
	if !slices.Contains(claims.Permissions, PermSchoolRead) {
		t.Fatalf("permissions were not preserved: %v", claims.Permissions)
	}
}

func TestParseRejectsForeignTokens(t *testing.T) {
	svc, _ := NewTokenService(testSecret)
	other, _ := NewTokenService("another-secret-987654321")
	expired, _ := NewTokenService(testSecret, WithClock(func() time.Time { return time.Now().Add(-72 * time.Hour) }))
	wrongAudience, _ := NewTokenService(testSecret, WithAudience("elsewhere"))

	for name, issuer := range map[string]*TokenService{"secret": other, "expired": expired} {
		tok, err := issuer.Issue(Identity{UserID: "u"})
		if err != nil {
			t.Fatalf("%s: Issue: %v", name, err)
		}
		if _, err := svc.ParseAndValidate(tok.AccessToken); err != ErrInvalidToken {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}

	tok, _ := svc.Issue(Identity{UserID: "u"})
	if _, err := wrongAudience.ParseAndValidate(tok.AccessToken); err != ErrInvalidToken {
		t.Fatalf("expected audience mismatch, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u", "iss": defaultIssuer})
	raw, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := svc.ParseAndValidate(raw); err != ErrInvalidToken {
		t.Fatalf("expected unsigned token to be rejected, got %v", err)
	}
	if _, err := NewTokenService("  "); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestBuildClaimsDifferentiatesMonitor(t *testing.T) {
	programs := []ProgramRef{{ID: 3, Name: "Verano"}}

	monitor := BuildClaims(Identity{UserID: "m", Roles: []string{"Monitor"}, AgencyID: 9, Programs: programs})
	if _, ok := monitor["agency"]; ok {
		t.Fatalf("monitor must not carry agency claim")
	}
	if _, ok := monitor["agencyId"]; ok {
		t.Fatalf("monitor must not carry agencyId claim")
	}
	if ids := monitor["programId"].([]string); len(ids) != 1 || ids[0] != "3" {
		t.Fatalf("unexpected programId claim: %v", monitor["programId"])
	}

	owner := BuildClaims(Identity{UserID: "o", Roles: []string{"Agency-Administrator"}, AgencyID: 9, AgencyName: "Acme", Programs: programs})
	if owner["agencyId"] != "9" || owner["agency"] != "Acme" {
		t.Fatalf("owner must carry agency claims: %v", owner)
	}
	if names := owner["program"].([]string); len(names) != 1 || names[0] != "Verano" {
		t.Fatalf("unexpected program claim: %v", owner["program"])
	}
	if _, ok := owner["permission"]; !ok {
		t.Fatalf("owner must carry permission claim")
	}
}

func TestPrincipalContext(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatalf("empty context must be anonymous")
	}
	if HasRole(context.Background(), "Administrator") {
		t.Fatalf("anonymous caller holds no role")
	}

	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: ""})
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatalf("principal without user id must count as absent")
	}

	ctx = ContextWithPrincipal(context.Background(), NewPrincipal(&Claims{
		UserID: "user-7",
		Roles:  []string{"Administrator", "Monitor"},
	}))
	id, ok := UserIDFromContext(ctx)
	if !ok || id != "user-7" {
		t.Fatalf("unexpected user id: %s, ok=%v", id, ok)
	}
	if !HasRole(ctx, "monitor") || !HasRole(ctx, "ADMINISTRATOR") {
		t.Fatalf("HasRole missing expected roles")
	}
	if HasRole(ctx, "Agency-Administrator") {
		t.Fatalf("unexpected role found")
	}
}

func TestEffectivePermissionsMergesRoleGrants(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissions(append([]string{"agency.read"}, SchoolPermissions...)...)
	store.GrantRole("Agency-Administrator", "agency.read", PermSchoolRead)

	if _, err := store.AssignByName(ctx, "u-1", PermSchoolCreate); err != nil {
		t.Fatalf("AssignByName: %v", err)
	}
	if _, err := store.AssignByName(ctx, "u-1", PermSchoolRead); err != nil {
		t.Fatalf("AssignByName: %v", err)
	}
	if _, err := store.AssignByName(ctx, "u-1", "household.export"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	perms, err := EffectivePermissions(ctx, store, "u-1", []string{"Agency-Administrator"})
	if err != nil {
		t.Fatalf("EffectivePermissions: %v", err)
	}
	want := []string{"agency.read", PermSchoolCreate, PermSchoolRead}
	if !slices.Equal(perms, want) {
		t.Fatalf("got %v, want %v", perms, want)
	}
}

func TestTemporaryPasswordsStoreHashes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	store := NewPGTemporaryPasswords(pg.New(db))

	mock.ExpectQuery(regexp.QuoteMeta("select * from temporary_password_insert($1, $2)")).
		WithArgs("u-1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectQuery(regexp.QuoteMeta("select * from temporary_password_delete_by_user($1)")).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(1)))

	id, err := store.Insert(context.Background(), "u-1", "9c272156")
	if err != nil || id != 11 {
		t.Fatalf("Insert = %d, %v", id, err)
	}
	removed, err := store.DeleteByUser(context.Background(), "u-1")
	if err != nil || !removed {
		t.Fatalf("DeleteByUser = %v, %v", removed, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}

	mem := NewMemoryTemporaryPasswords()
	_, _ = mem.Insert(context.Background(), "u-2", "abcdefgh")
	rows, _ := mem.ByUser(context.Background(), "u-2")
	if len(rows) != 1 || VerifyPassword(rows[0].PasswordHash, "abcdefgh") != nil {
		t.Fatalf("memory store did not keep a matching hash: %+v", rows)
	}
}
