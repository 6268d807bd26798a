package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/remote"
	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

type fakeAuthenticator struct {
	profile   *remote.Profile
	session   *remote.Session
	signInErr error
	revoked   []types.ID
}

func (f *fakeAuthenticator) SignIn(ctx context.Context, email, password string) (*remote.Profile, *remote.Session, error) {
	if f.signInErr != nil {
		return nil, nil, f.signInErr
	}
	return f.profile, f.session, nil
}

func (f *fakeAuthenticator) SignOut(ctx context.Context, sessionID types.ID) error {
	f.revoked = append(f.revoked, sessionID)
	return nil
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:         "test-secret",
		SessionTTLMinutes: 30,
	}
}

func doctorFake() *fakeAuthenticator {
	return &fakeAuthenticator{
		profile: &remote.Profile{
			ID:       types.NewID(),
			Email:    "sarah.mitchell@retinal.example",
			Role:     "doctor",
			FullName: "Dr. Sarah Mitchell",
		},
		session: &remote.Session{ID: types.NewID()},
	}
}

func TestLoginIssuesToken(t *testing.T) {
	fake := doctorFake()
	svc := NewService(fake, testAuthConfig(), nil)

	result, err := svc.Login(context.Background(), "sarah.mitchell@retinal.example", "secret", "doctor")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if result.Role != RoleDoctor {
		t.Errorf("Expected role doctor, got '%s'", result.Role)
	}
	if result.Token == "" {
		t.Fatal("Expected a signed token")
	}
	if len(fake.revoked) != 0 {
		t.Error("Successful login should not revoke the session")
	}

	// The token round-trips through the shared claims
	token, err := jwt.ParseWithClaims(result.Token, &sharedauth.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("Issued token does not validate: %v", err)
	}
	claims := token.Claims.(*sharedauth.Claims)
	if claims.Role != "doctor" {
		t.Errorf("Expected role claim 'doctor', got '%s'", claims.Role)
	}
	if claims.SessionID != fake.session.ID.String() {
		t.Errorf("Expected session claim %s, got %s", fake.session.ID, claims.SessionID)
	}
	if claims.Subject != fake.profile.ID.String() {
		t.Errorf("Expected subject %s, got %s", fake.profile.ID, claims.Subject)
	}
}

// The login form's role selector is a UX affordance only: the profile row
// decides. A mismatch revokes the just-opened session.
func TestLoginRoleMismatchForcesSignOut(t *testing.T) {
	fake := doctorFake()
	svc := NewService(fake, testAuthConfig(), nil)

	_, err := svc.Login(context.Background(), "sarah.mitchell@retinal.example", "secret", "patient")
	if err == nil {
		t.Fatal("Expected role mismatch error")
	}
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != "FORBIDDEN" {
		t.Errorf("Expected forbidden error, got %v", err)
	}

	if len(fake.revoked) != 1 || fake.revoked[0] != fake.session.ID {
		t.Errorf("Expected the opened session to be revoked, revoked=%v", fake.revoked)
	}
}

func TestLoginWithoutRoleSelectorSkipsCheck(t *testing.T) {
	fake := doctorFake()
	svc := NewService(fake, testAuthConfig(), nil)

	result, err := svc.Login(context.Background(), "sarah.mitchell@retinal.example", "secret", "")
	if err != nil {
		t.Fatalf("Login without role selector failed: %v", err)
	}
	if result.Role != RoleDoctor {
		t.Errorf("Expected authoritative role doctor, got '%s'", result.Role)
	}
}

func TestLoginBadCredentialsPassThrough(t *testing.T) {
	fake := &fakeAuthenticator{signInErr: errors.Unauthorized("invalid email or password")}
	svc := NewService(fake, testAuthConfig(), nil)

	_, err := svc.Login(context.Background(), "who@mail.example", "wrong", "")
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != "UNAUTHORIZED" {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
}

func TestLoginValidation(t *testing.T) {
	svc := NewService(doctorFake(), testAuthConfig(), nil)

	_, err := svc.Login(context.Background(), "", "", "")
	appErr, ok := err.(*errors.AppError)
	if !ok || appErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestLoginPublishesAuthEvents(t *testing.T) {
	fake := doctorFake()
	bus := events.NewLocalBus(nil)

	var published []events.Event
	bus.SubscribePattern("auth.*", func(ctx context.Context, e events.Event) error {
		published = append(published, e)
		return nil
	})

	svc := NewService(fake, testAuthConfig(), nil).WithBus(bus)
	if _, err := svc.Login(context.Background(), "sarah.mitchell@retinal.example", "secret", "doctor"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if len(published) != 1 || published[0].Type != "auth.signin" {
		t.Fatalf("Expected one auth.signin event, got %v", published)
	}

	if _, err := svc.Login(context.Background(), "sarah.mitchell@retinal.example", "secret", "patient"); err == nil {
		t.Fatal("Expected role mismatch error")
	}
	if len(published) != 2 || published[1].Type != "auth.signin_denied" {
		t.Fatalf("Expected an auth.signin_denied event, got %v", published)
	}

	if err := svc.Logout(context.Background(), fake.session.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if len(published) != 3 || published[2].Type != "auth.signout" {
		t.Fatalf("Expected an auth.signout event, got %v", published)
	}
}

func TestRolePermissions(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RolePatient, PermBookAppointment, true},
		{RolePatient, PermCreateReport, false},
		{RoleDoctor, PermCreateReport, true},
		{RoleDoctor, PermRunTraining, false},
		{RoleClinician, PermViewPatientRecord, true},
		{RoleClinician, PermCreateReport, false},
		{RoleAdmin, PermRunTraining, true},
		{RoleAdmin, PermQueryAudit, true},
	}

	for _, tt := range tests {
		if got := HasPermission(tt.role, tt.perm); got != tt.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
		}
	}
}

func TestValidRole(t *testing.T) {
	for _, ok := range []string{"patient", "doctor", "clinician", "admin"} {
		if !ValidRole(ok) {
			t.Errorf("Expected '%s' to be valid", ok)
		}
	}
	for _, bad := range []string{"", "user", "superadmin", "DOCTOR"} {
		if ValidRole(bad) {
			t.Errorf("Expected '%s' to be invalid", bad)
		}
	}
}
