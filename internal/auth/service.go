package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/remote"
	sharedauth "github.com/kushagraameta123/RETINALAI-sub000/internal/shared/auth"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/config"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/events"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Authenticator is the slice of the remote adapter the login service needs.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*remote.Profile, *remote.Session, error)
	SignOut(ctx context.Context, sessionID types.ID) error
}

// Service performs portal sign-in and sign-out.
type Service struct {
	authn Authenticator
	cfg   config.AuthConfig
	log   *zap.Logger
	bus   events.EventBus
	now   func() time.Time
}

// NewService creates the login service.
func NewService(authn Authenticator, cfg config.AuthConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		authn: authn,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}
}

// WithBus attaches an event bus so sign-in activity reaches the audit trail.
func (s *Service) WithBus(bus events.EventBus) *Service {
	s.bus = bus
	return s
}

func (s *Service) publish(ctx context.Context, eventType string, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewEvent(eventType, "auth-service", data)); err != nil {
		s.log.Warn("failed to publish auth event", zap.String("type", eventType), zap.Error(err))
	}
}

// LoginResult carries the issued token and the authenticated identity.
type LoginResult struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	UserID    types.ID       `json:"userId"`
	Email     string         `json:"email"`
	Role      Role           `json:"role"`
	FullName  string         `json:"fullName"`
	SessionID types.ID       `json:"sessionId"`
}

// Login verifies the credentials and issues a session token. The role on the
// profile row is authoritative; requestedRole is only a UI affordance. When
// the two disagree the just-opened session is revoked immediately so no
// authenticated-but-unauthorized session survives, and the caller gets a
// forbidden error.
func (s *Service) Login(ctx context.Context, email, password, requestedRole string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, errors.Validation("validation failed", map[string]string{
			"email":    "email is required",
			"password": "password is required",
		})
	}

	profile, session, err := s.authn.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if requestedRole != "" && requestedRole != profile.Role {
		if err := s.authn.SignOut(ctx, session.ID); err != nil {
			s.log.Warn("forced sign-out failed",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
		s.log.Info("role mismatch at login, session revoked",
			zap.String("profile_id", profile.ID.String()),
			zap.String("profile_role", profile.Role),
			zap.String("requested_role", requestedRole))
		s.publish(ctx, "auth.signin_denied", map[string]any{
			"id":             profile.ID.String(),
			"email":          profile.Email,
			"profile_role":   profile.Role,
			"requested_role": requestedRole,
		})
		return nil, errors.Forbidden("selected role does not match your account")
	}

	expiresAt := s.now().Add(time.Duration(s.cfg.SessionTTLMinutes) * time.Minute)
	claims := sharedauth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID.String(),
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email:     profile.Email,
		Role:      profile.Role,
		SessionID: session.ID.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign session token")
	}

	s.publish(ctx, "auth.signin", map[string]any{
		"id":         profile.ID.String(),
		"email":      profile.Email,
		"role":       profile.Role,
		"session_id": session.ID.String(),
	})

	return &LoginResult{
		Token:     signed,
		ExpiresAt: expiresAt,
		UserID:    profile.ID,
		Email:     profile.Email,
		Role:      Role(profile.Role),
		FullName:  profile.FullName,
		SessionID: session.ID,
	}, nil
}

// Logout revokes the session behind the token's session id.
func (s *Service) Logout(ctx context.Context, sessionID types.ID) error {
	if sessionID.IsZero() {
		return errors.BadRequest("missing session id")
	}
	if err := s.authn.SignOut(ctx, sessionID); err != nil {
		return err
	}
	s.publish(ctx, "auth.signout", map[string]any{"session_id": sessionID.String()})
	return nil
}
