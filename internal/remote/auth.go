// Package remote is the adapter to the hosted backend mirror: profile
// authentication, generic row storage, and a poll-based change feed. Its
// uuid row ids are unrelated to the local store's prefixed entity ids and
// the two must never be conflated.
package remote

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/errors"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/metrics"
	"github.com/kushagraameta123/RETINALAI-sub000/internal/shared/types"
)

// Profile is the authoritative account row. Role comes from here, never from
// anything the client sent.
type Profile struct {
	ID        types.ID  `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an issued sign-in session.
type Session struct {
	ID        types.ID  `json:"id"`
	ProfileID types.ID  `json:"profile_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthClient authenticates against the profiles table. Password checks run
// in the database via pgcrypto, so hashes never cross the wire.
type AuthClient struct {
	pool *pgxpool.Pool
	log  *zap.Logger
	ttl  time.Duration
}

// NewAuthClient creates an auth client with the given session lifetime.
func NewAuthClient(pool *pgxpool.Pool, ttl time.Duration, log *zap.Logger) *AuthClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthClient{pool: pool, log: log, ttl: ttl}
}

// SignIn verifies the credentials and opens a session. The returned profile
// carries the authoritative role.
func (c *AuthClient) SignIn(ctx context.Context, email, password string) (*Profile, *Session, error) {
	var p Profile
	err := c.pool.QueryRow(ctx, `
		SELECT id, email, role, full_name, created_at
		FROM profiles
		WHERE email = $1 AND password_hash = crypt($2, password_hash)
	`, email, password).Scan(&p.ID, &p.Email, &p.Role, &p.FullName, &p.CreatedAt)
	if err != nil {
		metrics.RecordSignIn(false)
		if err == pgx.ErrNoRows {
			return nil, nil, errors.Unauthorized("invalid email or password")
		}
		return nil, nil, errors.Wrap(err, "sign-in query failed")
	}

	var s Session
	s.ProfileID = p.ID
	err = c.pool.QueryRow(ctx, `
		INSERT INTO sessions (profile_id, expires_at)
		VALUES ($1, NOW() + $2::interval)
		RETURNING id, created_at, expires_at
	`, p.ID, c.ttl.String()).Scan(&s.ID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		metrics.RecordSignIn(false)
		return nil, nil, errors.Wrap(err, "failed to open session")
	}

	metrics.RecordSignIn(true)
	c.log.Info("sign-in",
		zap.String("profile_id", p.ID.String()),
		zap.String("role", p.Role))
	return &p, &s, nil
}

// SignOut revokes the session. Revoking an already revoked or unknown
// session is not an error.
func (c *AuthClient) SignOut(ctx context.Context, sessionID types.ID) error {
	_, err := c.pool.Exec(ctx, `
		UPDATE sessions SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`, sessionID)
	if err != nil {
		return errors.Wrap(err, "sign-out failed")
	}
	return nil
}

// SessionValid reports whether the session exists, is unexpired, and has not
// been revoked.
func (c *AuthClient) SessionValid(ctx context.Context, sessionID types.ID) (bool, error) {
	var valid bool
	err := c.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE id = $1 AND revoked_at IS NULL AND expires_at > NOW()
		)
	`, sessionID).Scan(&valid)
	if err != nil {
		return false, errors.Wrap(err, "session lookup failed")
	}
	return valid, nil
}
