package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"startrip/internal/domain"
)

type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	User      domain.UserProfile `json:"user"`
}

type AuthService struct {
	verifier domain.TokenVerifier
	users    domain.UserStore
	sessions domain.SessionIssuer
	journal  *JournalService
	now      func() time.Time
}

func NewAuthService(v domain.TokenVerifier, u domain.UserStore, s domain.SessionIssuer, j *JournalService) *AuthService {
	return &AuthService{verifier: v, users: u, sessions: s, journal: j, now: time.Now}
}

// SignIn exchanges a provider ID token for a session. Existing profiles keep
// their creation time and preferences.
func (a *AuthService) SignIn(ctx context.Context, idToken string) (Session, error) {
	if a.verifier == nil {
		return Session{}, fmt.Errorf("%w: sign-in not configured", domain.ErrUnavailable)
	}
	if strings.TrimSpace(idToken) == "" {
		return Session{}, fmt.Errorf("%w: id token required", domain.ErrInvalidInput)
	}
	id, err := a.verifier.Verify(ctx, idToken)
	if err != nil {
		return Session{}, err
	}
	if id.Subject == "" {
		return Session{}, fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}

	now := a.now().UTC()
	p := domain.UserProfile{UserID: id.Subject, CreatedAt: now}
	if a.users != nil {
		existing, err := a.users.GetProfile(ctx, id.Subject)
		switch {
		case err == nil:
			p = existing
		case errors.Is(err, domain.ErrNotFound):
		default:
			return Session{}, fmt.Errorf("load profile: %w", err)
		}
	}
	p.Email = id.Email
	p.DisplayName = id.Name
	p.PhotoURL = id.PhotoURL
	p.LastLoginAt = now
	if a.users != nil {
		if err := a.users.UpsertProfile(ctx, p); err != nil {
			return Session{}, fmt.Errorf("save profile: %w", err)
		}
	}

	if a.journal != nil {
		a.journal.RecordActivity(ctx, p.UserID, domain.ActivityLogin, map[string]any{"email": p.Email})
	}

	tok, exp, err := a.sessions.Issue(p.UserID)
	if err != nil {
		return Session{}, err
	}
	log.Info().Str("user", p.UserID).Msg("user signed in")
	return Session{Token: tok, ExpiresAt: exp, User: p}, nil
}

// Authenticate resolves a session token to its user id.
func (a *AuthService) Authenticate(token string) (string, error) {
	if token == "" {
		return "", domain.ErrUnauthorized
	}
	return a.sessions.Parse(token)
}

func (a *AuthService) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	if a.users == nil {
		return domain.UserProfile{}, fmt.Errorf("%w: profile store not configured", domain.ErrUnavailable)
	}
	return a.users.GetProfile(ctx, userID)
}

// WatchProfile subscribes fn to profile changes until cancel is called or ctx ends.
func (a *AuthService) WatchProfile(ctx context.Context, userID string, fn func(domain.UserProfile)) (func(), error) {
	if a.users == nil {
		return nil, fmt.Errorf("%w: profile store not configured", domain.ErrUnavailable)
	}
	return a.users.WatchProfile(ctx, userID, fn)
}
