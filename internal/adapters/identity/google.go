package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"startrip/internal/domain"
)

const GoogleIssuer = "https://accounts.google.com"

// GoogleVerifier checks Google sign-in ID tokens issued for clientID.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier runs OIDC discovery against issuer (GoogleIssuer when empty).
func NewGoogleVerifier(ctx context.Context, issuer, clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, fmt.Errorf("client id is required")
	}
	if issuer == "" {
		issuer = GoogleIssuer
	}
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &GoogleVerifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, raw string) (domain.Identity, error) {
	tok, err := g.verifier.Verify(ctx, raw)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := tok.Claims(&claims); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: claims: %v", domain.ErrUnauthorized, err)
	}
	return domain.Identity{
		Subject:  tok.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		PhotoURL: claims.Picture,
	}, nil
}
