package auth

import (
	"context"
	"errors"

	"google.golang.org/api/idtoken"
)

// Identity is a normalized external authentication identity. Facts from the
// provider only, no account decisions.
type Identity struct {
	ProviderUserID string // provider-scoped unique user identifier (sub)
	Email          string
	Name           string
	EmailVerified  bool // whether the provider asserts email ownership
}

// IdentityVerifier validates an external ID token and extracts the asserted
// identity. Implementations must reject bad signatures, wrong audiences, and
// expired tokens.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// GoogleVerifier validates Google-issued ID tokens against a client ID.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("google client id is required")
	}
	return &GoogleVerifier{clientID: clientID}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, rawToken, g.clientID)
	if err != nil {
		return nil, ErrInvalidGoogleToken
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)

	if payload.Subject == "" || email == "" {
		return nil, ErrInvalidGoogleToken
	}

	return &Identity{
		ProviderUserID: payload.Subject,
		Email:          email,
		Name:           name,
		EmailVerified:  verified,
	}, nil
}

var _ IdentityVerifier = (*GoogleVerifier)(nil)
