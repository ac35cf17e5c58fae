// Package identity establishes who is making a request and talks to the
// identity provider for account credential lifecycle operations.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthorized is returned for every verification failure.  Callers must
// not learn whether the header was missing, malformed, or carried an
// invalid token.
var ErrUnauthorized = errors.New("unauthorized")

// Identity is a verified caller.
type Identity struct {
	Subject string
	Admin   bool
	Claims  map[string]any
}

// Provider is the narrow contract against the identity provider.
type Provider interface {
	// VerifyToken validates and decodes a bearer token.
	VerifyToken(ctx context.Context, token string) (*Identity, error)

	// CreateUser registers a credential and returns the provider-issued id.
	CreateUser(ctx context.Context, email, password string) (string, error)

	// SetAdminClaim attaches or removes the admin capability claim.
	SetAdminClaim(ctx context.Context, uid string, admin bool) error

	// DeleteUser removes a credential.  Used to unwind failed provisioning.
	DeleteUser(ctx context.Context, uid string) error
}

// Verifier gates protected operations on a bearer credential.
type Verifier struct {
	provider Provider
}

func NewVerifier(provider Provider) *Verifier {
	return &Verifier{provider: provider}
}

const bearerPrefix = "Bearer "

// Verify checks an Authorization header value and returns the caller's
// identity.  Every failure mode collapses to ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, authorization string) (*Identity, error) {
	if !strings.HasPrefix(authorization, bearerPrefix) {
		return nil, ErrUnauthorized
	}

	token := strings.TrimPrefix(authorization, bearerPrefix)
	if token == "" {
		return nil, ErrUnauthorized
	}

	ident, err := v.provider.VerifyToken(ctx, token)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return ident, nil
}
