package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// Firebase implements Provider over the Firebase Auth admin client.
type Firebase struct {
	auth *auth.Client
}

func NewFirebase(authClient *auth.Client) *Firebase {
	return &Firebase{auth: authClient}
}

var _ Provider = (*Firebase)(nil)

func (p *Firebase) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	decoded, err := p.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("while verifying ID token: %w", err)
	}

	admin, _ := decoded.Claims["admin"].(bool)
	return &Identity{
		Subject: decoded.UID,
		Admin:   admin,
		Claims:  decoded.Claims,
	}, nil
}

func (p *Firebase) CreateUser(ctx context.Context, email, password string) (string, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)
	record, err := p.auth.CreateUser(ctx, params)
	if err != nil {
		return "", fmt.Errorf("while creating user: %w", err)
	}
	return record.UID, nil
}

func (p *Firebase) SetAdminClaim(ctx context.Context, uid string, admin bool) error {
	claims := map[string]any{"admin": admin}
	if err := p.auth.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("while setting custom claims for %s: %w", uid, err)
	}
	return nil
}

func (p *Firebase) DeleteUser(ctx context.Context, uid string) error {
	if err := p.auth.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("while deleting user %s: %w", uid, err)
	}
	return nil
}
