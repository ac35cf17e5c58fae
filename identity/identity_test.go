package identity

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestVerifyValidToken(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()
	verifier := NewVerifier(provider)

	uid, err := provider.CreateUser(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	token, err := provider.MintToken(uid)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	ident, err := verifier.Verify(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.Subject != uid {
		t.Errorf("Bad subject; got %q, want %q", ident.Subject, uid)
	}
	if ident.Admin {
		t.Errorf("Unexpected admin flag on fresh user")
	}
}

func TestVerifyCarriesAdminClaim(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()
	verifier := NewVerifier(provider)

	uid, _ := provider.CreateUser(ctx, "a@b.com", "secret1")
	if err := provider.SetAdminClaim(ctx, uid, true); err != nil {
		t.Fatalf("SetAdminClaim: %v", err)
	}
	token, _ := provider.MintToken(uid)

	ident, err := verifier.Verify(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ident.Admin {
		t.Errorf("Admin claim not carried through verification")
	}
	if admin, _ := ident.Claims["admin"].(bool); !admin {
		t.Errorf("Claim set missing admin=true, got %v", ident.Claims)
	}
}

func TestVerifyFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()
	verifier := NewVerifier(provider)

	uid, _ := provider.CreateUser(ctx, "a@b.com", "secret1")
	token, _ := provider.MintToken(uid)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"no prefix", token},
		{"lowercase prefix", "bearer " + token},
		{"empty token", "Bearer "},
		{"unknown token", "Bearer deadbeef"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifier.Verify(ctx, tc.header)
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestDeleteUserRevokesTokens(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()
	verifier := NewVerifier(provider)

	uid, _ := provider.CreateUser(ctx, "a@b.com", "secret1")
	token, _ := provider.MintToken(uid)

	if err := provider.DeleteUser(ctx, uid); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if _, err := verifier.Verify(ctx, "Bearer "+token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Token survived credential deletion, err=%v", err)
	}
}

func TestSeededLogin(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()
	verifier := NewVerifier(provider)

	// A seeded account carries a pre-hashed password, as emitted by the
	// passtool command.
	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	uid, err := provider.SeedUser("a@b.com", hash)
	if err != nil {
		t.Fatalf("SeedUser: %v", err)
	}

	token, err := provider.Login(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	ident, err := verifier.Verify(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.Subject != uid {
		t.Errorf("Bad subject; got %q, want %q", ident.Subject, uid)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()

	if _, err := provider.CreateUser(ctx, "a@b.com", "secret1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if _, err := provider.Login(ctx, "a@b.com", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Wrong password: expected ErrBadCredentials, got %v", err)
	}
	if _, err := provider.Login(ctx, "ghost@b.com", "secret1"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("Unknown email: expected ErrBadCredentials, got %v", err)
	}
}

func TestCreatedUserCanLogin(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()

	uid, err := provider.CreateUser(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, err := provider.Login(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	ident, err := provider.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if ident.Subject != uid {
		t.Errorf("Bad subject; got %q, want %q", ident.Subject, uid)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	provider := NewStatic()

	if _, err := provider.CreateUser(ctx, "a@b.com", "secret1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := provider.CreateUser(ctx, "a@b.com", "other"); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Expected ErrEmailExists, got %v", err)
	}
}
