package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists    = errors.New("email already registered")
	ErrUnknownToken   = errors.New("unknown token")
	ErrUnknownSubject = errors.New("unknown subject")
	ErrBadCredentials = errors.New("bad email or password")
)

// Static is an in-memory Provider used by tests and local development.
type Static struct {
	mu     sync.Mutex
	nextID int
	users  map[string]*staticUser
	tokens map[string]string
}

type staticUser struct {
	email        string
	passwordHash []byte
	admin        bool
}

func NewStatic() *Static {
	return &Static{
		users:  map[string]*staticUser{},
		tokens: map[string]string{},
	}
}

var _ Provider = (*Static)(nil)

func (p *Static) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	uid, ok := p.tokens[token]
	if !ok {
		return nil, ErrUnknownToken
	}

	user := p.users[uid]
	claims := map[string]any{"email": user.email}
	if user.admin {
		claims["admin"] = true
	}

	return &Identity{Subject: uid, Admin: user.admin, Claims: claims}, nil
}

func (p *Static) CreateUser(ctx context.Context, email, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("while hashing password: %w", err)
	}
	return p.SeedUser(email, hash)
}

// SeedUser registers a credential with a pre-hashed password, as produced
// by the passtool command.
func (p *Static) SeedUser(email string, passwordHash []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, u := range p.users {
		if u.email == email {
			return "", ErrEmailExists
		}
	}

	p.nextID++
	uid := fmt.Sprintf("uid-%04d", p.nextID)
	p.users[uid] = &staticUser{email: email, passwordHash: passwordHash}
	return uid, nil
}

// Login verifies an email/password pair and mints a bearer token for the
// matching subject.  Unknown email and wrong password are indistinguishable.
func (p *Static) Login(ctx context.Context, email, password string) (string, error) {
	p.mu.Lock()
	var uid string
	var user *staticUser
	for id, u := range p.users {
		if u.email == email {
			uid, user = id, u
		}
	}
	p.mu.Unlock()

	if user == nil {
		return "", ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		return "", ErrBadCredentials
	}

	return p.MintToken(uid)
}

func (p *Static) SetAdminClaim(ctx context.Context, uid string, admin bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[uid]
	if !ok {
		return ErrUnknownSubject
	}
	user.admin = admin
	return nil
}

func (p *Static) DeleteUser(ctx context.Context, uid string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.users, uid)
	for token, subject := range p.tokens {
		if subject == uid {
			delete(p.tokens, token)
		}
	}
	return nil
}

// MintToken issues a bearer token for an existing subject.  Test helper.
func (p *Static) MintToken(uid string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.users[uid]; !ok {
		return "", ErrUnknownSubject
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("while generating token: %w", err)
	}
	token := hex.EncodeToString(raw)
	p.tokens[token] = uid
	return token, nil
}

// HasUser reports whether a subject still exists.  Test helper.
func (p *Static) HasUser(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.users[uid]
	return ok
}

// IsAdmin reports whether a subject carries the admin claim.  Test helper.
func (p *Static) IsAdmin(uid string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	user, ok := p.users[uid]
	return ok && user.admin
}
