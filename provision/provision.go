// Package provision orchestrates account registration across the identity
// provider, the document store, and the blob store.
//
// The three systems share no transaction, so registration runs as a saga:
// each completed step registers a compensating action, and a failed step
// unwinds everything done so far.  A compensation that itself fails is
// logged and abandoned, which can still leave partial state behind; the
// saga bounds the damage but cannot eliminate it.
package provision

import (
	"context"
	"errors"
	"fmt"

	"philjaps/blobstore"
	"philjaps/dbtypes"
	"philjaps/docstore"
	"philjaps/identity"

	"github.com/golang/glog"
)

var (
	ErrEmailMustNotBeEmpty    = errors.New("email must not be empty")
	ErrPasswordMustNotBeEmpty = errors.New("password must not be empty")
)

// Registration carries the fields submitted by a registering user.
type Registration struct {
	FirstName string
	LastName  string
	Birthday  string
	Email     string
	Password  string
	Admin     bool
}

// WelcomeMailer is the optional post-registration notification hook.
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, email, firstName string) error
}

type Workflow struct {
	provider identity.Provider
	docs     docstore.Store
	blobs    blobstore.Store
	mail     WelcomeMailer
}

// New builds a registration workflow.  mail may be nil to disable the
// welcome email.
func New(provider identity.Provider, docs docstore.Store, blobs blobstore.Store, mail WelcomeMailer) *Workflow {
	return &Workflow{
		provider: provider,
		docs:     docs,
		blobs:    blobs,
		mail:     mail,
	}
}

// Register creates the credential, the account document, and (for admins)
// the admin storage grant, returning the provider-issued id.
func (w *Workflow) Register(ctx context.Context, reg Registration) (string, error) {
	if reg.Email == "" {
		return "", ErrEmailMustNotBeEmpty
	}
	if reg.Password == "" {
		return "", ErrPasswordMustNotBeEmpty
	}

	// Compensations run in reverse order against a context that survives
	// cancellation of the request that started the registration.
	compCtx := context.WithoutCancel(ctx)
	var compensations []func()
	unwind := func() {
		for i := len(compensations) - 1; i >= 0; i-- {
			compensations[i]()
		}
	}

	uid, err := w.provider.CreateUser(ctx, reg.Email, reg.Password)
	if err != nil {
		return "", fmt.Errorf("while creating credential: %w", err)
	}
	compensations = append(compensations, func() {
		if err := w.provider.DeleteUser(compCtx, uid); err != nil {
			glog.Errorf("Registration compensation failed, credential %s is orphaned: %v", uid, err)
		}
	})

	account := &dbtypes.Account{
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Birthday:  reg.Birthday,
		Email:     reg.Email,
		IsAdmin:   reg.Admin,
	}
	accountPath := "users/" + uid
	if err := w.docs.SetDocument(ctx, accountPath, account.Fields()); err != nil {
		unwind()
		return "", fmt.Errorf("while writing account document: %w", err)
	}
	compensations = append(compensations, func() {
		if err := w.docs.DeleteDocument(compCtx, accountPath); err != nil {
			glog.Errorf("Registration compensation failed, account document %s is orphaned: %v", accountPath, err)
		}
	})

	if reg.Admin {
		if err := w.grantAdmin(ctx, compCtx, uid, &compensations); err != nil {
			unwind()
			return "", err
		}
	}

	if w.mail != nil {
		// Best effort only; the account is already fully provisioned.
		if err := w.mail.SendWelcome(ctx, reg.Email, reg.FirstName); err != nil {
			glog.Errorf("Welcome mail to %s failed: %v", reg.Email, err)
		}
	}

	return uid, nil
}

// grantAdmin provisions the admin storage namespace, installs its access
// policy, and attaches the admin claim.  All three exist together or not at
// all.
func (w *Workflow) grantAdmin(ctx, compCtx context.Context, uid string, compensations *[]func()) error {
	namespace := "admin/" + uid + "/"

	ref, err := w.blobs.Put(ctx, namespace, nil, "application/octet-stream")
	if err != nil {
		return fmt.Errorf("while provisioning admin namespace: %w", err)
	}
	*compensations = append(*compensations, func() {
		if err := w.blobs.Delete(compCtx, ref); err != nil {
			glog.Errorf("Registration compensation failed, admin namespace %s is orphaned: %v", namespace, err)
		}
	})

	policy := blobstore.Policy{Prefix: namespace, RequireAdminClaim: true}
	if err := w.blobs.SetNamespacePolicy(ctx, policy); err != nil {
		return fmt.Errorf("while setting admin namespace policy: %w", err)
	}

	if err := w.provider.SetAdminClaim(ctx, uid, true); err != nil {
		return fmt.Errorf("while granting admin claim: %w", err)
	}

	return nil
}
