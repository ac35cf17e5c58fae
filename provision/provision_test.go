package provision

import (
	"context"
	"errors"
	"testing"

	"philjaps/blobstore"
	"philjaps/docstore"
	"philjaps/identity"

	"github.com/google/go-cmp/cmp"
)

func newFixture() (*identity.Static, *docstore.Memory, *blobstore.Memory) {
	return identity.NewStatic(), docstore.NewMemory(), blobstore.NewMemory("test-bucket")
}

func TestRegisterPlainUser(t *testing.T) {
	ctx := context.Background()
	provider, docs, blobs := newFixture()
	workflow := New(provider, docs, blobs, nil)

	uid, err := workflow.Register(ctx, Registration{
		FirstName: "A",
		LastName:  "B",
		Birthday:  "2000-01-01",
		Email:     "a@b.com",
		Password:  "secret1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	doc, err := docs.GetDocument(ctx, "users/"+uid)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	want := map[string]any{
		"firstName": "A",
		"lastName":  "B",
		"birthday":  "2000-01-01",
		"email":     "a@b.com",
		"isAdmin":   false,
	}
	if diff := cmp.Diff(want, doc.Fields); diff != "" {
		t.Errorf("Bad account document (-want +got):\n%s", diff)
	}

	// No admin grant: no namespace object, no policy, no claim.
	if _, ok := blobs.Object("admin/" + uid + "/"); ok {
		t.Errorf("Plain user got an admin namespace")
	}
	if _, ok := blobs.Policy("admin/" + uid + "/"); ok {
		t.Errorf("Plain user got an admin namespace policy")
	}
	if provider.IsAdmin(uid) {
		t.Errorf("Plain user got the admin claim")
	}
}

func TestRegisterAdminUser(t *testing.T) {
	ctx := context.Background()
	provider, docs, blobs := newFixture()
	workflow := New(provider, docs, blobs, nil)

	uid, err := workflow.Register(ctx, Registration{
		FirstName: "Root",
		Email:     "root@b.com",
		Password:  "secret1",
		Admin:     true,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	namespace := "admin/" + uid + "/"
	if _, ok := blobs.Object(namespace); !ok {
		t.Errorf("Admin namespace object missing")
	}
	pol, ok := blobs.Policy(namespace)
	if !ok {
		t.Fatalf("Admin namespace policy missing")
	}
	if !pol.RequireAdminClaim {
		t.Errorf("Admin namespace policy doesn't require the admin claim")
	}
	if !provider.IsAdmin(uid) {
		t.Errorf("Admin claim missing on credential")
	}

	if blobs.Allows(namespace+"file", map[string]any{}) {
		t.Errorf("Non-admin allowed into the provisioned namespace")
	}
	if !blobs.Allows(namespace+"file", map[string]any{"admin": true}) {
		t.Errorf("Admin denied access to the provisioned namespace")
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	provider, docs, blobs := newFixture()
	workflow := New(provider, docs, blobs, nil)

	if _, err := workflow.Register(ctx, Registration{Password: "x"}); !errors.Is(err, ErrEmailMustNotBeEmpty) {
		t.Errorf("Expected ErrEmailMustNotBeEmpty, got %v", err)
	}
	if _, err := workflow.Register(ctx, Registration{Email: "a@b.com"}); !errors.Is(err, ErrPasswordMustNotBeEmpty) {
		t.Errorf("Expected ErrPasswordMustNotBeEmpty, got %v", err)
	}
}

// failingDocs fails every SetDocument, simulating a store outage between
// credential creation and account persistence.
type failingDocs struct {
	docstore.Store
}

func (f *failingDocs) SetDocument(ctx context.Context, path string, fields map[string]any) error {
	return errors.New("store unavailable")
}

func TestAccountWriteFailureUnwindsCredential(t *testing.T) {
	ctx := context.Background()
	provider, docs, blobs := newFixture()
	workflow := New(provider, &failingDocs{Store: docs}, blobs, nil)

	_, err := workflow.Register(ctx, Registration{Email: "a@b.com", Password: "secret1"})
	if err == nil {
		t.Fatalf("Expected registration to fail")
	}

	// The compensating action must have deleted the credential.
	if provider.HasUser("uid-0001") {
		t.Errorf("Credential survived a failed registration")
	}
}

// failingClaims fails SetAdminClaim, simulating a provider outage during
// the final admin-grant step.
type failingClaims struct {
	*identity.Static
}

func (f *failingClaims) SetAdminClaim(ctx context.Context, uid string, admin bool) error {
	return errors.New("provider unavailable")
}

func TestAdminGrantFailureUnwindsEverything(t *testing.T) {
	ctx := context.Background()
	provider, docs, blobs := newFixture()
	workflow := New(&failingClaims{Static: provider}, docs, blobs, nil)

	_, err := workflow.Register(ctx, Registration{Email: "a@b.com", Password: "secret1", Admin: true})
	if err == nil {
		t.Fatalf("Expected registration to fail")
	}

	if provider.HasUser("uid-0001") {
		t.Errorf("Credential survived a failed admin grant")
	}
	if _, getErr := docs.GetDocument(ctx, "users/uid-0001"); !errors.Is(getErr, docstore.ErrNotFound) {
		t.Errorf("Account document survived a failed admin grant, err=%v", getErr)
	}
	if _, ok := blobs.Object("admin/uid-0001/"); ok {
		t.Errorf("Admin namespace object survived a failed admin grant")
	}
}

// recordingMailer captures welcome sends and can be told to fail.
type recordingMailer struct {
	sent []string
	fail bool
}

func (m *recordingMailer) SendWelcome(ctx context.Context, email, firstName string) error {
	if m.fail {
		return errors.New("mail provider down")
	}
	m.sent = append(m.sent, email)
	return nil
}

func TestWelcomeMailIsBestEffort(t *testing.T) {
	ctx := context.Background()

	provider, docs, blobs := newFixture()
	mail := &recordingMailer{}
	workflow := New(provider, docs, blobs, mail)

	if _, err := workflow.Register(ctx, Registration{Email: "a@b.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if diff := cmp.Diff([]string{"a@b.com"}, mail.sent); diff != "" {
		t.Errorf("Bad welcome sends (-want +got):\n%s", diff)
	}

	// A failing mailer must not fail the registration.
	provider2, docs2, blobs2 := newFixture()
	workflow2 := New(provider2, docs2, blobs2, &recordingMailer{fail: true})
	uid, err := workflow2.Register(ctx, Registration{Email: "b@c.com", Password: "secret1"})
	if err != nil {
		t.Errorf("Registration failed because of the welcome mail: %v", err)
	}
	if !provider2.HasUser(uid) {
		t.Errorf("Credential missing after mail-failure registration")
	}
}
