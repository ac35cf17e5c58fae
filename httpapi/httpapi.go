// Package httpapi exposes the HTTP surface of the gateway: routing, the
// bearer-token gate, and boundary error mapping.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"philjaps/docstore"
	"philjaps/gallery"
	"philjaps/identity"
	"philjaps/provision"

	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
)

// API wires the verifier and the domain components into HTTP handlers.
type API struct {
	verifier    *identity.Verifier
	registrar   *provision.Workflow
	resolver    *gallery.Resolver
	uploader    *gallery.Uploader
	callTimeout time.Duration
}

func New(verifier *identity.Verifier, registrar *provision.Workflow, resolver *gallery.Resolver, uploader *gallery.Uploader, callTimeout time.Duration) *API {
	return &API{
		verifier:    verifier,
		registrar:   registrar,
		resolver:    resolver,
		uploader:    uploader,
		callTimeout: callTimeout,
	}
}

// Router builds the route table.  Only /register and /test are reachable
// without a bearer token.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(a.withTimeout)

	r.Get("/test", a.handleTest)
	r.Post("/register", a.handleRegister)

	r.Group(func(pr chi.Router) {
		pr.Use(a.requireIdentity)

		pr.Get("/user", a.handleUser)
		pr.Get("/users", a.handleUsers)
		pr.Post("/upload", a.handleUpload)
		pr.Get("/api/users/{userId}", a.handleAccount)
		pr.Get("/api/projects/{userId}", a.handleProjects)
		pr.Get("/api/projects/images/{projectId}/{userId}", a.handleProjectImages)
		pr.Post("/uploadProfileImage/{userId}", a.handleProfileImageUpload)
		pr.Get("/getProfile/{userId}", a.handleProfile)
	})

	return r
}

type contextKey int

const identityKey contextKey = iota

// requireIdentity gates a subtree on a verified bearer token.
func (a *API) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := a.verifier.Verify(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			glog.Infof("Rejecting request to %s: %v", r.URL.Path, err)
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, ident)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withTimeout bounds every external call made on behalf of one request.
func (a *API) withTimeout(next http.Handler) http.Handler {
	if a.callTimeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), a.callTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) *identity.Identity {
	ident, _ := ctx.Value(identityKey).(*identity.Identity)
	return ident
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// It's too late to write an error to the HTTP response.
		glog.Errorf("Error while writing response body: %v", err)
	}
}

// writeError maps a domain error to a status code with a generic message.
// The underlying detail goes to the log, never to the caller.
func writeError(w http.ResponseWriter, err error, notFoundMessage, internalMessage string) {
	switch {
	case errors.Is(err, identity.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
	case errors.Is(err, docstore.ErrNotFound), errors.Is(err, gallery.ErrNoProjects):
		writeJSON(w, http.StatusNotFound, map[string]any{"message": notFoundMessage})
	case errors.Is(err, gallery.ErrNoImages),
		errors.Is(err, gallery.ErrTooManyImages),
		errors.Is(err, gallery.ErrNoProfileImage),
		errors.Is(err, provision.ErrEmailMustNotBeEmpty),
		errors.Is(err, provision.ErrPasswordMustNotBeEmpty):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
	default:
		glog.Errorf("%s: %v", internalMessage, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": internalMessage})
	}
}
