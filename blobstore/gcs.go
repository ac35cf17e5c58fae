package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/storage"
)

// rulesObject is where the serialized namespace policies live inside the
// bucket, mirroring the layout the storage service reads them from.
const rulesObject = ".settings/rules.json"

// GCS implements Store against a Google Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket string

	mu       sync.Mutex
	policies map[string]Policy
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{
		client:   client,
		bucket:   bucket,
		policies: map[string]Policy{},
	}
}

var _ Store = (*GCS)(nil)

func (s *GCS) Put(ctx context.Context, name string, data []byte, contentType string) (ObjectRef, error) {
	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return ObjectRef{}, fmt.Errorf("while writing object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return ObjectRef{}, fmt.Errorf("while finalizing object %s: %w", name, err)
	}

	return ObjectRef{Bucket: s.bucket, Name: name}, nil
}

func (s *GCS) Delete(ctx context.Context, ref ObjectRef) error {
	err := s.client.Bucket(ref.Bucket).Object(ref.Name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("while deleting object %s: %w", ref.Name, err)
	}
	return nil
}

func (s *GCS) SignedURL(ref ObjectRef, expires time.Time) (string, error) {
	// V4 signing caps expiry at seven days; V2 accepts the far-future
	// expiry this system issues.
	url, err := s.client.Bucket(ref.Bucket).SignedURL(ref.Name, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: expires,
		Scheme:  storage.SigningSchemeV2,
	})
	if err != nil {
		return "", fmt.Errorf("while signing URL for %s: %w", ref.Name, err)
	}
	return url, nil
}

func (s *GCS) SetNamespacePolicy(ctx context.Context, policy Policy) error {
	s.mu.Lock()
	s.policies[policy.Prefix] = policy
	rules, err := marshalRules(s.policies)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("while serializing storage rules: %w", err)
	}

	w := s.client.Bucket(s.bucket).Object(rulesObject).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(rules); err != nil {
		w.Close()
		return fmt.Errorf("while writing storage rules: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("while finalizing storage rules: %w", err)
	}
	return nil
}

func marshalRules(policies map[string]Policy) ([]byte, error) {
	prefixes := make([]string, 0, len(policies))
	for p := range policies {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)

	namespaces := map[string]any{}
	for _, p := range prefixes {
		pol := policies[p]
		rule := "true"
		if pol.RequireAdminClaim {
			rule = "request.auth.token.admin == true"
		}
		namespaces[p] = map[string]any{
			".read":  rule,
			".write": rule,
		}
	}

	return json.Marshal(map[string]any{
		"rules": map[string]any{
			"rulesVersion": "2",
			"namespaces":   namespaces,
		},
	})
}
