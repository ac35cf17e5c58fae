package blobstore

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and local development.
type Memory struct {
	bucket string

	mu       sync.Mutex
	objects  map[string]memObject
	policies map[string]Policy
}

type memObject struct {
	data        []byte
	contentType string
}

func NewMemory(bucket string) *Memory {
	return &Memory{
		bucket:   bucket,
		objects:  map[string]memObject{},
		policies: map[string]Policy{},
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Put(ctx context.Context, name string, data []byte, contentType string) (ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[name] = memObject{data: append([]byte(nil), data...), contentType: contentType}
	return ObjectRef{Bucket: m.bucket, Name: name}, nil
}

func (m *Memory) Delete(ctx context.Context, ref ObjectRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, ref.Name)
	return nil
}

func (m *Memory) SignedURL(ref ObjectRef, expires time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[ref.Name]; !ok {
		return "", ErrNotFound
	}

	return fmt.Sprintf("https://storage.invalid/%s/%s?expires=%d",
		url.PathEscape(ref.Bucket), url.PathEscape(ref.Name), expires.Unix()), nil
}

func (m *Memory) SetNamespacePolicy(ctx context.Context, policy Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.policies[policy.Prefix] = policy
	return nil
}

// Object returns a stored object's bytes, for test assertions.
func (m *Memory) Object(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[name]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

// ObjectNames returns the names of all stored objects, for test assertions.
func (m *Memory) ObjectNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	return names
}

// Allows evaluates the installed policies against a path and claim set.  A
// path is allowed when every policy governing it allows it.
func (m *Memory) Allows(path string, claims map[string]any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, pol := range m.policies {
		if !pol.Allows(path, claims) {
			return false
		}
	}
	return true
}

// Policy returns the installed policy for a prefix, for test assertions.
func (m *Memory) Policy(prefix string) (Policy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pol, ok := m.policies[prefix]
	return pol, ok
}
