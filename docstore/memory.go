package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store used by tests and local development.  It
// models the same path grammar and nested-collection behavior as the
// Firestore implementation.
type Memory struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func NewMemory() *Memory {
	return &Memory{docs: map[string]map[string]any{}}
}

var _ Store = (*Memory)(nil)

func (m *Memory) GetDocument(ctx context.Context, path string) (*Document, error) {
	if err := checkDocPath(path); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fields, ok := m.docs[path]
	if !ok {
		return nil, ErrNotFound
	}

	return &Document{ID: docID(path), Fields: cloneFields(fields)}, nil
}

func (m *Memory) SetDocument(ctx context.Context, path string, fields map[string]any) error {
	if err := checkDocPath(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[path] = cloneFields(fields)
	return nil
}

func (m *Memory) UpdateDocument(ctx context.Context, path string, fields map[string]any) error {
	if err := checkDocPath(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.docs[path]
	if !ok {
		return ErrNotFound
	}

	for k, v := range cloneFields(fields) {
		existing[k] = v
	}
	return nil
}

func (m *Memory) DeleteDocument(ctx context.Context, path string) error {
	if err := checkDocPath(path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, path)
	return nil
}

func (m *Memory) ListDocuments(ctx context.Context, collectionPath string) ([]*Document, error) {
	if err := checkCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := collectionPath + "/"
	docs := []*Document{}
	for path, fields := range m.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || strings.Contains(rest, "/") {
			continue
		}
		docs = append(docs, &Document{ID: rest, Fields: cloneFields(fields)})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *Memory) ListSubcollections(ctx context.Context, docPath string) ([]string, error) {
	if err := checkDocPath(docPath); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := docPath + "/"
	seen := map[string]bool{}
	for path := range m.docs {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok {
			continue
		}
		name, _, ok := strings.Cut(rest, "/")
		if !ok {
			continue
		}
		seen[name] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// cloneFields deep-copies a field map so callers can't mutate stored state.
func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
