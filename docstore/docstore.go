// Package docstore abstracts document CRUD and nested-collection traversal
// over a Firestore-shaped database.
//
// Paths are slash-separated.  A document path has an even number of
// segments ("users/abc", "projects/abc/project/p1"); a collection path has
// an odd number ("users", "projects/abc/project").
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid path")
)

// Document is a single stored document.  Fields are plain Go values
// (string, bool, int64, float64, []any, map[string]any).
type Document struct {
	ID     string
	Fields map[string]any
}

// Store is the document-store contract.
//
// ListDocuments and ListSubcollections return results sorted by ID so that
// callers see a deterministic order regardless of backend.
type Store interface {
	// GetDocument returns the document at path, or ErrNotFound.
	GetDocument(ctx context.Context, path string) (*Document, error)

	// SetDocument overwrites the document at path, creating it if absent.
	SetDocument(ctx context.Context, path string, fields map[string]any) error

	// UpdateDocument merges fields into an existing document.  It returns
	// ErrNotFound if the document does not exist; it never creates.
	UpdateDocument(ctx context.Context, path string, fields map[string]any) error

	// DeleteDocument removes the document at path.  Deleting an absent
	// document is not an error.
	DeleteDocument(ctx context.Context, path string) error

	// ListDocuments returns every document in the collection at path.
	ListDocuments(ctx context.Context, collectionPath string) ([]*Document, error)

	// ListSubcollections returns the names of the subcollections under the
	// document at path.  Subcollections exist independently of their parent
	// document, so the parent document itself need not exist.
	ListSubcollections(ctx context.Context, docPath string) ([]string, error)
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(path, "/")
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

func checkDocPath(path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs)%2 != 0 {
		return fmt.Errorf("%w: %q does not name a document", ErrInvalidPath, path)
	}
	return nil
}

func docID(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func checkCollectionPath(path string) error {
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(segs)%2 != 1 {
		return fmt.Errorf("%w: %q does not name a collection", ErrInvalidPath, path)
	}
	return nil
}
