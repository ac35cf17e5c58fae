package docstore

import (
	"context"
	"fmt"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore implements Store against a Cloud Firestore database.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

var _ Store = (*Firestore)(nil)

func (s *Firestore) GetDocument(ctx context.Context, path string) (*Document, error) {
	if err := checkDocPath(path); err != nil {
		return nil, err
	}

	snap, err := s.client.Doc(path).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("while retrieving document %s: %w", path, err)
	}

	return &Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (s *Firestore) SetDocument(ctx context.Context, path string, fields map[string]any) error {
	if err := checkDocPath(path); err != nil {
		return err
	}

	if _, err := s.client.Doc(path).Set(ctx, fields); err != nil {
		return fmt.Errorf("while writing document %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) UpdateDocument(ctx context.Context, path string, fields map[string]any) error {
	if err := checkDocPath(path); err != nil {
		return err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(fields))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}

	_, err := s.client.Doc(path).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("while updating document %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) DeleteDocument(ctx context.Context, path string) error {
	if err := checkDocPath(path); err != nil {
		return err
	}

	// Firestore deletes are already no-ops for absent documents.
	if _, err := s.client.Doc(path).Delete(ctx); err != nil {
		return fmt.Errorf("while deleting document %s: %w", path, err)
	}
	return nil
}

func (s *Firestore) ListDocuments(ctx context.Context, collectionPath string) ([]*Document, error) {
	if err := checkCollectionPath(collectionPath); err != nil {
		return nil, err
	}

	docs := []*Document{}
	iter := s.client.Collection(collectionPath).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing collection %s: %w", collectionPath, err)
		}

		docs = append(docs, &Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *Firestore) ListSubcollections(ctx context.Context, docPath string) ([]string, error) {
	if err := checkDocPath(docPath); err != nil {
		return nil, err
	}

	names := []string{}
	iter := s.client.Doc(docPath).Collections(ctx)
	for {
		col, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while listing subcollections of %s: %w", docPath, err)
		}

		names = append(names, col.ID)
	}

	sort.Strings(names)
	return names, nil
}
