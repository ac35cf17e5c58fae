package gallery

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"philjaps/blobstore"
	"philjaps/dbtypes"
	"philjaps/docstore"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MaxImagesPerUpload caps how many images one project upload may carry.
const MaxImagesPerUpload = 5

var (
	ErrNoImages       = errors.New("upload carries no images")
	ErrTooManyImages  = fmt.Errorf("upload carries more than %d images", MaxImagesPerUpload)
	ErrNoProfileImage = errors.New("no profile image provided")
)

// File is one uploaded file's bytes plus request metadata.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader writes projects and profile images through the blob and
// document stores.
type Uploader struct {
	docs  docstore.Store
	blobs blobstore.Store
}

func NewUploader(docs docstore.Store, blobs blobstore.Store) *Uploader {
	return &Uploader{docs: docs, blobs: blobs}
}

// CreateProject uploads every image concurrently, then writes the project
// document and one nested image document per file.  Object names are
// freshly generated so identical filenames across uploads can't collide.
//
// Any single upload failure fails the whole call; blobs already written
// for sibling images are deleted best-effort.
func (u *Uploader) CreateProject(ctx context.Context, accountID, title, description string, files []File) (*Project, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if len(files) > MaxImagesPerUpload {
		return nil, ErrTooManyImages
	}

	uploaded := make([]Image, len(files))
	var mu sync.Mutex
	var refs []blobstore.ObjectRef

	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			id := uuid.NewString()
			name := "images/" + id + path.Ext(file.Name)

			ref, err := u.blobs.Put(gctx, name, file.Data, file.ContentType)
			if err != nil {
				return fmt.Errorf("while uploading image %q: %w", file.Name, err)
			}

			mu.Lock()
			refs = append(refs, ref)
			mu.Unlock()

			url, err := u.blobs.SignedURL(ref, blobstore.URLExpiry)
			if err != nil {
				return fmt.Errorf("while issuing URL for image %q: %w", file.Name, err)
			}

			uploaded[i] = Image{ID: id, URL: url, Title: file.Name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		u.discard(ctx, refs)
		return nil, err
	}

	projectID := uuid.NewString()
	projectPath := "projects/" + accountID + "/" + projectCollection + "/" + projectID

	stored := &dbtypes.Project{Title: title, Description: description}
	if err := u.docs.SetDocument(ctx, projectPath, stored.Fields()); err != nil {
		u.discard(ctx, refs)
		return nil, fmt.Errorf("while writing project document: %w", err)
	}

	for i, img := range uploaded {
		fields := (&dbtypes.Image{URL: img.URL, Title: img.Title, Description: img.Description}).Fields()
		if err := u.docs.SetDocument(ctx, projectPath+"/images/"+img.ID, fields); err != nil {
			cleanupCtx := context.WithoutCancel(ctx)
			for _, prev := range uploaded[:i] {
				if derr := u.docs.DeleteDocument(cleanupCtx, projectPath+"/images/"+prev.ID); derr != nil {
					glog.Errorf("Orphaned image document %s left behind by failed upload: %v", prev.ID, derr)
				}
			}
			if derr := u.docs.DeleteDocument(cleanupCtx, projectPath); derr != nil {
				glog.Errorf("Orphaned project document %s left behind by failed upload: %v", projectPath, derr)
			}
			u.discard(ctx, refs)
			return nil, fmt.Errorf("while writing image document %s: %w", img.ID, err)
		}
	}

	return &Project{
		ID:          projectID,
		Title:       title,
		Description: description,
		Images:      uploaded,
	}, nil
}

// SetProfileImage stores a profile image and records its URL on the
// account document.  The account must already exist.
func (u *Uploader) SetProfileImage(ctx context.Context, accountID string, file File) (string, error) {
	name := "profiles/" + accountID + "/" + uuid.NewString() + path.Ext(file.Name)

	ref, err := u.blobs.Put(ctx, name, file.Data, file.ContentType)
	if err != nil {
		return "", fmt.Errorf("while uploading profile image: %w", err)
	}

	url, err := u.blobs.SignedURL(ref, blobstore.URLExpiry)
	if err != nil {
		u.discard(ctx, []blobstore.ObjectRef{ref})
		return "", fmt.Errorf("while issuing profile image URL: %w", err)
	}

	if err := u.docs.UpdateDocument(ctx, "users/"+accountID, map[string]any{"profileUrl": url}); err != nil {
		u.discard(ctx, []blobstore.ObjectRef{ref})
		if errors.Is(err, docstore.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("while recording profile image URL: %w", err)
	}

	return url, nil
}

func (u *Uploader) discard(ctx context.Context, refs []blobstore.ObjectRef) {
	for _, ref := range refs {
		if err := u.blobs.Delete(context.WithoutCancel(ctx), ref); err != nil {
			glog.Errorf("Orphaned blob %s left behind by failed upload: %v", ref.Name, err)
		}
	}
}
