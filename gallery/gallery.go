// Package gallery reads and writes the account → project → image hierarchy.
//
// Projects are stored as dynamically named subcollections under each
// account's namespace document ("projects/{uid}"), so every read starts by
// discovering the subcollections rather than addressing a flat collection.
// Writes always use the "project" subcollection; reads accept any name.
package gallery

import (
	"context"
	"errors"
	"fmt"

	"philjaps/dbtypes"
	"philjaps/docstore"
)

var (
	// ErrNoProjects is returned when an account has no project
	// subcollections at all.  An existing project with zero images is NOT
	// an error.
	ErrNoProjects = errors.New("no projects for this account")
)

// projectCollection is the subcollection name used for newly created
// projects.
const projectCollection = "project"

// Image is an assembled image entry.
type Image struct {
	ID          string `json:"id"`
	URL         string `json:"imageUrl"`
	Title       string `json:"imageTitle"`
	Description string `json:"imageDescription"`
}

// Project is an assembled project with its images.
type Project struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Images      []Image `json:"images"`
}

// Resolver assembles the nested hierarchy for response serialization.
type Resolver struct {
	docs docstore.Store
}

func NewResolver(docs docstore.Store) *Resolver {
	return &Resolver{docs: docs}
}

// ProjectsForAccount discovers every project subcollection under the
// account and returns all projects, flattened, each with its images.
func (r *Resolver) ProjectsForAccount(ctx context.Context, accountID string) ([]Project, error) {
	namespace := "projects/" + accountID

	collections, err := r.docs.ListSubcollections(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("while discovering project collections for %s: %w", accountID, err)
	}
	if len(collections) == 0 {
		return nil, ErrNoProjects
	}

	projects := []Project{}
	for _, collection := range collections {
		docs, err := r.docs.ListDocuments(ctx, namespace+"/"+collection)
		if err != nil {
			return nil, fmt.Errorf("while listing projects in %s/%s: %w", namespace, collection, err)
		}

		for _, doc := range docs {
			project, err := r.assemble(ctx, namespace+"/"+collection+"/"+doc.ID, doc)
			if err != nil {
				return nil, err
			}
			projects = append(projects, *project)
		}
	}

	return projects, nil
}

// Project looks up one project by id.  It returns docstore.ErrNotFound when
// no discovered subcollection holds the project document.
func (r *Resolver) Project(ctx context.Context, accountID, projectID string) (*Project, error) {
	namespace := "projects/" + accountID

	collections, err := r.docs.ListSubcollections(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("while discovering project collections for %s: %w", accountID, err)
	}

	for _, collection := range collections {
		path := namespace + "/" + collection + "/" + projectID
		doc, err := r.docs.GetDocument(ctx, path)
		if errors.Is(err, docstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("while retrieving project %s: %w", path, err)
		}
		return r.assemble(ctx, path, doc)
	}

	return nil, docstore.ErrNotFound
}

// assemble builds a Project from its document plus its images
// subcollection.  A project with no images yields an empty, non-nil image
// slice.
func (r *Resolver) assemble(ctx context.Context, projectPath string, doc *docstore.Document) (*Project, error) {
	stored := dbtypes.ProjectFromFields(doc.Fields)

	imageDocs, err := r.docs.ListDocuments(ctx, projectPath+"/images")
	if err != nil {
		return nil, fmt.Errorf("while listing images of %s: %w", projectPath, err)
	}

	images := make([]Image, 0, len(imageDocs))
	for _, imageDoc := range imageDocs {
		stored := dbtypes.ImageFromFields(imageDoc.Fields)
		images = append(images, Image{
			ID:          imageDoc.ID,
			URL:         stored.URL,
			Title:       stored.Title,
			Description: stored.Description,
		})
	}

	return &Project{
		ID:          doc.ID,
		Title:       stored.Title,
		Description: stored.Description,
		Images:      images,
	}, nil
}

// Account returns the account document for a user id.
func (r *Resolver) Account(ctx context.Context, accountID string) (*docstore.Document, error) {
	doc, err := r.docs.GetDocument(ctx, "users/"+accountID)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Accounts returns every account document.
func (r *Resolver) Accounts(ctx context.Context) ([]*docstore.Document, error) {
	docs, err := r.docs.ListDocuments(ctx, "users")
	if err != nil {
		return nil, fmt.Errorf("while listing accounts: %w", err)
	}
	return docs, nil
}

// Profile returns the stored profile-image URL for a user.  Reading it
// twice without an intervening upload returns the same URL.
func (r *Resolver) Profile(ctx context.Context, accountID string) (string, error) {
	doc, err := r.docs.GetDocument(ctx, "users/"+accountID)
	if err != nil {
		return "", err
	}

	url, _ := doc.Fields["profileUrl"].(string)
	return url, nil
}
