package httpapi

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"philjaps/gallery"
	"philjaps/provision"

	"github.com/go-chi/chi/v5"
)

// maxUploadBytes bounds how much of a multipart body is buffered in memory.
const maxUploadBytes = 32 << 20

func (a *API) handleTest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Success!"))
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Birthday  string `json:"bday"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		IsAdmin   bool   `json:"isAdmin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed request body"})
		return
	}

	uid, err := a.registrar.Register(r.Context(), provision.Registration{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Birthday:  body.Birthday,
		Email:     body.Email,
		Password:  body.Password,
		Admin:     body.IsAdmin,
	})
	if err != nil {
		writeError(w, err, "Error creating new user", "Error creating new user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User registered successfully",
		"userId":  uid,
	})
}

func (a *API) handleUser(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	doc, err := a.resolver.Account(r.Context(), ident.Subject)
	if err != nil {
		writeError(w, err, "User not found", "Error getting user data")
		return
	}

	firstName, _ := doc.Fields["firstName"].(string)
	if firstName == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "User first name not found"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"firstName": firstName})
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	docs, err := a.resolver.Accounts(r.Context())
	if err != nil {
		writeError(w, err, "No users found", "Error listing users")
		return
	}

	users := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		user := map[string]any{"id": doc.ID}
		for k, v := range doc.Fields {
			user[k] = v
		}
		users = append(users, user)
	}

	writeJSON(w, http.StatusOK, users)
}

func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Malformed multipart body"})
		return
	}

	files, err := readFiles(r.MultipartForm.File["images"])
	if err != nil {
		writeError(w, err, "Upload failed", "Upload failed")
		return
	}

	_, err = a.uploader.CreateProject(r.Context(), ident.Subject,
		r.FormValue("title"), r.FormValue("description"), files)
	if err != nil {
		writeError(w, err, "Upload failed", "Upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Upload successful"})
}

func (a *API) handleAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	doc, err := a.resolver.Account(r.Context(), userID)
	if err != nil {
		writeError(w, err, "User not found", "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, doc.Fields)
}

func (a *API) handleProjects(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	projects, err := a.resolver.ProjectsForAccount(r.Context(), userID)
	if err != nil {
		writeError(w, err, "No projects found for this user", "Error getting user projects")
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (a *API) handleProjectImages(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectId")
	userID := chi.URLParam(r, "userId")

	project, err := a.resolver.Project(r.Context(), userID, projectID)
	if err != nil {
		writeError(w, err, "Project not found", "Error fetching project images")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (a *API) handleProfileImageUpload(w http.ResponseWriter, r *http.Request) {
	ident := identityFrom(r.Context())
	userID := chi.URLParam(r, "userId")

	// Only the account owner or an admin may replace a profile image.
	if ident.Subject != userID && !ident.Admin {
		writeJSON(w, http.StatusForbidden, map[string]any{"message": "Forbidden"})
		return
	}

	part, header, err := r.FormFile("profileImage")
	if err != nil {
		writeError(w, gallery.ErrNoProfileImage, "", "")
		return
	}
	defer part.Close()

	data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes))
	if err != nil {
		writeError(w, err, "Internal server error", "Internal server error")
		return
	}

	url, err := a.uploader.SetProfileImage(r.Context(), userID, gallery.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(w, err, "User not found", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Profile image uploaded successfully",
		"downloadUrl": url,
	})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	url, err := a.resolver.Profile(r.Context(), userID)
	if err != nil {
		writeError(w, err, "User not found", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"profileUrl": url})
}

func readFiles(headers []*multipart.FileHeader) ([]gallery.File, error) {
	files := make([]gallery.File, 0, len(headers))
	for _, header := range headers {
		part, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes))
		part.Close()
		if err != nil {
			return nil, err
		}

		files = append(files, gallery.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return files, nil
}
