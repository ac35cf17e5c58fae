// Package dbtypes holds the document shapes persisted in the store.
package dbtypes

// Account is the profile document stored for each registered user, keyed by
// the provider-issued uid.
type Account struct {
	FirstName  string `firestore:"firstName"`
	LastName   string `firestore:"lastName"`
	Birthday   string `firestore:"birthday"`
	Email      string `firestore:"email"`
	IsAdmin    bool   `firestore:"isAdmin"`
	ProfileURL string `firestore:"profileUrl"`
}

func (a *Account) Fields() map[string]any {
	f := map[string]any{
		"firstName": a.FirstName,
		"lastName":  a.LastName,
		"birthday":  a.Birthday,
		"email":     a.Email,
		"isAdmin":   a.IsAdmin,
	}
	if a.ProfileURL != "" {
		f["profileUrl"] = a.ProfileURL
	}
	return f
}

func AccountFromFields(f map[string]any) *Account {
	a := &Account{}
	a.FirstName, _ = f["firstName"].(string)
	a.LastName, _ = f["lastName"].(string)
	a.Birthday, _ = f["birthday"].(string)
	a.Email, _ = f["email"].(string)
	a.IsAdmin, _ = f["isAdmin"].(bool)
	a.ProfileURL, _ = f["profileUrl"].(string)
	return a
}

// Project is the per-project document.  Its images live as nested documents
// in an "images" subcollection, never as an inline URL array.
type Project struct {
	Title       string `firestore:"title"`
	Description string `firestore:"description"`
}

func (p *Project) Fields() map[string]any {
	return map[string]any{
		"title":       p.Title,
		"description": p.Description,
	}
}

func ProjectFromFields(f map[string]any) *Project {
	p := &Project{}
	p.Title, _ = f["title"].(string)
	p.Description, _ = f["description"].(string)
	return p
}

// Image is a nested image document under a project.
type Image struct {
	URL         string `firestore:"imageUrl"`
	Title       string `firestore:"imageTitle"`
	Description string `firestore:"imageDescription"`
}

func (i *Image) Fields() map[string]any {
	return map[string]any{
		"imageUrl":         i.URL,
		"imageTitle":       i.Title,
		"imageDescription": i.Description,
	}
}

func ImageFromFields(f map[string]any) *Image {
	i := &Image{}
	i.URL, _ = f["imageUrl"].(string)
	i.Title, _ = f["imageTitle"].(string)
	i.Description, _ = f["imageDescription"].(string)
	return i
}
