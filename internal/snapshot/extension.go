package snapshot

// Extension is one entry in the archive's plugins.json / themes.json. An
// entry with IsPublic=false could not be matched to a public registry slug
// at capture time; it is recorded but never auto-installed on restore.
type Extension struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Slug     string `json:"slug"`
	IsActive bool   `json:"isActive"`
	IsPublic bool   `json:"isPublic"`
}
