package models

// RepoMetadata is the repository metadata document kept in the repo index.
// Only the archive marker participates in metric computation; the remaining
// fields are carried for API consumers.
type RepoMetadata struct {
	Origin     string  `json:"origin"`
	Name       string  `json:"name"`
	Language   string  `json:"language"`
	ArchivedAt *string `json:"archivedAt"`
}

// ArchivedBefore reports whether the repository was archived strictly before
// the given day string. An unarchived repository is never considered archived.
func (m *RepoMetadata) ArchivedBefore(day string) bool {
	return m.ArchivedAt != nil && *m.ArchivedAt < day
}
