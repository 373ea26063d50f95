package models

// Contributor is a per-repository contributor profile fetched from the
// contributors index. It is a read-only snapshot: the engine never mutates
// or persists it.
type Contributor struct {
	RepoName           string           `json:"repo_name"`
	IsBot              bool             `json:"is_bot"`
	CodeCommitDateList []string         `json:"code_commit_date_list"`
	OrgChangeDateList  []OrgAffiliation `json:"org_change_date_list"`
}

// OrgAffiliation is one entry of a contributor's organization timeline.
// Entries do not overlap, are ordered ascending, and an open-ended
// affiliation carries a far-future LastDate sentinel. A commit is attributed
// to the affiliation whose half-open interval [FirstDate, LastDate) contains
// the commit date.
type OrgAffiliation struct {
	OrgName   *string `json:"org_name"`
	Domain    *string `json:"domain"`
	FirstDate string  `json:"first_date"`
	LastDate  string  `json:"last_date"`
}

// Key returns the attribution key for the affiliation (organization name if
// present, otherwise the email domain) and whether the entry names a real
// organization.
func (a OrgAffiliation) Key() (string, bool) {
	if a.OrgName != nil && *a.OrgName != "" {
		return *a.OrgName, true
	}
	if a.Domain != nil {
		return *a.Domain, false
	}
	return "", false
}
