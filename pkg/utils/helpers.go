// Package utils holds small repository URL helpers shared across the service.
package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// gitLogSuffix is appended to repository URLs when querying commit-log
// indices, whose documents are tagged with the clone URL.
const gitLogSuffix = ".git"

// ParseRepoURL parses a repository URL into owner and name components.
func ParseRepoURL(repoURL string) (owner, name string, err error) {
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", "", err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("invalid repository URL: %s", repoURL)
	}

	return parts[0], parts[1], nil
}

// IsValidRepoURL reports whether the URL names a repository.
func IsValidRepoURL(repoURL string) bool {
	_, _, err := ParseRepoURL(repoURL)
	return err == nil
}

// GitLogRepos returns the repo list with the commit-log suffix appended to
// each URL, for queries against commit-log indices.
func GitLogRepos(repos []string) []string {
	withSuffix := make([]string, len(repos))
	for i, repo := range repos {
		withSuffix[i] = repo + gitLogSuffix
	}
	return withSuffix
}
