package github

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/\s]+)`)
)

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (string, error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return RepositoryFromURL(strings.TrimSpace(string(out)))
}

// RepositoryFromURL returns "owner/repo" for a git remote or web URL.
func RepositoryFromURL(u string) (string, error) {
	owner, repo, err := ParseRemoteURL(u)
	if err != nil {
		return "", err
	}
	return owner + "/" + repo, nil
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(u string) (owner, repo string, err error) {
	u = strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(u), "/"), ".git")

	if m := httpsRemoteRe.FindStringSubmatch(u); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(u); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", u)
}
