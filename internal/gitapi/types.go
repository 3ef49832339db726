// Package gitapi talks to the Git hosting platforms and normalizes their
// commit/release payloads into one model.
//
// Every fetch returns a named Status instead of sentinel values: Skip is
// an intentional adapter no-op (e.g. the platform is rate limiting us),
// NotFound means the repository does not exist or is not visible with
// the given credential.
package gitapi

import (
	"context"
	"time"
)

type Platform string

const (
	PlatformGitHub  Platform = "GitHub"
	PlatformGitee   Platform = "Gitee"
	PlatformGitcode Platform = "Gitcode"
)

type DataType string

const (
	TypeCommits  DataType = "commits"
	TypeReleases DataType = "releases"
)

// Actor is a platform account (author, committer, release publisher).
type Actor struct {
	Login     string
	Name      string
	AvatarURL string
}

// Signature is the git-level author/committer identity on a commit.
type Signature struct {
	Name string
	Date time.Time
}

type CommitDetail struct {
	Author    Signature
	Committer Signature
	Message   string
}

type Stats struct {
	Additions int
	Deletions int
}

type Commit struct {
	SHA    string
	Commit CommitDetail

	// Platform accounts; nil when the platform could not map the git
	// identity to an account.
	Author    *Actor
	Committer *Actor

	// Stats and Files are only populated by single-commit (branch)
	// lookups; list endpoints leave them nil.
	Stats *Stats
	Files []string
}

type Release struct {
	NodeID      string
	TagName     string
	Name        string
	Body        string
	Author      *Actor
	PublishedAt time.Time
}

type Status int

const (
	StatusOK Status = iota
	// StatusSkip: the adapter decided to no-op (rate limited, etc).
	// Contributes nothing and is not an error.
	StatusSkip
	StatusNotFound
)

// RepoData is the normalized fetch result.
//
// Commit lookups with an explicit branch return a single Commit; list
// lookups return Commits. The orchestrator wraps the single object into
// a one-element list for uniform downstream handling.
type RepoData struct {
	Status   Status
	Commit   *Commit
	Commits  []Commit
	Releases []Release
}

// Client fetches repository data from one platform.
type Client interface {
	// RepositoryData fetches the newest commit(s) or release(s) for
	// path ("owner/repo"). branch applies to commit lookups only; empty
	// means the platform's default listing.
	RepositoryData(ctx context.Context, path string, typ DataType, token, branch string) (RepoData, error)

	// DefaultBranch resolves the repository's default branch. Empty
	// result with nil error means the platform did not report one.
	DefaultBranch(ctx context.Context, path, token string) (string, error)
}

// SplitPath splits "owner/repo" into its halves. ok is false when the
// identifier is malformed.
func SplitPath(path string) (owner, repo string, ok bool) {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			owner, repo = path[:i], path[i+1:]
			return owner, repo, owner != "" && repo != ""
		}
	}
	return "", "", false
}
