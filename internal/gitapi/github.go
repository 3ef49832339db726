package gitapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v53/github"
)

// GitHub implements Client on top of the official REST API v3.
type GitHub struct{}

func NewGitHub() *GitHub { return &GitHub{} }

// client builds a (possibly authenticated) API client. Tokens rotate per
// request, so clients are constructed per call; they are cheap wrappers
// around http.Client.
func (g *GitHub) client(ctx context.Context, token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	return github.NewTokenClient(ctx, token)
}

func (g *GitHub) RepositoryData(ctx context.Context, path string, typ DataType, token, branch string) (RepoData, error) {
	owner, repo, ok := SplitPath(path)
	if !ok {
		return RepoData{}, fmt.Errorf("malformed repository path %q", path)
	}
	cl := g.client(ctx, token)

	switch typ {
	case TypeReleases:
		rels, resp, err := cl.Repositories.ListReleases(ctx, owner, repo, &github.ListOptions{PerPage: 1})
		if st, handled := githubStatus(resp, err); handled {
			return RepoData{Status: st}, nil
		}
		if err != nil {
			return RepoData{}, err
		}
		out := make([]Release, 0, len(rels))
		for _, r := range rels {
			out = append(out, mapGitHubRelease(r))
		}
		return RepoData{Releases: out}, nil

	case TypeCommits:
		if branch != "" {
			c, resp, err := cl.Repositories.GetCommit(ctx, owner, repo, branch, nil)
			if st, handled := githubStatus(resp, err); handled {
				return RepoData{Status: st}, nil
			}
			if err != nil {
				return RepoData{}, err
			}
			mc := mapGitHubCommit(c)
			return RepoData{Commit: &mc}, nil
		}
		cs, resp, err := cl.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})
		if st, handled := githubStatus(resp, err); handled {
			return RepoData{Status: st}, nil
		}
		if err != nil {
			return RepoData{}, err
		}
		out := make([]Commit, 0, len(cs))
		for _, c := range cs {
			out = append(out, mapGitHubCommit(c))
		}
		return RepoData{Commits: out}, nil

	default:
		return RepoData{}, fmt.Errorf("unknown data type %q", typ)
	}
}

func (g *GitHub) DefaultBranch(ctx context.Context, path, token string) (string, error) {
	owner, repo, ok := SplitPath(path)
	if !ok {
		return "", fmt.Errorf("malformed repository path %q", path)
	}
	r, _, err := g.client(ctx, token).Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return r.GetDefaultBranch(), nil
}

// githubStatus maps API failures onto named fetch outcomes. Rate limits
// become Skip (retried naturally on the next cycle); 404s become
// NotFound. Everything else stays an error for the caller.
func githubStatus(resp *github.Response, err error) (Status, bool) {
	if err == nil {
		return StatusOK, false
	}
	var rl *github.RateLimitError
	var arl *github.AbuseRateLimitError
	if errors.As(err, &rl) || errors.As(err, &arl) {
		return StatusSkip, true
	}
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return StatusNotFound, true
	}
	return StatusOK, false
}

func mapGitHubCommit(c *github.RepositoryCommit) Commit {
	out := Commit{
		SHA: c.GetSHA(),
		Commit: CommitDetail{
			Author: Signature{
				Name: c.GetCommit().GetAuthor().GetName(),
				Date: c.GetCommit().GetAuthor().GetDate().Time,
			},
			Committer: Signature{
				Name: c.GetCommit().GetCommitter().GetName(),
				Date: c.GetCommit().GetCommitter().GetDate().Time,
			},
			Message: c.GetCommit().GetMessage(),
		},
	}
	if u := c.GetAuthor(); u != nil {
		out.Author = &Actor{Login: u.GetLogin(), Name: u.GetName(), AvatarURL: u.GetAvatarURL()}
	}
	if u := c.GetCommitter(); u != nil {
		out.Committer = &Actor{Login: u.GetLogin(), Name: u.GetName(), AvatarURL: u.GetAvatarURL()}
	}
	if s := c.GetStats(); s != nil {
		out.Stats = &Stats{Additions: s.GetAdditions(), Deletions: s.GetDeletions()}
	}
	for _, f := range c.Files {
		out.Files = append(out.Files, f.GetFilename())
	}
	return out
}

func mapGitHubRelease(r *github.RepositoryRelease) Release {
	out := Release{
		NodeID:      r.GetNodeID(),
		TagName:     r.GetTagName(),
		Name:        r.GetName(),
		Body:        r.GetBody(),
		PublishedAt: r.GetPublishedAt().Time,
	}
	if u := r.GetAuthor(); u != nil {
		out.Author = &Actor{Login: u.GetLogin(), Name: u.GetName(), AvatarURL: u.GetAvatarURL()}
	}
	return out
}
