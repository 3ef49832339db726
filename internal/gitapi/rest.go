package gitapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// REST implements Client for the Gitee-style v5 REST API, which both
// Gitee and Gitcode expose with GitHub-compatible payloads.
type REST struct {
	platform Platform
	baseURL  string
	http     *http.Client
}

func NewGitee() *REST {
	return &REST{
		platform: PlatformGitee,
		baseURL:  "https://gitee.com/api/v5",
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func NewGitcode() *REST {
	return &REST{
		platform: PlatformGitcode,
		baseURL:  "https://api.gitcode.com/api/v5",
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// NewREST builds a client against a custom endpoint. Used by tests and
// self-hosted deployments.
func NewREST(platform Platform, baseURL string, hc *http.Client) *REST {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &REST{platform: platform, baseURL: baseURL, http: hc}
}

// Wire shapes; only the fields the formatter needs.

type restActor struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type restSignature struct {
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

type restCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author    restSignature `json:"author"`
		Committer restSignature `json:"committer"`
		Message   string        `json:"message"`
	} `json:"commit"`
	Author    *restActor `json:"author"`
	Committer *restActor `json:"committer"`
	Stats     *struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
	} `json:"stats"`
	Files []struct {
		Filename string `json:"filename"`
	} `json:"files"`
}

type restRelease struct {
	ID          int64      `json:"id"`
	NodeID      string     `json:"node_id"`
	TagName     string     `json:"tag_name"`
	Name        string     `json:"name"`
	Body        string     `json:"body"`
	Author      *restActor `json:"author"`
	PublishedAt time.Time  `json:"created_at"`
}

type restError struct {
	Message string `json:"message"`
}

func (r *REST) RepositoryData(ctx context.Context, path string, typ DataType, token, branch string) (RepoData, error) {
	switch typ {
	case TypeCommits:
		if branch != "" {
			var c restCommit
			st, err := r.get(ctx, fmt.Sprintf("/repos/%s/commits/%s", path, url.PathEscape(branch)), token, nil, &c)
			if err != nil || st != StatusOK {
				return RepoData{Status: st}, err
			}
			mc := c.model()
			return RepoData{Commit: &mc}, nil
		}
		var cs []restCommit
		st, err := r.get(ctx, "/repos/"+path+"/commits", token, url.Values{"per_page": {"1"}}, &cs)
		if err != nil || st != StatusOK {
			return RepoData{Status: st}, err
		}
		out := make([]Commit, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.model())
		}
		return RepoData{Commits: out}, nil

	case TypeReleases:
		var rels []restRelease
		st, err := r.get(ctx, "/repos/"+path+"/releases", token, url.Values{
			"per_page": {"1"}, "direction": {"desc"},
		}, &rels)
		if err != nil || st != StatusOK {
			return RepoData{Status: st}, err
		}
		out := make([]Release, 0, len(rels))
		for _, rel := range rels {
			out = append(out, rel.model())
		}
		return RepoData{Releases: out}, nil

	default:
		return RepoData{}, fmt.Errorf("unknown data type %q", typ)
	}
}

func (r *REST) DefaultBranch(ctx context.Context, path, token string) (string, error) {
	var repo struct {
		DefaultBranch string `json:"default_branch"`
	}
	st, err := r.get(ctx, "/repos/"+path, token, nil, &repo)
	if err != nil {
		return "", err
	}
	if st != StatusOK {
		return "", nil
	}
	return repo.DefaultBranch, nil
}

// get performs one API call and decodes the body into out. The returned
// Status is only meaningful when err is nil.
func (r *REST) get(ctx context.Context, p string, token string, q url.Values, out any) (Status, error) {
	if q == nil {
		q = url.Values{}
	}
	if token != "" {
		q.Set("access_token", token)
	}
	u := r.baseURL + p
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return StatusOK, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return StatusOK, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return StatusOK, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return StatusNotFound, nil
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		// Rate limited: intentional no-op, next cycle retries.
		return StatusSkip, nil
	case resp.StatusCode/100 != 2:
		return StatusOK, fmt.Errorf("%s: unexpected status %d", r.platform, resp.StatusCode)
	}

	// Some deployments answer 200 with an error message body.
	var apiErr restError
	if json.Unmarshal(body, &apiErr) == nil && notFoundMessage(apiErr.Message) {
		return StatusNotFound, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return StatusOK, fmt.Errorf("%s: decode response: %w", r.platform, err)
	}
	return StatusOK, nil
}

// Gitee spells its missing-repository message "Not Found Projec".
func notFoundMessage(msg string) bool {
	return msg == "Not Found" || msg == "Not Found Projec"
}

func (c restCommit) model() Commit {
	out := Commit{
		SHA: c.SHA,
		Commit: CommitDetail{
			Author:    Signature{Name: c.Commit.Author.Name, Date: c.Commit.Author.Date},
			Committer: Signature{Name: c.Commit.Committer.Name, Date: c.Commit.Committer.Date},
			Message:   c.Commit.Message,
		},
	}
	if c.Author != nil {
		out.Author = &Actor{Login: c.Author.Login, Name: c.Author.Name, AvatarURL: c.Author.AvatarURL}
	}
	if c.Committer != nil {
		out.Committer = &Actor{Login: c.Committer.Login, Name: c.Committer.Name, AvatarURL: c.Committer.AvatarURL}
	}
	if c.Stats != nil {
		out.Stats = &Stats{Additions: c.Stats.Additions, Deletions: c.Stats.Deletions}
	}
	for _, f := range c.Files {
		out.Files = append(out.Files, f.Filename)
	}
	return out
}

func (r restRelease) model() Release {
	id := r.NodeID
	if id == "" {
		id = strconv.FormatInt(r.ID, 10)
	}
	out := Release{
		NodeID:      id,
		TagName:     r.TagName,
		Name:        r.Name,
		Body:        r.Body,
		PublishedAt: r.PublishedAt,
	}
	if r.Author != nil {
		out.Author = &Actor{Login: r.Author.Login, Name: r.Author.Name, AvatarURL: r.Author.AvatarURL}
	}
	return out
}
