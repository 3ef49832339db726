package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`

	// Storage backs the last-seen update markers. If omitted, every
	// scheduled run reports everything again, so configure it.
	Storage *StorageConfig `json:"storage,omitempty"`

	Watch WatchConfig `json:"watch"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./codewatch_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// WatchConfig is the repository-watching surface.
//
// All durations are Go duration strings. Tokens accept either a single
// credential or a list; with a list, fetches sample one token per repo
// so no single credential eats all the rate limit.
type WatchConfig struct {
	// Schedule is a cron spec (robfig/cron, seconds optional) for
	// scheduled checks. Empty disables scheduled runs; the /updates
	// command still works.
	Schedule string `json:"schedule,omitempty"`

	// Pace is the fixed delay between fan-out sends. Default "5s".
	Pace string `json:"pace,omitempty"`

	// AutoBranch resolves and pins default branches at startup for
	// commit repos configured without ":branch".
	AutoBranch bool `json:"auto_branch,omitempty"`

	GithubToken  Tokens `json:"github_token,omitempty"`
	GiteeToken   Tokens `json:"gitee_token,omitempty"`
	GitcodeToken Tokens `json:"gitcode_token,omitempty"`

	Groups []RepoGroup `json:"groups"`
}

// RepoGroup is one configured watch unit: per-platform repository lists
// plus the delivery targets for whatever those repositories produce.
// Repository identifiers are "owner/repo" or "owner/repo:branch"
// (commit lists only; releases always use the bare identifier).
type RepoGroup struct {
	Github         []string `json:"github,omitempty"`
	Gitee          []string `json:"gitee,omitempty"`
	Gitcode        []string `json:"gitcode,omitempty"`
	GithubReleases []string `json:"github_releases,omitempty"`
	GiteeReleases  []string `json:"gitee_releases,omitempty"`

	// AutoDiscover merges the Discover* candidate lists into the
	// corresponding commit lists (set semantics), minus Exclude.
	AutoDiscover    bool     `json:"auto_discover,omitempty"`
	DiscoverGithub  []string `json:"discover_github,omitempty"`
	DiscoverGitee   []string `json:"discover_gitee,omitempty"`
	DiscoverGitcode []string `json:"discover_gitcode,omitempty"`
	Exclude         []string `json:"exclude,omitempty"`

	// Delivery targets: group chats and direct users.
	Chats []int64 `json:"chats,omitempty"`
	Users []int64 `json:"users,omitempty"`
}

// Tokens is a credential that may be written as a scalar or a list in
// config. It always normalizes to a list so callers never branch on the
// shape.
type Tokens []string

func (t *Tokens) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			*t = nil
			return nil
		}
		*t = Tokens{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return errors.New("token must be a string or a list of strings")
	}
	out := make(Tokens, 0, len(many))
	for _, s := range many {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	*t = out
	return nil
}

// Validate checks the parts of the config that fail late and loudly
// otherwise. Kept deliberately shallow; services re-validate their own
// sections on Apply.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("watch.pace", c.Watch.Pace); err != nil {
		return err
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return err
		}
	}
	for i, g := range c.Watch.Groups {
		for _, list := range [][]string{g.Github, g.Gitee, g.Gitcode, g.GithubReleases, g.GiteeReleases} {
			for _, repo := range list {
				if err := checkRepoIdent(repo); err != nil {
					return fmt.Errorf("watch.groups[%d]: %w", i, err)
				}
			}
		}
	}
	return nil
}

func checkRepoIdent(s string) error {
	path := s
	if i := strings.IndexByte(s, ':'); i >= 0 {
		path = s[:i]
		if strings.TrimSpace(s[i+1:]) == "" {
			return fmt.Errorf("repository %q has an empty branch", s)
		}
	}
	parts := strings.Split(path, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return fmt.Errorf("repository %q is not owner/repo", s)
	}
	return nil
}
