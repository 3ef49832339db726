package watch

import (
	"context"
	"math/rand/v2"
	"sync"

	"codewatch/internal/gitapi"
	logx "codewatch/pkg/logx"
)

// Fetcher runs the concurrent per-repository fetch pipeline for one
// FetchRequest. Failure containment is per repository: whatever goes
// wrong for one repo (adapter error, panic, bad payload) is logged with
// full context and never touches its siblings.
type Fetcher struct {
	clients map[gitapi.Platform]gitapi.Client
	cache   *BranchCache
	dedup   *Dedup
	log     logx.Logger
}

func NewFetcher(clients map[gitapi.Platform]gitapi.Client, cache *BranchCache, dedup *Dedup, log logx.Logger) *Fetcher {
	return &Fetcher{clients: clients, cache: cache, dedup: dedup, log: log}
}

// Fetch processes every repository in the request concurrently and
// returns the formatted entries for repositories with new activity.
// Result order follows completion order; callers must not rely on it.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest, scheduled bool) []ContentEntry {
	var (
		mu  sync.Mutex
		out []ContentEntry
		wg  sync.WaitGroup
	)

	for _, repo := range req.Repos {
		if repo == "" {
			continue
		}
		wg.Add(1)
		go func(repo string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					f.log.Error("fetch panicked",
						logx.String("platform", string(req.Platform)),
						logx.String("type", string(req.Type)),
						logx.String("repo", repo),
						logx.Any("panic", r))
				}
			}()
			entry, ok := f.fetchOne(ctx, req, repo, scheduled)
			if !ok {
				return
			}
			mu.Lock()
			out = append(out, entry)
			mu.Unlock()
		}(repo)
	}

	wg.Wait()
	return out
}

func (f *Fetcher) fetchOne(ctx context.Context, req FetchRequest, repo string, scheduled bool) (ContentEntry, bool) {
	rlog := f.log.With(
		logx.String("platform", string(req.Platform)),
		logx.String("type", string(req.Type)),
		logx.String("repo", repo),
	)

	path, branch := repo, ""
	if req.Type == gitapi.TypeCommits {
		path, branch = SplitRepo(repo)
		if branch == "" {
			// A sibling resolution earlier in this process may already
			// know the default branch.
			branch = f.cache.Get(path)
		}
	}

	client := f.clients[req.Platform]
	if client == nil {
		rlog.Error("no client for platform")
		return ContentEntry{}, false
	}

	rlog.Debug("requesting repository data")
	data, err := client.RepositoryData(ctx, path, req.Type, sampleToken(req.Tokens), branch)
	if err != nil {
		rlog.Error("fetch failed", logx.Err(err))
		return ContentEntry{}, false
	}

	switch data.Status {
	case gitapi.StatusSkip:
		// The adapter chose to no-op; nothing to log at error level.
		rlog.Debug("fetch skipped by adapter")
		return ContentEntry{}, false
	case gitapi.StatusNotFound:
		rlog.Error("repository not found")
		return ContentEntry{}, false
	}

	// Branch lookups return a single commit; wrap it so the rest of the
	// pipeline only ever sees lists.
	commits := data.Commits
	if req.Type == gitapi.TypeCommits && branch != "" && data.Commit != nil {
		commits = []gitapi.Commit{*data.Commit}
	}

	var newID string
	switch req.Type {
	case gitapi.TypeCommits:
		if len(commits) == 0 {
			rlog.Warn("no commit data")
			return ContentEntry{}, false
		}
		newID = commits[0].SHA
	case gitapi.TypeReleases:
		if len(data.Releases) == 0 || data.Releases[0].TagName == "" {
			rlog.Warn("no release data")
			return ContentEntry{}, false
		}
		newID = data.Releases[0].NodeID
	}

	// Scheduled runs report deltas only; on-demand runs always want a
	// fresh report and never consult or disturb the markers.
	if scheduled {
		if f.dedup.IsUpToDate(ctx, req.Section, repo, newID) {
			rlog.Debug("no update")
			return ContentEntry{}, false
		}
		rlog.Info("update detected")
		f.dedup.Record(ctx, req.Section, repo, newID, scheduled)
	}

	if req.Type == gitapi.TypeCommits {
		return FormatCommit(commits[0], req.Platform, path, branch), true
	}
	return FormatRelease(data.Releases[0], req.Platform, repo), true
}

// sampleToken picks one credential uniformly so multiple tokens spread
// request load; a single token (or none) passes through.
func sampleToken(tokens []string) string {
	switch len(tokens) {
	case 0:
		return ""
	case 1:
		return tokens[0]
	default:
		return tokens[rand.IntN(len(tokens))]
	}
}
