package watch

import (
	"context"
	"sync"

	"codewatch/internal/config"
	"codewatch/internal/gitapi"
	logx "codewatch/pkg/logx"
)

// BranchCache maps bare repository paths to their resolved default
// branch. It lives for the process lifetime and never evicts; losing it
// on restart just means re-resolving. Writes are idempotent keyed
// inserts, so concurrent resolutions of the same path are harmless.
type BranchCache struct {
	mu sync.RWMutex
	m  map[string]string
}

func NewBranchCache() *BranchCache {
	return &BranchCache{m: map[string]string{}}
}

func (c *BranchCache) Get(path string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.m[path]
}

func (c *BranchCache) Set(path, branch string) {
	if path == "" || branch == "" {
		return
	}
	c.mu.Lock()
	c.m[path] = branch
	c.mu.Unlock()
}

// BranchResolver pins default branches onto commit repositories that
// were configured without an explicit ":branch" suffix.
type BranchResolver struct {
	clients map[gitapi.Platform]gitapi.Client
	cache   *BranchCache
	log     logx.Logger
}

func NewBranchResolver(clients map[gitapi.Platform]gitapi.Client, cache *BranchCache, log logx.Logger) *BranchResolver {
	return &BranchResolver{clients: clients, cache: cache, log: log}
}

// ResolveGroups returns a deep copy of groups in which every unbranched
// commit repository that could be resolved is rewritten to
// "owner/repo:branch". The input is never mutated; the caller merges the
// returned value back into its own state.
//
// Resolution is best-effort and concurrent per entry: one failing
// repository is logged and left unbranched without blocking the others.
func (r *BranchResolver) ResolveGroups(ctx context.Context, groups []config.RepoGroup, tokens map[gitapi.Platform][]string) []config.RepoGroup {
	out := make([]config.RepoGroup, len(groups))
	copy(out, groups)

	var wg sync.WaitGroup
	var resolved sync.Map // path -> branch, for the summary count

	for gi := range out {
		lists := []struct {
			platform gitapi.Platform
			repos    []string
		}{
			{gitapi.PlatformGitHub, append([]string(nil), out[gi].Github...)},
			{gitapi.PlatformGitee, append([]string(nil), out[gi].Gitee...)},
			{gitapi.PlatformGitcode, append([]string(nil), out[gi].Gitcode...)},
		}
		for _, l := range lists {
			for idx, ident := range l.repos {
				path, branch := SplitRepo(ident)
				if branch != "" {
					continue
				}
				client := r.clients[l.platform]
				if client == nil {
					continue
				}
				token := sampleToken(tokens[l.platform])

				wg.Add(1)
				// Each task writes only its own (list, index) slot, so
				// concurrent rewrites never contend.
				go func(platform gitapi.Platform, repos []string, idx int, path, token string) {
					defer wg.Done()
					b, err := client.DefaultBranch(ctx, path, token)
					if err != nil || b == "" {
						r.log.Warn("default branch lookup failed",
							logx.String("platform", string(platform)),
							logx.String("repo", path),
							logx.Err(err))
						return
					}
					r.cache.Set(path, b)
					repos[idx] = path + ":" + b
					resolved.Store(path, b)
				}(l.platform, l.repos, idx, path, token)
			}
		}
		out[gi].Github = lists[0].repos
		out[gi].Gitee = lists[1].repos
		out[gi].Gitcode = lists[2].repos
	}

	wg.Wait()

	n := 0
	resolved.Range(func(_, _ any) bool { n++; return true })
	if n > 0 {
		r.log.Info("default branches pinned", logx.Int("count", n))
	}
	return out
}
