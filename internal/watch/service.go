package watch

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"codewatch/internal/config"
	"codewatch/internal/gitapi"
	"codewatch/internal/storage"
	logx "codewatch/pkg/logx"
)

// Dedup key sections. These segment the marker namespace per
// (platform, data type) and are part of the stored format, so they stay
// stable across releases.
const (
	SectionGitHub         = "GitHub"
	SectionGitee          = "Gitee"
	SectionGitcode        = "Gitcode"
	SectionGiteeReleases  = "GiteeReleases"
	SectionGithubReleases = "GithubReleases"
)

const noReposReply = "No repositories are configured to watch yet. Add some to the watch config first."

const noUpdatesReply = "Everything is quiet. No new commits or releases right now."

// Service runs check cycles: it expands the configured groups into fetch
// requests, fans the fetches out, and hands each group's new activity to
// the deliverer. One Service carries the process-lifetime branch cache
// and dedup state; config is swapped whole via Apply.
type Service struct {
	log       logx.Logger
	clients   map[gitapi.Platform]gitapi.Client
	cache     *BranchCache
	fetcher   *Fetcher
	deliverer *Deliverer
	resolver  *BranchResolver
	transport Transport

	mu  sync.RWMutex
	cfg config.WatchConfig
}

func NewService(clients map[gitapi.Platform]gitapi.Client, store storage.Store, renderer Renderer, transport Transport, log logx.Logger) *Service {
	cache := NewBranchCache()
	dedup := NewDedup(store, log)
	return &Service{
		log:       log,
		clients:   clients,
		cache:     cache,
		fetcher:   NewFetcher(clients, cache, dedup, log),
		deliverer: NewDeliverer(renderer, transport, log),
		resolver:  NewBranchResolver(clients, cache, log),
		transport: transport,
	}
}

// Apply installs a new watch configuration. Safe to call while cycles
// are running; in-flight cycles finish against the snapshot they took.
func (s *Service) Apply(cfg config.WatchConfig) {
	pace, _ := config.ParseDurationOrDefault("watch.pace", cfg.Pace, DefaultPace)
	s.deliverer.SetPace(pace)

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) snapshot() config.WatchConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Service) tokens() map[gitapi.Platform][]string {
	cfg := s.snapshot()
	return map[gitapi.Platform][]string{
		gitapi.PlatformGitHub:  cfg.GithubToken,
		gitapi.PlatformGitee:   cfg.GiteeToken,
		gitapi.PlatformGitcode: cfg.GitcodeToken,
	}
}

// PinDefaultBranches resolves and pins default branches for unbranched
// commit repositories when auto_branch is enabled. Best effort; failures
// leave the identifier as configured.
func (s *Service) PinDefaultBranches(ctx context.Context) {
	cfg := s.snapshot()
	if !cfg.AutoBranch || len(cfg.Groups) == 0 {
		return
	}
	resolved := s.resolver.ResolveGroups(ctx, cfg.Groups, s.tokens())

	s.mu.Lock()
	s.cfg.Groups = resolved
	s.mu.Unlock()
}

// CheckUpdates runs one full check cycle and returns how many new
// entries were found across all groups. Scheduled runs consult and
// advance the persisted markers; on-demand runs (req != nil) always
// report current state and reply to the requester.
func (s *Service) CheckUpdates(ctx context.Context, scheduled bool, req *Request) (int, error) {
	cfg := s.snapshot()

	if len(cfg.Groups) == 0 {
		if scheduled {
			s.log.Info("no watch groups configured")
			return 0, nil
		}
		if req != nil {
			if err := s.transport.SendText(ctx, req.ChatID, noReposReply); err != nil {
				return 0, err
			}
		}
		return 0, nil
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for _, grp := range cfg.Groups {
		grp := grp
		g.Go(func() error {
			total.Add(int64(s.checkGroup(gctx, cfg, grp, scheduled, req)))
			return nil
		})
	}
	_ = g.Wait()

	n := int(total.Load())
	if scheduled {
		if n > 0 {
			s.log.Info("fetched updates", logx.Int("count", n))
		} else {
			s.log.Debug("no new updates")
		}
	} else if n == 0 && req != nil {
		if err := s.transport.SendText(ctx, req.ChatID, noUpdatesReply); err != nil {
			return 0, err
		}
	}
	return n, nil
}

// checkGroup fetches one group's requests concurrently and delivers the
// combined batch. Scheduled runs always enter delivery so the fan-out
// cadence holds even on quiet cycles.
func (s *Service) checkGroup(ctx context.Context, cfg config.WatchConfig, grp config.RepoGroup, scheduled bool, req *Request) int {
	reqs := buildRequests(cfg, grp)

	var (
		mu      sync.Mutex
		entries []ContentEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, fr := range reqs {
		fr := fr
		g.Go(func() error {
			got := s.fetcher.Fetch(gctx, fr, scheduled)
			if len(got) > 0 {
				mu.Lock()
				entries = append(entries, got...)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if scheduled || len(entries) > 0 {
		s.deliverer.Deliver(ctx, entries, grp, scheduled, req)
	}
	return len(entries)
}

// buildRequests expands one group into its per-(platform, type) fetch
// requests, applying auto-discovery to the commit lists. Empty lists
// produce no request.
func buildRequests(cfg config.WatchConfig, grp config.RepoGroup) []FetchRequest {
	github := ResolveRepoList(grp.Github, grp.DiscoverGithub, grp.Exclude, grp.AutoDiscover)
	gitee := ResolveRepoList(grp.Gitee, grp.DiscoverGitee, grp.Exclude, grp.AutoDiscover)
	gitcode := ResolveRepoList(grp.Gitcode, grp.DiscoverGitcode, grp.Exclude, grp.AutoDiscover)

	all := []FetchRequest{
		{Repos: github, Platform: gitapi.PlatformGitHub, Tokens: cfg.GithubToken, Type: gitapi.TypeCommits, Section: SectionGitHub},
		{Repos: gitee, Platform: gitapi.PlatformGitee, Tokens: cfg.GiteeToken, Type: gitapi.TypeCommits, Section: SectionGitee},
		{Repos: gitcode, Platform: gitapi.PlatformGitcode, Tokens: cfg.GitcodeToken, Type: gitapi.TypeCommits, Section: SectionGitcode},
		{Repos: grp.GiteeReleases, Platform: gitapi.PlatformGitee, Tokens: cfg.GiteeToken, Type: gitapi.TypeReleases, Section: SectionGiteeReleases},
		{Repos: grp.GithubReleases, Platform: gitapi.PlatformGitHub, Tokens: cfg.GithubToken, Type: gitapi.TypeReleases, Section: SectionGithubReleases},
	}

	reqs := all[:0]
	for _, r := range all {
		if len(r.Repos) > 0 {
			reqs = append(reqs, r)
		}
	}
	return reqs
}
