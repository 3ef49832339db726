// Package app wires configuration, logging, storage, the platform
// clients, and the watch pipeline into one runnable bot.
package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"codewatch/internal/config"
	"codewatch/internal/gitapi"
	"codewatch/internal/render"
	rtsup "codewatch/internal/runtime/supervisor"
	"codewatch/internal/storage"
	kit "codewatch/internal/transport"
	"codewatch/internal/transport/telegram"
	"codewatch/internal/watch"
	logx "codewatch/pkg/logx"
)

// cronParser accepts standard 5-field specs plus an optional leading
// seconds field and @-descriptors.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type App struct {
	cfgPath string
	cfgm    *config.Manager

	log  logx.Logger
	logs *logx.Service

	store   storage.Store
	adapter kit.Adapter
	watcher *watch.Service

	cron     *cron.Cron
	cronMu   sync.Mutex
	cronID   cron.EntryID
	schedule string

	sup     *rtsup.Supervisor
	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Watch.Schedule != "" {
		if _, err := cronParser.Parse(cfg.Watch.Schedule); err != nil {
			return nil, fmt.Errorf("watch.schedule: %w", err)
		}
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, logSvc.Logger().With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	var store storage.Store
	if cfg.Storage != nil {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return nil, err
		}
		st, err := storage.Open(storage.Config{
			Driver:      cfg.Storage.Driver,
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
		}, logSvc.Logger().With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		if store != nil {
			log.Info("storage enabled", logx.String("driver", cfg.Storage.Driver))
		}
	}
	if store == nil {
		log.Warn("storage disabled; every scheduled run reports all activity again")
	}

	renderer, err := render.NewHTML(logSvc.Logger().With(logx.String("comp", "render")))
	if err != nil {
		return nil, err
	}

	clients := map[gitapi.Platform]gitapi.Client{
		gitapi.PlatformGitHub:  gitapi.NewGitHub(),
		gitapi.PlatformGitee:   gitapi.NewGitee(),
		gitapi.PlatformGitcode: gitapi.NewGitcode(),
	}

	watcher := watch.NewService(clients, store, renderer, &chatTransport{adapter: ad},
		logSvc.Logger().With(logx.String("comp", "watch")))
	watcher.Apply(cfg.Watch)

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		store:   store,
		adapter: ad,
		watcher: watcher,
		cron:    cron.New(cron.WithParser(cronParser)),
		updates: make(chan kit.Update, 256),
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, a.log)

	a.cfgm.SetLogger(a.logs.Logger().With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if cfg.Watch.Schedule != "" {
			if _, err := cronParser.Parse(cfg.Watch.Schedule); err != nil {
				return fmt.Errorf("watch.schedule: %w", err)
			}
		}
		return nil
	})

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}

	// Pin default branches before the first scheduled run so early cycles
	// fetch the same commits later ones will.
	if cfg := a.cfgm.Get(); cfg != nil && cfg.Watch.AutoBranch {
		a.watcher.PinDefaultBranches(a.sup.Context())
	}

	a.cron.Start()
	if cfg := a.cfgm.Get(); cfg != nil {
		a.applySchedule(cfg.Watch.Schedule)
	}

	a.sup.Go("updates.dispatch", func(c context.Context) error {
		return a.dispatchLoop(c)
	})

	sub := a.cfgm.Subscribe(8)
	a.sup.Go("config.reload", func(c context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return nil
			case newCfg, ok := <-sub:
				if !ok {
					return nil
				}
				a.applyConfig(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("app started")
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping")

	cronCtx := a.cron.Stop()
	a.sup.Cancel()

	select {
	case <-cronCtx.Done():
	case <-time.After(3 * time.Second):
		a.log.Warn("cron jobs still running at shutdown")
	}

	if err := a.adapter.Stop(ctx); err != nil {
		a.log.Warn("adapter stop error", logx.Err(err))
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close error", logx.Err(err))
		}
	}

	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.sup.Wait(wctx); err != nil && ctx.Err() == nil {
		a.log.Warn("shutdown wait error", logx.Err(err))
	}

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}

// applyConfig reacts to a hot reload. Logging and the watch pipeline
// apply live; telegram and storage changes need a restart.
func (a *App) applyConfig(ctx context.Context, newCfg *config.Config) {
	if newCfg == nil {
		return
	}
	a.logs.Apply(logx.Config{
		Level:   newCfg.Logging.Level,
		Console: newCfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: newCfg.Logging.File.Enabled,
			Path:    newCfg.Logging.File.Path,
		},
	})

	a.watcher.Apply(newCfg.Watch)
	if newCfg.Watch.AutoBranch {
		a.watcher.PinDefaultBranches(ctx)
	}
	a.applySchedule(newCfg.Watch.Schedule)

	a.log.Info("config reloaded")
}

func (a *App) applySchedule(spec string) {
	a.cronMu.Lock()
	defer a.cronMu.Unlock()

	if spec == a.schedule {
		return
	}
	if a.cronID != 0 {
		a.cron.Remove(a.cronID)
		a.cronID = 0
	}
	a.schedule = spec
	if spec == "" {
		a.log.Info("scheduled checks disabled")
		return
	}
	id, err := a.cron.AddFunc(spec, func() {
		ctx := context.Background()
		if a.sup != nil {
			ctx = a.sup.Context()
		}
		if _, err := a.watcher.CheckUpdates(ctx, true, nil); err != nil {
			a.log.Error("scheduled check failed", logx.Err(err))
		}
	})
	if err != nil {
		// Validator parses the spec before commit, so this is unexpected.
		a.log.Error("schedule rejected", logx.String("spec", spec), logx.Err(err))
		return
	}
	a.cronID = id
	a.log.Info("scheduled checks enabled", logx.String("spec", spec))
}

// dispatchLoop handles inbound chat commands.
func (a *App) dispatchLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-a.updates:
			if !ok {
				return nil
			}
			m := up.Message
			if m == nil || !isCommand(m.Text, "updates") {
				continue
			}
			a.log.Info("on-demand check requested",
				logx.Int64("chat", m.ChatID),
				logx.Int64("from", m.FromID),
				logx.String("user", m.FromUsername))
			if _, err := a.watcher.CheckUpdates(ctx, false, &watch.Request{ChatID: m.ChatID, UserID: m.FromID}); err != nil {
				a.log.Error("on-demand check failed", logx.Err(err))
			}
		}
	}
}

// isCommand matches "/name" and "/name@botname", with optional trailing
// arguments.
func isCommand(text, name string) bool {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return false
	}
	head := text[1:]
	if i := strings.IndexAny(head, " \t"); i >= 0 {
		head = head[:i]
	}
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	return strings.EqualFold(head, name)
}
