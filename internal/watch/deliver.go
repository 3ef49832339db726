package watch

import (
	"context"
	"strconv"
	"sync"
	"time"

	"codewatch/internal/config"
	logx "codewatch/pkg/logx"
)

// DigestTemplate is the renderer template identifier for update digests.
const DigestTemplate = "codeupdate/digest"

// DefaultPace is the delay between fan-out sends when none is configured.
const DefaultPace = 5 * time.Second

// Deliverer renders one group's content batch and dispatches it.
//
// Scheduled runs broadcast strictly sequentially: the pacing delay
// elapses after each target before the next one starts, so the delivery
// channel's own flood control is never tripped. The delay elapses for
// every configured target even when there is nothing to send, keeping
// the cadence predictable.
type Deliverer struct {
	renderer  Renderer
	transport Transport
	log       logx.Logger

	mu   sync.Mutex
	pace time.Duration

	// pause is swapped out by tests.
	pause func(ctx context.Context, d time.Duration)
}

func NewDeliverer(renderer Renderer, transport Transport, log logx.Logger) *Deliverer {
	return &Deliverer{
		renderer:  renderer,
		transport: transport,
		log:       log,
		pace:      DefaultPace,
		pause:     sleepCtx,
	}
}

func (d *Deliverer) SetPace(p time.Duration) {
	if p <= 0 {
		p = DefaultPace
	}
	d.mu.Lock()
	d.pace = p
	d.mu.Unlock()
}

// Deliver renders entries and dispatches the artifact for one group.
// On-demand invocations reply directly to the requester; scheduled
// invocations broadcast to every configured target.
func (d *Deliverer) Deliver(ctx context.Context, entries []ContentEntry, grp config.RepoGroup, scheduled bool, req *Request) {
	var (
		art Artifact
		err error
	)
	if len(entries) > 0 {
		cacheID := "auto"
		if !scheduled && req != nil {
			cacheID = strconv.FormatInt(req.UserID, 10)
		}
		art, err = d.renderer.Render(ctx, DigestTemplate, RenderRequest{Entries: entries, CacheID: cacheID})
		if err != nil {
			// Rendering failure kills this group's delivery only.
			d.log.Error("digest render failed", logx.Int("entries", len(entries)), logx.Err(err))
		}
	}

	if !scheduled {
		if req == nil {
			return
		}
		if err == nil && !art.IsZero() {
			if serr := d.transport.SendToGroup(ctx, req.ChatID, art); serr != nil {
				d.log.Error("reply failed", logx.Int64("chat", req.ChatID), logx.Err(serr))
			}
		}
		return
	}

	d.mu.Lock()
	pace := d.pace
	d.mu.Unlock()

	sendable := len(entries) > 0 && err == nil && !art.IsZero()

	for _, chat := range grp.Chats {
		if sendable {
			if serr := d.transport.SendToGroup(ctx, chat, art); serr != nil {
				d.log.Error("group send failed", logx.Int64("chat", chat), logx.Err(serr))
			}
		}
		d.pause(ctx, pace)
	}
	for _, user := range grp.Users {
		if sendable {
			if serr := d.transport.SendToDirect(ctx, user, art); serr != nil {
				d.log.Error("direct send failed", logx.Int64("user", user), logx.Err(serr))
			}
		}
		d.pause(ctx, pace)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
