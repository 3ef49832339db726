package watch

import (
	"context"
	"testing"
	"time"

	"codewatch/internal/config"
	logx "codewatch/pkg/logx"
)

func sampleEntries() []ContentEntry {
	return []ContentEntry{{Kind: EntryCommit, Commit: &CommitEntry{Repo: "o/r", Text: "<b>m</b>"}}}
}

func TestDeliverScheduledFanOut(t *testing.T) {
	tr := &fakeTransport{}
	d := NewDeliverer(&fakeRenderer{}, tr, logx.Nop())
	pauses := 0
	d.pause = func(context.Context, time.Duration) { pauses++ }

	grp := config.RepoGroup{Chats: []int64{1, 2}, Users: []int64{3}}
	d.Deliver(context.Background(), sampleEntries(), grp, true, nil)

	groups, directs, _ := tr.counts()
	if groups != 2 || directs != 1 {
		t.Fatalf("sends = (%d,%d), want (2,1)", groups, directs)
	}
	if pauses != 3 {
		t.Fatalf("pauses = %d, want one per target", pauses)
	}
}

func TestDeliverScheduledEmptyStillPaces(t *testing.T) {
	tr := &fakeTransport{}
	r := &fakeRenderer{}
	d := NewDeliverer(r, tr, logx.Nop())
	pauses := 0
	d.pause = func(context.Context, time.Duration) { pauses++ }

	grp := config.RepoGroup{Chats: []int64{1, 2}, Users: []int64{3}}
	d.Deliver(context.Background(), nil, grp, true, nil)

	groups, directs, _ := tr.counts()
	if groups != 0 || directs != 0 {
		t.Fatalf("empty batch sent (%d,%d) messages", groups, directs)
	}
	if pauses != 3 {
		t.Fatalf("pauses = %d, want 3 even with nothing to send", pauses)
	}
	if r.calls != 0 {
		t.Fatal("empty batch must not render")
	}
}

func TestDeliverRenderFailureSkipsSends(t *testing.T) {
	tr := &fakeTransport{}
	d := NewDeliverer(&fakeRenderer{fail: true}, tr, logx.Nop())
	pauses := 0
	d.pause = func(context.Context, time.Duration) { pauses++ }

	grp := config.RepoGroup{Chats: []int64{1}}
	d.Deliver(context.Background(), sampleEntries(), grp, true, nil)

	if groups, _, _ := tr.counts(); groups != 0 {
		t.Fatal("render failure must not send")
	}
	if pauses != 1 {
		t.Fatalf("pauses = %d, want pacing preserved on failure", pauses)
	}
}

func TestDeliverOnDemandRepliesToRequester(t *testing.T) {
	tr := &fakeTransport{}
	d := NewDeliverer(&fakeRenderer{}, tr, logx.Nop())
	pauses := 0
	d.pause = func(context.Context, time.Duration) { pauses++ }

	grp := config.RepoGroup{Chats: []int64{1, 2}, Users: []int64{3}}
	d.Deliver(context.Background(), sampleEntries(), grp, false, &Request{ChatID: 99, UserID: 7})

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.groups) != 1 || tr.groups[0].target != 99 {
		t.Fatalf("on-demand sends = %+v, want one reply to chat 99", tr.groups)
	}
	if len(tr.directs) != 0 {
		t.Fatal("on-demand must not broadcast to configured users")
	}
	if pauses != 0 {
		t.Fatal("on-demand replies are not paced")
	}
	if tr.groups[0].text != "digest:7" {
		t.Fatalf("cache id not derived from requester: %q", tr.groups[0].text)
	}
}

func TestSetPaceRejectsNonPositive(t *testing.T) {
	d := NewDeliverer(&fakeRenderer{}, &fakeTransport{}, logx.Nop())
	d.SetPace(-1)
	d.mu.Lock()
	pace := d.pace
	d.mu.Unlock()
	if pace != DefaultPace {
		t.Fatalf("pace = %v, want default", pace)
	}
}
