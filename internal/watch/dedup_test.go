package watch

import (
	"context"
	"testing"

	logx "codewatch/pkg/logx"
)

func TestDedupExactMatchOnly(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	d := NewDedup(store, logx.Nop())

	if d.IsUpToDate(ctx, SectionGitHub, "o/r", "abc") {
		t.Fatal("unknown repo must look new")
	}

	d.Record(ctx, SectionGitHub, "o/r", "abc", true)
	if !d.IsUpToDate(ctx, SectionGitHub, "o/r", "abc") {
		t.Fatal("recorded id must be up to date")
	}
	if d.IsUpToDate(ctx, SectionGitHub, "o/r", "def") {
		t.Fatal("different id must look new")
	}
	if d.IsUpToDate(ctx, SectionGitee, "o/r", "abc") {
		t.Fatal("sections must not share markers")
	}

	// Moving backwards to an older id still counts as new; only exact
	// equality suppresses.
	d.Record(ctx, SectionGitHub, "o/r", "def", true)
	if d.IsUpToDate(ctx, SectionGitHub, "o/r", "abc") {
		t.Fatal("stale id must look new after the marker advanced")
	}
}

func TestDedupUnscheduledNeverWrites(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	d := NewDedup(store, logx.Nop())

	d.Record(ctx, SectionGitHub, "o/r", "abc", false)
	if store.putCount() != 0 {
		t.Fatal("unscheduled record wrote to the store")
	}
}

func TestDedupNilStore(t *testing.T) {
	ctx := context.Background()
	d := NewDedup(nil, logx.Nop())

	if d.IsUpToDate(ctx, SectionGitHub, "o/r", "abc") {
		t.Fatal("nil store must treat everything as new")
	}
	// Must not panic.
	d.Record(ctx, SectionGitHub, "o/r", "abc", true)
}

func TestDedupMalformedMarkerLooksNew(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	_ = store.Put(ctx, "DF:CodeUpdate:GitHub:o/r", "not json")
	d := NewDedup(store, logx.Nop())

	if d.IsUpToDate(ctx, SectionGitHub, "o/r", "abc") {
		t.Fatal("malformed marker must look new")
	}
}
