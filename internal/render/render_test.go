package render

import (
	"context"
	"strings"
	"testing"

	"codewatch/internal/watch"
	logx "codewatch/pkg/logx"
)

func TestRenderDigest(t *testing.T) {
	h, err := NewHTML(logx.Nop())
	if err != nil {
		t.Fatalf("NewHTML: %v", err)
	}

	entries := []watch.ContentEntry{
		{Kind: watch.EntryCommit, Commit: &watch.CommitEntry{
			Source:   "GitHub",
			Repo:     "owner/repo",
			Branch:   "main",
			TimeInfo: "alice authored 2 hours ago",
			Text:     "<b>fix: crash</b>\ndetails",
			Stats:    &watch.ChangeStats{Files: 2, Additions: 5, Deletions: 1},
		}},
		{Kind: watch.EntryRelease, Release: &watch.ReleaseEntry{
			Source:   "Gitee",
			Repo:     "other/repo",
			Tag:      "v2.0",
			TimeInfo: "bob released 1 day ago",
			Text:     "<b>v2.0</b>\n<p>notes</p>",
		}},
	}

	art, err := h.Render(context.Background(), watch.DigestTemplate, watch.RenderRequest{Entries: entries, CacheID: "auto"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if art.MIME != MIMEHTML {
		t.Fatalf("MIME = %q", art.MIME)
	}
	out := string(art.Data)

	for _, want := range []string{
		"owner/repo:main",
		"alice authored 2 hours ago",
		"<b>fix: crash</b>",
		"2 files changed, +5 -1",
		"other/repo v2.0",
		"<p>notes</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("digest missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "&lt;b&gt;") {
		t.Fatalf("entry markup escaped:\n%s", out)
	}
}

func TestRenderEscapesPlainFields(t *testing.T) {
	h, err := NewHTML(logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	entries := []watch.ContentEntry{{Kind: watch.EntryCommit, Commit: &watch.CommitEntry{
		Repo:     "owner/repo",
		TimeInfo: "<script>x</script> authored now",
		Text:     "<b>m</b>",
	}}}
	art, err := h.Render(context.Background(), watch.DigestTemplate, watch.RenderRequest{Entries: entries})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(art.Data), "<script>") {
		t.Fatal("unescaped markup leaked from a plain field")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	h, err := NewHTML(logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Render(context.Background(), "nope", watch.RenderRequest{}); err == nil {
		t.Fatal("unknown template accepted")
	}
}
