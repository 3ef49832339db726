package watch

import (
	"strings"
	"testing"
	"time"

	"codewatch/internal/gitapi"
)

func TestFormatCommitSingleActor(t *testing.T) {
	when := time.Now().Add(-3 * time.Hour)
	c := gitapi.Commit{
		SHA: "abc",
		Commit: gitapi.CommitDetail{
			Author:    gitapi.Signature{Name: "alice", Date: when},
			Committer: gitapi.Signature{Name: "alice", Date: when},
			Message:   "fix: crash on empty input\n\nmore detail here",
		},
		Author:    &gitapi.Actor{Login: "alice", AvatarURL: "http://a/av.png"},
		Committer: &gitapi.Actor{Login: "alice", AvatarURL: "http://a/av.png"},
	}

	entry := FormatCommit(c, gitapi.PlatformGitHub, "owner/repo", "main")
	if entry.Kind != EntryCommit || entry.Commit == nil {
		t.Fatal("want commit entry")
	}
	ce := entry.Commit
	if ce.Repo != "owner/repo" || ce.Branch != "main" || ce.Source != string(gitapi.PlatformGitHub) {
		t.Fatalf("identity fields wrong: %+v", ce)
	}
	if !strings.HasPrefix(ce.TimeInfo, "alice authored ") {
		t.Fatalf("TimeInfo = %q", ce.TimeInfo)
	}
	if strings.Contains(ce.TimeInfo, "committed") {
		t.Fatalf("single-actor TimeInfo must not mention the committer: %q", ce.TimeInfo)
	}
	if !strings.HasPrefix(ce.Text, "<b>fix: crash on empty input</b>\n") {
		t.Fatalf("headline not wrapped: %q", ce.Text)
	}
	if !strings.HasSuffix(ce.Text, "more detail here") {
		t.Fatalf("body lines lost: %q", ce.Text)
	}
	if ce.Stats != nil {
		t.Fatal("stats must be nil without stats+files in the payload")
	}
	if ce.AuthorInitial != "a" {
		t.Fatalf("AuthorInitial = %q", ce.AuthorInitial)
	}
	if ce.AvatarsDiffer {
		t.Fatal("same avatar on both sides must not flag divergence")
	}
}

func TestFormatCommitMissingCommitterAccountFlagsDivergence(t *testing.T) {
	c := gitapi.Commit{
		SHA: "abc",
		Commit: gitapi.CommitDetail{
			Author:    gitapi.Signature{Name: "alice", Date: time.Now()},
			Committer: gitapi.Signature{Name: "alice", Date: time.Now()},
			Message:   "m",
		},
		Author: &gitapi.Actor{Login: "alice", AvatarURL: "http://a/av.png"},
	}
	ce := FormatCommit(c, gitapi.PlatformGitHub, "o/r", "").Commit
	if !ce.AvatarsDiffer {
		t.Fatal("author avatar with no committer account must flag divergence")
	}
	if ce.CommitterAvatar != "" {
		t.Fatalf("CommitterAvatar = %q, want empty", ce.CommitterAvatar)
	}
}

func TestFormatCommitTwoActorsAndStats(t *testing.T) {
	c := gitapi.Commit{
		SHA: "abc",
		Commit: gitapi.CommitDetail{
			Author:    gitapi.Signature{Name: "alice", Date: time.Now().Add(-2 * time.Hour)},
			Committer: gitapi.Signature{Name: "bob", Date: time.Now().Add(-1 * time.Hour)},
			Message:   "feat: add thing",
		},
		Author:    &gitapi.Actor{Login: "alice", AvatarURL: "http://a/1.png"},
		Committer: &gitapi.Actor{Login: "bob", AvatarURL: "http://a/2.png"},
		Stats:     &gitapi.Stats{Additions: 10, Deletions: 2},
		Files:     []string{"main.go", "main_test.go"},
	}

	ce := FormatCommit(c, gitapi.PlatformGitee, "o/r", "").Commit
	if !strings.Contains(ce.TimeInfo, "alice authored") || !strings.Contains(ce.TimeInfo, "bob committed") {
		t.Fatalf("two-actor TimeInfo = %q", ce.TimeInfo)
	}
	if !ce.AvatarsDiffer {
		t.Fatal("different avatars must flag divergence")
	}
	if ce.Stats == nil {
		t.Fatal("stats missing")
	}
	if ce.Stats.Files != 2 || ce.Stats.Additions != 10 || ce.Stats.Deletions != 2 {
		t.Fatalf("stats = %+v", ce.Stats)
	}
}

func TestFormatCommitStatsRequireFiles(t *testing.T) {
	c := gitapi.Commit{
		Commit: gitapi.CommitDetail{
			Author:    gitapi.Signature{Name: "a", Date: time.Now()},
			Committer: gitapi.Signature{Name: "a", Date: time.Now()},
			Message:   "m",
		},
		Stats: &gitapi.Stats{Additions: 1},
	}
	if ce := FormatCommit(c, gitapi.PlatformGitHub, "o/r", "").Commit; ce.Stats != nil {
		t.Fatal("stats without a file list must be omitted")
	}
}

func TestFormatRelease(t *testing.T) {
	r := gitapi.Release{
		NodeID:      "R_node1",
		TagName:     "v1.2.0",
		Name:        "v1.2.0 Stable",
		Body:        "Changes:\n\n- **faster** startup",
		Author:      &gitapi.Actor{Login: "carol", AvatarURL: "http://a/c.png"},
		PublishedAt: time.Now().Add(-26 * time.Hour),
	}
	entry := FormatRelease(r, gitapi.PlatformGitHub, "owner/repo")
	if entry.Kind != EntryRelease || entry.Release == nil {
		t.Fatal("want release entry")
	}
	re := entry.Release
	if re.Tag != "v1.2.0" || re.AuthorName != "carol" {
		t.Fatalf("release entry = %+v", re)
	}
	if !strings.HasPrefix(re.TimeInfo, "carol released ") {
		t.Fatalf("TimeInfo = %q", re.TimeInfo)
	}
	if !strings.HasPrefix(re.Text, "<b>v1.2.0 Stable</b>\n") {
		t.Fatalf("headline not wrapped: %q", re.Text)
	}
	if !strings.Contains(re.Text, "<strong>faster</strong>") {
		t.Fatalf("markdown body not converted: %q", re.Text)
	}
}

func TestFormatReleaseMissingAuthor(t *testing.T) {
	r := gitapi.Release{
		NodeID:      "1",
		TagName:     "v1",
		Name:        "v1",
		PublishedAt: time.Now().Add(-time.Hour),
	}
	re := FormatRelease(r, gitapi.PlatformGitee, "o/r").Release
	if re.AuthorInitial != "?" {
		t.Fatalf("AuthorInitial = %q, want placeholder", re.AuthorInitial)
	}
	if strings.Contains(re.TimeInfo, "released") {
		t.Fatalf("TimeInfo without author must be the bare age: %q", re.TimeInfo)
	}
}

func TestInitial(t *testing.T) {
	cases := map[string]string{
		"alice": "a",
		"Ω dev": "Ω",
		"":      "?",
	}
	for in, want := range cases {
		if got := initial(in); got != want {
			t.Errorf("initial(%q) = %q, want %q", in, got, want)
		}
	}
}
