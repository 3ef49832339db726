package telegram

import (
	"strings"
	"testing"

	logx "codewatch/pkg/logx"
)

func TestSplitTextShortPassesThrough(t *testing.T) {
	got := splitText("hello", 100, "")
	if len(got) != 1 || got[0] != "hello" {
		t.Fatalf("got %v", got)
	}
}

func TestSplitTextPrefersNewlines(t *testing.T) {
	s := strings.Repeat("line one is here\n", 20)
	chunks := splitText(s, 100, "")
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len([]rune(c)) > 100 {
			t.Fatalf("chunk %d over limit: %d runes", i, len([]rune(c)))
		}
		if strings.HasPrefix(c, "\n") || strings.HasSuffix(c, "\n") {
			t.Fatalf("chunk %d has dangling newlines: %q", i, c)
		}
	}
	joined := strings.Join(chunks, "\n") + "\n"
	if strings.ReplaceAll(joined, "\n", "") != strings.ReplaceAll(s, "\n", "") {
		t.Fatal("content lost during split")
	}
}

func TestSplitTextAvoidsCuttingHTMLTags(t *testing.T) {
	s := strings.Repeat("x", 95) + "<b>bold text here</b>"
	chunks := splitText(s, 100, "HTML")
	for i, c := range chunks {
		opens := strings.Count(c, "<")
		closes := strings.Count(c, ">")
		if opens != closes {
			t.Fatalf("chunk %d split inside a tag: %q", i, c)
		}
	}
}

func TestNewRequiresToken(t *testing.T) {
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("empty token accepted")
	}
}
