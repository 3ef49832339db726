package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestManagerParseYAML(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
telegram:
  token: "123:abc"
watch:
  schedule: "*/5 * * * *"
  github_token: single-token
  groups:
    - github: ["owner/repo:main"]
      chats: [-100123]
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
	if len(cfg.Watch.GithubToken) != 1 || cfg.Watch.GithubToken[0] != "single-token" {
		t.Fatalf("github token = %v", cfg.Watch.GithubToken)
	}
	if len(cfg.Watch.Groups) != 1 || cfg.Watch.Groups[0].Chats[0] != -100123 {
		t.Fatalf("groups = %+v", cfg.Watch.Groups)
	}
	if m.Get() != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestManagerParseJSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{
  "telegram": {"token": "123:abc"},
  "watch": {"gitee_token": ["a", "b"], "groups": []}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Watch.GiteeToken) != 2 {
		t.Fatalf("gitee tokens = %v", cfg.Watch.GiteeToken)
	}
}

func TestManagerRejectsUnknownFields(t *testing.T) {
	path := writeTemp(t, "config.json", `{"telegram": {"token": "x"}, "wat": true}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("unknown top-level field accepted")
	}
}

func TestManagerRejectsTrailingData(t *testing.T) {
	path := writeTemp(t, "config.json", `{"telegram": {"token": "x"}} {"extra": 1}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("trailing JSON accepted")
	}
}
