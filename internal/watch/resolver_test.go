package watch

import (
	"reflect"
	"testing"
)

func TestResolveRepoList(t *testing.T) {
	cases := []struct {
		name         string
		explicit     []string
		discovered   []string
		exclude      []string
		autoDiscover bool
		want         []string
	}{
		{
			name:       "disabled passes explicit through",
			explicit:   []string{"a/b", "a/b"},
			discovered: []string{"c/d"},
			exclude:    []string{"a/b"},
			want:       []string{"a/b", "a/b"},
		},
		{
			name:         "union preserves order and drops duplicates",
			explicit:     []string{"a/b", "c/d"},
			discovered:   []string{"c/d", "e/f"},
			autoDiscover: true,
			want:         []string{"a/b", "c/d", "e/f"},
		},
		{
			name:         "exclusions filter both lists",
			explicit:     []string{"a/b", "x/y"},
			discovered:   []string{"x/y", "e/f"},
			exclude:      []string{"x/y"},
			autoDiscover: true,
			want:         []string{"a/b", "e/f"},
		},
		{
			name:         "empty identifiers skipped",
			explicit:     []string{"", "a/b"},
			discovered:   []string{""},
			autoDiscover: true,
			want:         []string{"a/b"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveRepoList(tc.explicit, tc.discovered, tc.exclude, tc.autoDiscover)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSplitRepo(t *testing.T) {
	cases := []struct {
		in, path, branch string
	}{
		{"owner/repo", "owner/repo", ""},
		{"owner/repo:main", "owner/repo", "main"},
		{"owner/repo:feat:x", "owner/repo", "feat:x"},
	}
	for _, tc := range cases {
		path, branch := SplitRepo(tc.in)
		if path != tc.path || branch != tc.branch {
			t.Errorf("SplitRepo(%q) = (%q, %q), want (%q, %q)", tc.in, path, branch, tc.path, tc.branch)
		}
	}
}
