package watch

// ResolveRepoList expands one configured repository list into the
// concrete working set. With autoDiscover off, the explicit list passes
// through untouched. With it on, the union of explicit and discovered
// identifiers (explicit first, order preserved, duplicates collapsed)
// is filtered against the exclusion set. Pure function.
func ResolveRepoList(explicit, discovered, exclude []string, autoDiscover bool) []string {
	if !autoDiscover {
		return explicit
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		excluded[e] = struct{}{}
	}

	seen := make(map[string]struct{}, len(explicit)+len(discovered))
	out := make([]string, 0, len(explicit)+len(discovered))
	for _, list := range [][]string{explicit, discovered} {
		for _, repo := range list {
			if repo == "" {
				continue
			}
			if _, dup := seen[repo]; dup {
				continue
			}
			seen[repo] = struct{}{}
			if _, skip := excluded[repo]; skip {
				continue
			}
			out = append(out, repo)
		}
	}
	return out
}

// SplitRepo splits "owner/repo:branch" into path and branch. Release
// identifiers never carry a branch suffix, so callers pass commit
// identifiers only.
func SplitRepo(ident string) (path, branch string) {
	for i := 0; i < len(ident); i++ {
		if ident[i] == ':' {
			return ident[:i], ident[i+1:]
		}
	}
	return ident, ""
}
