package watcher

import (
	"path/filepath"
	"strings"
)

// excludeSet decides whether a vault-relative path should be filtered out
// of watcher events. Temoa only needs two kinds of exclusion — a named
// directory segment ("node_modules", ".git") and a glob-style filename
// pattern ("*.tmp") — so this replaces full .gitignore precedence rules
// with the same glob-wrapped-directory-name convention excludedDirNames
// uses for the indexer's own vault reader.
type excludeSet struct {
	dirs  map[string]struct{}
	globs []string
}

func newExcludeSet(patterns []string) *excludeSet {
	e := &excludeSet{dirs: make(map[string]struct{})}
	for _, p := range patterns {
		e.addPattern(p)
	}
	return e
}

func (e *excludeSet) addPattern(p string) {
	p = strings.TrimSpace(p)
	if p == "" {
		return
	}
	if name := strings.Trim(p, "*/"); name != "" && !strings.ContainsAny(name, "*?[") &&
		(name == p || strings.Contains(p, "/")) {
		e.dirs[name] = struct{}{}
		return
	}
	e.globs = append(e.globs, p)
}

// matchDir reports whether relPath (a directory, relative to the vault
// root) sits under an excluded directory name.
func (e *excludeSet) matchDir(relPath string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(relPath), "/") {
		if _, ok := e.dirs[seg]; ok {
			return true
		}
	}
	return false
}

// match reports whether relPath is excluded: either it is (or sits
// under) an excluded directory, or its base name matches a configured
// glob pattern.
func (e *excludeSet) match(relPath string, isDir bool) bool {
	if isDir {
		return e.matchDir(relPath)
	}
	if e.matchDir(filepath.Dir(relPath)) {
		return true
	}
	base := filepath.Base(relPath)
	for _, g := range e.globs {
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
	}
	return false
}
