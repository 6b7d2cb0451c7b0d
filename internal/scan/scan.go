// Package scan is the traversal and filter engine shared by the listing
// tools, the tree builder, and the grep engine. All visibility rules
// live here: candidates come from the scope includes, never from a free
// directory walk, so a file outside the whitelist is unreachable by
// construction.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"reposcope/internal/paths"
	"reposcope/internal/scope"
)

// Mode selects what a scan yields.
type Mode int

const (
	// Files yields file paths from the scope includes.
	Files Mode = iota
	// Dirs yields the parent directories of resolved file candidates.
	Dirs
)

// Query describes one scan.
type Query struct {
	Mode        Mode
	Root        string // resolved sandbox root (absolute)
	RequestPath string // start point; relative joins Root, absolute must be inside it

	Pattern     string
	IncludeExts []string
	ExcludeExts []string
	MaxItems    int

	// AllowAncestorForInclude expands a directory include into its file
	// subtree (v1 compatibility; grep relies on it).
	AllowAncestorForInclude bool
	// PatternTargetsScopePath matches Pattern against the scope-relative
	// path instead of the requestPath-relative one.
	PatternTargetsScopePath bool
	// IgnoreExcludes skips stored excludes. System directory pruning
	// still applies.
	IgnoreExcludes bool
	// RequireScope makes an empty includes list yield an empty result
	// instead of everything.
	RequireScope bool

	ExtraPrune []string
}

// Scan runs the query against the given scope state and returns paths
// relative to the request path, deduplicated, sorted, capped at
// MaxItems.
func Scan(q Query, state *scope.State) ([]string, error) {
	base, err := paths.ResolveUnder(q.Root, q.RequestPath)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return []string{}, nil
	}

	if q.RequireScope && len(state.Includes) == 0 {
		return []string{}, nil
	}

	pruned := pruneSet(q.ExtraPrune)
	allowExts := normalizeExts(q.IncludeExts)
	denyExts := normalizeExts(q.ExcludeExts)

	includesSet := make(map[string]bool, len(state.Includes))
	for _, inc := range state.Includes {
		includesSet[inc] = true
	}

	if q.Mode == Dirs {
		return scanDirs(q, state, base, pruned)
	}

	out := []string{}
	seen := make(map[string]bool)

	addFile := func(abs string) bool {
		relScope := paths.RelPosix(q.Root, abs)
		if strings.HasPrefix(relScope, "..") {
			return false
		}
		explicit := includesSet[relScope]
		if !q.IgnoreExcludes && !explicit && state.IsExcluded(relScope) {
			return false
		}
		if !paths.IsWithin(abs, base) {
			return false
		}
		rel := paths.RelPosix(base, abs)

		ext := strings.ToLower(filepath.Ext(abs))
		if len(denyExts) > 0 && denyExts[ext] {
			return false
		}
		if len(allowExts) > 0 && !allowExts[ext] {
			return false
		}
		if q.Pattern != "" && !q.PatternTargetsScopePath {
			if q.Pattern != MatchAll && !Match(rel, q.Pattern) {
				return false
			}
		}
		if seen[rel] {
			return false
		}
		seen[rel] = true
		out = append(out, rel)
		return true
	}

	for _, rel := range state.Includes {
		if q.Pattern != "" && q.PatternTargetsScopePath && !MatchScopePath(rel, q.Pattern) {
			continue
		}
		abs := paths.Join(q.Root, rel)
		info, err := os.Lstat(abs)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			addFile(abs)
		case info.IsDir() && q.AllowAncestorForInclude:
			walkFiles(abs, pruned, func(f string) bool {
				addFile(f)
				return q.MaxItems <= 0 || len(out) < q.MaxItems
			})
		}
		if q.MaxItems > 0 && len(out) >= q.MaxItems {
			break
		}
	}

	sort.Strings(out)
	if q.MaxItems > 0 && len(out) > q.MaxItems {
		out = out[:q.MaxItems]
	}
	return out, nil
}

func scanDirs(q Query, state *scope.State, base string, pruned map[string]bool) ([]string, error) {
	parents := make(map[string]bool)

	addParent := func(abs string) bool {
		parent := filepath.Dir(abs)
		if !paths.IsWithin(parent, base) {
			return true
		}
		rel := paths.RelPosix(base, parent)
		for _, part := range strings.Split(rel, "/") {
			if pruned[part] {
				return true
			}
		}
		if !q.IgnoreExcludes {
			relScope := paths.RelPosix(q.Root, parent)
			if relScope != "." && state.IsExcluded(relScope) {
				return true
			}
		}
		if q.Pattern != "" && !q.PatternTargetsScopePath {
			if q.Pattern != MatchAll && !Match(rel, q.Pattern) {
				return true
			}
		}
		parents[rel] = true
		return q.MaxItems <= 0 || len(parents) < q.MaxItems
	}

	for _, rel := range state.Includes {
		if q.Pattern != "" && q.PatternTargetsScopePath && !MatchScopePath(rel, q.Pattern) {
			continue
		}
		abs := paths.Join(q.Root, rel)
		info, err := os.Lstat(abs)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			addParent(abs)
		case info.IsDir() && q.AllowAncestorForInclude:
			walkFiles(abs, pruned, addParent)
		}
	}

	out := make([]string, 0, len(parents))
	for p := range parents {
		out = append(out, p)
	}
	sort.Strings(out)
	if q.MaxItems > 0 && len(out) > q.MaxItems {
		out = out[:q.MaxItems]
	}
	return out, nil
}

// walkFiles visits every regular file under dir, pruning system
// directories by name. fn returns false to stop early.
func walkFiles(dir string, pruned map[string]bool, fn func(abs string) bool) {
	stop := false
	filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || stop {
			if stop {
				return filepath.SkipAll
			}
			return nil
		}
		if d.IsDir() {
			if p != dir && pruned[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if !fn(p) {
				stop = true
				return filepath.SkipAll
			}
		}
		return nil
	})
}

func pruneSet(extra []string) map[string]bool {
	out := make(map[string]bool, len(scope.SystemDirNames)+len(extra))
	for name := range scope.SystemDirNames {
		out[name] = true
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			out[name] = true
		}
	}
	return out
}

// normalizeExts lowercases extensions and ensures a leading dot.
func normalizeExts(exts []string) map[string]bool {
	out := make(map[string]bool)
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out[e] = true
	}
	return out
}
