package scan

import (
	"os"
	"sort"
	"strings"

	"reposcope/internal/paths"
	"reposcope/internal/scope"
)

// TreeNode is one entry in the lazy file-picker tree.
type TreeNode struct {
	Name        string `json:"name"`
	Rel         string `json:"rel"`
	Type        string `json:"type"` // "dir" or "file"
	HasChildren bool   `json:"hasChildren,omitempty"`
	Selected    bool   `json:"selected,omitempty"`
}

// BuildTree lists the immediate children of one directory under root
// for a lazy-loading UI. System directories are always pruned. A rel
// that escapes the root, is pruned, or does not exist falls back to the
// root itself rather than failing.
func BuildTree(root string, state *scope.State, rel string) []TreeNode {
	start := root
	if n := paths.NormalizeRel(rel); n != "" {
		abs, err := paths.ResolveUnder(root, n)
		if err == nil && !isPrunedPath(root, abs) {
			if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
				start = abs
			}
		}
	}

	entries, err := os.ReadDir(start)
	if err != nil {
		return []TreeNode{}
	}

	nodes := []TreeNode{}
	for _, entry := range entries {
		name := entry.Name()
		if scope.SystemDirNames[name] {
			continue
		}
		abs := paths.Join(start, name)
		childRel := paths.RelPosix(root, abs)

		if entry.IsDir() {
			nodes = append(nodes, TreeNode{
				Name:        name,
				Rel:         childRel,
				Type:        "dir",
				HasChildren: hasVisibleChildren(abs),
			})
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		nodes = append(nodes, TreeNode{
			Name:     name,
			Rel:      childRel,
			Type:     "file",
			Selected: isSelected(state, childRel),
		})
	}

	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Type != nodes[j].Type {
			return nodes[i].Type == "dir"
		}
		return strings.ToLower(nodes[i].Name) < strings.ToLower(nodes[j].Name)
	})
	return nodes
}

// isSelected decides the file checkbox state. v2 scopes list files
// exactly; v1 scopes whitelist directories, so ancestor coverage counts.
// An exclude clears the flag either way.
func isSelected(state *scope.State, rel string) bool {
	if state.IsExcluded(rel) && !state.IsIncluded(rel) {
		return false
	}
	if state.Version >= 2 {
		return state.IsIncluded(rel)
	}
	return state.CoversAncestor(rel)
}

// hasVisibleChildren probes one level down for any non-pruned entry.
func hasVisibleChildren(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.IsDir() && scope.SystemDirNames[entry.Name()] {
			continue
		}
		if entry.IsDir() || entry.Type().IsRegular() {
			return true
		}
	}
	return false
}

func isPrunedPath(root, abs string) bool {
	rel := paths.RelPosix(root, abs)
	if rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if scope.SystemDirNames[part] {
			return true
		}
	}
	return false
}
