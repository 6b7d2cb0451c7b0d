// Package scope persists the per-project visibility whitelist. One JSON
// document per project at <home>/projects/<id>/search_paths.json holds
// the includes/excludes pair; the scanner consults it on every call.
package scope

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"reposcope/internal/errors"
	"reposcope/internal/paths"
)

// Version is the schema written on save. Version 1 documents (directory
// whitelists) remain readable; only v2 (file whitelists) is persisted.
const Version = 2

// ReservedExcludes are always present in excludes and never allowed in
// includes, regardless of stored content.
var ReservedExcludes = []string{".git", "vendor", ".idea"}

// SystemDirNames are infrastructure directories pruned during any
// traversal, independent of the stored scope.
var SystemDirNames = map[string]bool{
	".git":         true,
	"vendor":       true,
	".github":      true,
	"logs":         true,
	"node_modules": true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
}

// State is the normalized scope document. Includes and Excludes are
// sorted, deduplicated POSIX paths relative to the sandbox root.
type State struct {
	Version  int      `json:"version"`
	Includes []string `json:"includes"`
	Excludes []string `json:"excludes"`
}

// IsIncluded reports exact membership (v2 semantics).
func (s *State) IsIncluded(rel string) bool {
	rel = paths.NormalizeRel(rel)
	for _, inc := range s.Includes {
		if inc == rel {
			return true
		}
	}
	return false
}

// CoversAncestor reports whether rel equals an include or nests beneath
// one (v1 directory-whitelist semantics).
func (s *State) CoversAncestor(rel string) bool {
	rel = paths.NormalizeRel(rel)
	for _, inc := range s.Includes {
		if rel == inc || strings.HasPrefix(rel, inc+"/") {
			return true
		}
	}
	return false
}

// IsExcluded reports whether rel equals an exclude or nests beneath one.
func (s *State) IsExcluded(rel string) bool {
	rel = paths.NormalizeRel(rel)
	for _, exc := range s.Excludes {
		if rel == exc || strings.HasPrefix(rel, exc+"/") {
			return true
		}
	}
	return false
}

// Store reads and writes scope documents under the instance directory.
type Store struct {
	home string
}

// NewStore creates a scope store rooted at the instance directory.
func NewStore(home string) *Store {
	return &Store{home: home}
}

// Path returns the scope document location for a project.
func (st *Store) Path(projectID int64) string {
	return filepath.Join(st.home, "projects", strconv.FormatInt(projectID, 10), "search_paths.json")
}

// Load reads the project's scope. A missing or malformed document yields
// the default empty state with reserved excludes; Load never fails.
func (st *Store) Load(projectID int64) *State {
	data, err := os.ReadFile(st.Path(projectID))
	if err != nil {
		return defaultState()
	}

	var raw struct {
		Version  int      `json:"version"`
		Includes []string `json:"includes"`
		Excludes []string `json:"excludes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return defaultState()
	}

	version := raw.Version
	if version == 0 {
		version = 1
	}
	return &State{
		Version:  version,
		Includes: dropReserved(normalizeList(raw.Includes)),
		Excludes: withReserved(normalizeList(raw.Excludes)),
	}
}

// Save normalizes and persists the scope as one v2 document. Directory
// includes are expanded into their contained files under root (pruning
// system directories); entries naming a reserved directory or escaping
// the root are dropped. The write is atomic (tmp + rename).
func (st *Store) Save(projectID int64, root string, includes, excludes []string) (*State, error) {
	inc := dropReserved(normalizeList(includes))
	exc := withReserved(normalizeList(excludes))

	if root != "" {
		inc = expandDirs(root, inc)
	}

	state := &State{
		Version:  Version,
		Includes: inc,
		Excludes: exc,
	}

	path := st.Path(projectID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot create scope directory", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot encode scope state", err)
	}
	if err := atomicWrite(path, data); err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot write scope state", err)
	}
	return state, nil
}

// AddInclude appends one file to the includes, best-effort. Used by
// writeFile so a newly created file becomes visible without a full save.
// Errors are swallowed; the write that triggered this already succeeded.
func (st *Store) AddInclude(projectID int64, rel string) {
	rel = paths.NormalizeRel(rel)
	if rel == "" || isReserved(rel) {
		return
	}
	state := st.Load(projectID)
	if state.IsIncluded(rel) {
		return
	}
	// Keep the loaded document's version. A v1 directory whitelist must
	// not be re-tagged v2 while its directory includes are unexpanded.
	state.Includes = append(state.Includes, rel)
	sort.Strings(state.Includes)

	path := st.Path(projectID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return
	}
	_ = atomicWrite(path, data)
}

// Delete removes the project's scope document, if any.
func (st *Store) Delete(projectID int64) error {
	err := os.Remove(st.Path(projectID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Copy duplicates one project's scope document to another project.
// Missing source is not an error; the destination simply stays unset.
func (st *Store) Copy(srcID, dstID int64) error {
	data, err := os.ReadFile(st.Path(srcID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	dst := st.Path(dstID)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return atomicWrite(dst, data)
}

func defaultState() *State {
	return &State{
		Version:  Version,
		Includes: []string{},
		Excludes: withReserved(nil),
	}
}

func normalizeList(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		n := paths.NormalizeRel(s)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func isReserved(rel string) bool {
	for _, r := range ReservedExcludes {
		if rel == r || strings.HasPrefix(rel, r+"/") {
			return true
		}
	}
	return false
}

func dropReserved(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !isReserved(s) {
			out = append(out, s)
		}
	}
	return out
}

func withReserved(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in)+len(ReservedExcludes))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, r := range ReservedExcludes {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Strings(out)
	return out
}

// expandDirs converts directory includes into their member files and
// drops entries that escape root. File entries pass through untouched.
func expandDirs(root string, includes []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(rel string) {
		if rel == "" || seen[rel] {
			return
		}
		seen[rel] = true
		out = append(out, rel)
	}

	for _, rel := range includes {
		abs, err := paths.ResolveUnder(root, rel)
		if err != nil {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			// Entry may name a file that does not exist yet; keep it
			// so a later writeFile lands inside the scope.
			add(rel)
			continue
		}
		if !info.IsDir() {
			add(rel)
			continue
		}
		filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if p != abs && SystemDirNames[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			add(paths.RelPosix(root, p))
			return nil
		})
	}

	sort.Strings(out)
	if out == nil {
		out = []string{}
	}
	return out
}

func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".scope-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
