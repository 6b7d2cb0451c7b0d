package scan

import (
	"strings"

	"reposcope/internal/scope"
)

// DefaultListExts is the extension allow-list ListFiles applies when the
// caller passes none.
var DefaultListExts = []string{
	".py", ".pyi",
	".go", ".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs",
	".php", ".phtml", ".html", ".htm", ".css", ".scss", ".less",
	".vue", ".svelte", ".json", ".yaml", ".yml", ".toml",
	".ini", ".env", ".md", ".mdx", ".txt", ".csv", ".tsv",
	".sql", ".xml", ".sh", ".bat", ".ps1", ".properties",
	".cfg", ".conf",
}

// FindFilesOptions shapes a findFiles call.
type FindFilesOptions struct {
	RequestPath             string
	Pattern                 string
	MaxFiles                int
	IncludeExts             []string
	ExcludeExts             []string
	ExcludeDirs             []string
	PatternTargetsScopePath bool
}

// FindFiles searches the scope's file whitelist by glob pattern.
// Stored excludes are not applied; explicit includes always win.
func FindFiles(root string, state *scope.State, opts FindFilesOptions) ([]string, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = MatchAll
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 2000
	}
	return Scan(Query{
		Mode:                    Files,
		Root:                    root,
		RequestPath:             opts.RequestPath,
		Pattern:                 pattern,
		IncludeExts:             opts.IncludeExts,
		ExcludeExts:             opts.ExcludeExts,
		MaxItems:                maxFiles,
		ExtraPrune:              opts.ExcludeDirs,
		PatternTargetsScopePath: opts.PatternTargetsScopePath,
		IgnoreExcludes:          true,
		RequireScope:            true,
	}, state)
}

// ListFilesOptions shapes a listFiles call.
type ListFilesOptions struct {
	RequestPath string
	IncludeExts []string
	Shallow     bool
	MaxFiles    int
}

// ListFiles enumerates scoped files filtered by extension. Shallow
// limits the result to the request path's immediate children.
func ListFiles(root string, state *scope.State, opts ListFilesOptions) ([]string, error) {
	exts := opts.IncludeExts
	if len(exts) == 0 {
		exts = DefaultListExts
	}
	results, err := Scan(Query{
		Mode:           Files,
		Root:           root,
		RequestPath:    opts.RequestPath,
		IncludeExts:    exts,
		MaxItems:       opts.MaxFiles,
		IgnoreExcludes: true,
		RequireScope:   true,
	}, state)
	if err != nil {
		return nil, err
	}
	if opts.Shallow {
		results = shallowOnly(results, false)
	}
	return results, nil
}

// ListDirsOptions shapes a listDirs call.
type ListDirsOptions struct {
	RequestPath             string
	Pattern                 string
	MaxDirs                 int
	Shallow                 bool
	PatternTargetsScopePath bool
}

// ListDirs returns the directories holding scoped files. Directory
// includes contribute their subtree's parents.
func ListDirs(root string, state *scope.State, opts ListDirsOptions) ([]string, error) {
	pattern := opts.Pattern
	if pattern == "" {
		pattern = MatchAll
	}
	maxDirs := opts.MaxDirs
	if maxDirs <= 0 {
		maxDirs = 200
	}
	results, err := Scan(Query{
		Mode:                    Dirs,
		Root:                    root,
		RequestPath:             opts.RequestPath,
		Pattern:                 pattern,
		MaxItems:                maxDirs,
		AllowAncestorForInclude: true,
		PatternTargetsScopePath: opts.PatternTargetsScopePath,
		IgnoreExcludes:          true,
		RequireScope:            true,
	}, state)
	if err != nil {
		return nil, err
	}
	if opts.Shallow {
		results = shallowOnly(results, true)
	}
	return results, nil
}

// shallowOnly keeps entries without a path separator. dropDot also
// removes the "." entry Dirs mode produces for top-level files.
func shallowOnly(in []string, dropDot bool) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if dropDot && p == "." {
			continue
		}
		if !strings.Contains(p, "/") {
			out = append(out, p)
		}
	}
	return out
}
