// Package grep searches the scoped file set with a compiled regular
// expression under explicit budgets. The candidate set always comes
// from the scanner, so grep can never read a file the scope would hide.
package grep

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"reposcope/internal/paths"
	"reposcope/internal/scan"
	"reposcope/internal/scope"
)

// Options bounds one search. Zero values fall back to the defaults
// below.
type Options struct {
	RequestPath       string
	Extensions        []string
	MaxFiles          int
	MaxMatchesPerFile int
	MaxTotalMatches   int
	ContextLines      int
	SizeLimitBytes    int64
	TimeoutSeconds    int
	MaxSnippetChars   int
}

const (
	defaultMaxFiles          = 5000
	defaultMaxMatchesPerFile = 50
	defaultMaxTotalMatches   = 2000
	defaultContextLines      = 2
	defaultSizeLimitBytes    = 5_000_000
	defaultTimeoutSeconds    = 10
	defaultMaxSnippetChars   = 500
)

// Match is one regex hit with 1-based line and column positions.
type Match struct {
	LineNo        int      `json:"lineNo"`
	ColStart      int      `json:"colStart"`
	ColEnd        int      `json:"colEnd"`
	Line          string   `json:"line"`
	ContextBefore []string `json:"contextBefore"`
	ContextAfter  []string `json:"contextAfter"`
}

// FileResult groups the matches of one file.
type FileResult struct {
	FilePath   string  `json:"filePath"`
	Ext        string  `json:"ext"`
	Size       int64   `json:"size"`
	MatchCount int     `json:"matchCount"`
	Truncated  bool    `json:"truncated"`
	Matches    []Match `json:"matches"`
}

// FileError records a per-file failure without aborting the search.
type FileError struct {
	FilePath string `json:"filePath"`
	Error    string `json:"error"`
}

// Stats summarizes one search run.
type Stats struct {
	ScannedFiles int   `json:"scannedFiles"`
	MatchedFiles int   `json:"matchedFiles"`
	TotalMatches int   `json:"totalMatches"`
	ScannedBytes int64 `json:"scannedBytes"`
	DurationMs   int64 `json:"durationMs"`
	Truncated    bool  `json:"truncated"`
}

// Result is the self-describing search document. Failures are encoded
// in OK and Errors, never thrown across the tool boundary.
type Result struct {
	OK       bool         `json:"ok"`
	BasePath string       `json:"basePath"`
	DocPath  string       `json:"docPath"`
	Query    string       `json:"query"`
	IsRegex  bool         `json:"isRegex"`
	Stats    Stats        `json:"stats"`
	Files    []FileResult `json:"files"`
	Errors   []FileError  `json:"errors"`
}

// Search runs the pattern over the scoped files under root. Budget
// exhaustion marks the result truncated and returns the partial result.
func Search(root string, state *scope.State, pattern string, opts Options) *Result {
	start := time.Now()
	applyDefaults(&opts)

	result := &Result{
		OK:       true,
		BasePath: opts.RequestPath,
		DocPath:  root,
		Query:    pattern,
		IsRegex:  true,
		Files:    []FileResult{},
		Errors:   []FileError{},
	}
	fail := func(path, msg string) *Result {
		result.OK = false
		result.Errors = append(result.Errors, FileError{FilePath: path, Error: msg})
		result.Stats.DurationMs = time.Since(start).Milliseconds()
		return result
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return fail("", "invalid regex: "+err.Error())
	}

	base, err := paths.ResolveUnder(root, opts.RequestPath)
	if err != nil {
		return fail(opts.RequestPath, err.Error())
	}

	candidates, err := scan.Scan(scan.Query{
		Mode:                    scan.Files,
		Root:                    root,
		RequestPath:             opts.RequestPath,
		IncludeExts:             opts.Extensions,
		MaxItems:                opts.MaxFiles,
		AllowAncestorForInclude: true,
		IgnoreExcludes:          true,
		RequireScope:            true,
	}, state)
	if err != nil {
		return fail(opts.RequestPath, err.Error())
	}

	deadline := start.Add(time.Duration(opts.TimeoutSeconds) * time.Second)
	truncated := false

	for _, rel := range candidates {
		if opts.TimeoutSeconds > 0 && time.Now().After(deadline) {
			truncated = true
			break
		}

		abs := paths.Join(base, rel)
		info, err := os.Stat(abs)
		if err != nil {
			result.Errors = append(result.Errors, FileError{FilePath: rel, Error: err.Error()})
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if opts.SizeLimitBytes > 0 && info.Size() > opts.SizeLimitBytes {
			continue
		}

		result.Stats.ScannedFiles++
		if result.Stats.ScannedFiles > opts.MaxFiles {
			truncated = true
			break
		}

		data, err := os.ReadFile(abs)
		if err != nil {
			result.Errors = append(result.Errors, FileError{FilePath: rel, Error: err.Error()})
			continue
		}
		result.Stats.ScannedBytes += info.Size()

		lines := splitLines(strings.ToValidUTF8(string(data), "�"))
		matches, fileTruncated := scanFile(re, lines, &result.Stats, opts)
		if fileTruncated && result.Stats.TotalMatches >= opts.MaxTotalMatches {
			truncated = true
		}

		if len(matches) > 0 {
			result.Stats.MatchedFiles++
			result.Files = append(result.Files, FileResult{
				FilePath:   rel,
				Ext:        strings.ToLower(filepath.Ext(abs)),
				Size:       info.Size(),
				MatchCount: len(matches),
				Truncated:  fileTruncated,
				Matches:    matches,
			})
		}
		if truncated {
			break
		}
	}

	result.Stats.Truncated = truncated
	result.Stats.DurationMs = time.Since(start).Milliseconds()
	return result
}

// scanFile collects matches for one file, honoring the per-file and
// global match budgets.
func scanFile(re *regexp.Regexp, lines []string, stats *Stats, opts Options) ([]Match, bool) {
	var matches []Match
	truncated := false

	for i, line := range lines {
		for _, loc := range re.FindAllStringIndex(line, -1) {
			matches = append(matches, Match{
				LineNo:        i + 1,
				ColStart:      loc[0] + 1,
				ColEnd:        loc[1] + 1,
				Line:          snippet(line, opts.MaxSnippetChars),
				ContextBefore: contextSlice(lines, i-opts.ContextLines, i, opts.MaxSnippetChars),
				ContextAfter:  contextSlice(lines, i+1, i+1+opts.ContextLines, opts.MaxSnippetChars),
			})
			stats.TotalMatches++
			if stats.TotalMatches >= opts.MaxTotalMatches {
				return matches, true
			}
			if len(matches) >= opts.MaxMatchesPerFile {
				return matches, true
			}
		}
	}
	return matches, truncated
}

func contextSlice(lines []string, from, to, maxChars int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	out := []string{}
	for _, l := range lines[from:to] {
		out = append(out, snippet(l, maxChars))
	}
	return out
}

// snippet caps one display line, marking the cut.
func snippet(line string, maxChars int) string {
	if maxChars > 0 && len(line) > maxChars {
		return line[:maxChars] + "...(truncated)"
	}
	return line
}

// splitLines splits on \n without keeping terminators. A trailing
// newline does not produce a phantom empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func applyDefaults(o *Options) {
	if o.MaxFiles <= 0 {
		o.MaxFiles = defaultMaxFiles
	}
	if o.MaxMatchesPerFile <= 0 {
		o.MaxMatchesPerFile = defaultMaxMatchesPerFile
	}
	if o.MaxTotalMatches <= 0 {
		o.MaxTotalMatches = defaultMaxTotalMatches
	}
	if o.ContextLines <= 0 {
		o.ContextLines = defaultContextLines
	}
	if o.SizeLimitBytes <= 0 {
		o.SizeLimitBytes = defaultSizeLimitBytes
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = defaultTimeoutSeconds
	}
	if o.MaxSnippetChars <= 0 {
		o.MaxSnippetChars = defaultMaxSnippetChars
	}
}
