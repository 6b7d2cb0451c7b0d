// Package fsops implements the basic confined file operations: read,
// ranged read, write, directory creation, and stat. Every path is
// resolved through the sandbox confinement helpers before any I/O.
package fsops

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"reposcope/internal/errors"
	"reposcope/internal/paths"
	"reposcope/internal/scope"
)

// ReadFile returns the whole file as UTF-8 text.
func ReadFile(root, file string) (string, error) {
	abs, err := paths.ResolveUnder(root, file)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(errors.FileNotFound, "file does not exist", err)
		}
		return "", errors.Wrap(errors.InternalError, "cannot read file", err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// RangeResult is the ranged-read document. A missing file is reported
// through Exists, not as an error.
type RangeResult struct {
	Exists    bool   `json:"exists"`
	Path      string `json:"path"`
	StartLine int    `json:"startLine,omitempty"`
	EndLine   int    `json:"endLine,omitempty"`
	Content   string `json:"content,omitempty"`
}

// ReadFileRange returns lines [start, end], 1-based inclusive. Bounds
// are clamped (start >= 1, end >= start) rather than rejected.
func ReadFileRange(root, file string, start, end int) (*RangeResult, error) {
	abs, err := paths.ResolveUnder(root, file)
	if err != nil {
		return nil, err
	}
	result := &RangeResult{Path: paths.RelPosix(root, abs)}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return result, nil
	}

	if start < 1 {
		start = 1
	}
	if end < start {
		end = start
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot open file", err)
	}
	defer f.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	lastLine := 0
	for scanner.Scan() {
		lineNo++
		if lineNo < start {
			continue
		}
		if lineNo > end {
			break
		}
		b.WriteString(scanner.Text())
		b.WriteByte('\n')
		lastLine = lineNo
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot read file", err)
	}

	result.Exists = true
	result.Content = b.String()
	// Report the range actually returned, not the requested bounds; a
	// start past EOF yields an empty range.
	if lastLine > 0 {
		result.StartLine = start
		result.EndLine = lastLine
	}
	return result, nil
}

// WriteFile overwrites the file with UTF-8 text, creating parent
// directories as needed. A newly created file is appended to the
// project's scope includes best-effort so it stays visible to
// subsequent discovery calls.
func WriteFile(root, file, content string, scopeStore *scope.Store, projectID int64) error {
	abs, err := paths.ResolveUnder(root, file)
	if err != nil {
		return err
	}
	_, statErr := os.Stat(abs)
	existedBefore := statErr == nil

	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return errors.Wrap(errors.InternalError, "cannot create parent directories", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return errors.Wrap(errors.InternalError, "cannot write file", err)
	}

	if !existedBefore && scopeStore != nil {
		scopeStore.AddInclude(projectID, paths.RelPosix(root, abs))
	}
	return nil
}

// MakeDirs creates the directory and any missing parents.
func MakeDirs(root, dir string) error {
	abs, err := paths.ResolveUnder(root, dir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return errors.Wrap(errors.InternalError, "cannot create directories", err)
	}
	return nil
}

// StatResult is the fileStat document.
type StatResult struct {
	Exists    bool   `json:"exists"`
	Path      string `json:"path"`
	Size      int64  `json:"size,omitempty"`
	MtimeUnix int64  `json:"mtime,omitempty"`
	LineCount int    `json:"lineCount,omitempty"`
}

// FileStat reports existence, size, modification time, and line count.
// A missing or non-regular file yields Exists=false, not an error.
func FileStat(root, file string) (*StatResult, error) {
	abs, err := paths.ResolveUnder(root, file)
	if err != nil {
		return nil, err
	}
	result := &StatResult{Path: paths.RelPosix(root, abs)}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return result, nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot open file", err)
	}
	defer f.Close()

	lineCount := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineCount++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.InternalError, "cannot read file", err)
	}

	result.Exists = true
	result.Size = info.Size()
	result.MtimeUnix = info.ModTime().Unix()
	result.LineCount = lineCount
	return result, nil
}
