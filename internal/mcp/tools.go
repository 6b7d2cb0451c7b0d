package mcp

import "reposcope/internal/envelope"

// Tool represents a RepoScope tool exposed via MCP
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolHandler is a function that handles a tool call and returns an envelope response.
type ToolHandler func(params map[string]interface{}) (*envelope.Response, error)

// prop builds one JSON-schema property.
func prop(typ, desc string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": desc}
}

func stringArrayProp(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": desc,
	}
}

// toolSchema builds an object schema with the mandatory projectId
// folded in. Every tool names its project explicitly; the server never
// infers one from ambient context.
func toolSchema(props map[string]interface{}, required ...string) map[string]interface{} {
	merged := map[string]interface{}{
		"projectId": prop("integer", "Project id as returned by listProjects"),
	}
	for k, v := range props {
		merged[k] = v
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": merged,
		"required":   append([]string{"projectId"}, required...),
	}
}

// anchorProp describes the shared anchor object of the editing tools.
func anchorProp() map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": "Locate a line by content instead of number",
		"properties": map[string]interface{}{
			"text":    prop("string", "Literal text or regex to find"),
			"isRegex": prop("boolean", "Treat text as a regular expression"),
			"occurrence": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"first", "last", "nth"},
				"description": "Which match to use when the anchor hits multiple lines",
			},
			"nth":    prop("integer", "1-based match index, used with occurrence=nth"),
			"offset": prop("integer", "Line offset from the matched anchor line"),
			"length": prop("integer", "Number of lines in the range starting at the resolved line"),
		},
		"required": []string{"text"},
	}
}

// ToolDefinitions returns all tool definitions
func (s *MCPServer) ToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "listProjects",
			Description: "List all registered projects with their sandbox roots",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "findFiles",
			Description: "Find scoped files by glob pattern. Patterns use fnmatch semantics where * crosses directory separators",
			InputSchema: toolSchema(map[string]interface{}{
				"pattern":                 prop("string", "Glob pattern, default **/* (all scoped files)"),
				"path":                    prop("string", "Directory to search under, relative to the project root"),
				"maxFiles":                prop("integer", "Result cap"),
				"includeExts":             stringArrayProp("Only return files with these extensions, e.g. ['.go']"),
				"excludeExts":             stringArrayProp("Drop files with these extensions"),
				"excludeDirs":             stringArrayProp("Additional directory names to prune"),
				"patternTargetsScopePath": prop("boolean", "Match the pattern against the scope-relative path"),
			}),
		},
		{
			Name:        "listFiles",
			Description: "List scoped files filtered by a default source-file extension set",
			InputSchema: toolSchema(map[string]interface{}{
				"path":        prop("string", "Directory to list, relative to the project root"),
				"includeExts": stringArrayProp("Override the default extension allow-list"),
				"shallow":     prop("boolean", "Only immediate children of the request path"),
				"maxFiles":    prop("integer", "Result cap"),
			}),
		},
		{
			Name:        "listDirs",
			Description: "List the directories that hold scoped files",
			InputSchema: toolSchema(map[string]interface{}{
				"path":                    prop("string", "Directory to list under, relative to the project root"),
				"pattern":                 prop("string", "Glob filter on directory paths"),
				"shallow":                 prop("boolean", "Only immediate child directories"),
				"maxDirs":                 prop("integer", "Result cap"),
				"patternTargetsScopePath": prop("boolean", "Match the pattern against the scope-relative path"),
			}),
		},
		{
			Name:        "searchGrep",
			Description: "Regex search over the scoped files with budgets on files, matches, time, and file size. Partial results are returned with truncated=true",
			InputSchema: toolSchema(map[string]interface{}{
				"query":        prop("string", "Regular expression to search for"),
				"path":         prop("string", "Directory to search under, relative to the project root"),
				"extensions":   stringArrayProp("Only search files with these extensions"),
				"maxFiles":     prop("integer", "Maximum files to scan"),
				"maxMatches":   prop("integer", "Maximum matches per file"),
				"contextLines": prop("integer", "Context lines around each match"),
			}, "query"),
		},
		{
			Name:        "readFile",
			Description: "Read a whole file from the sandbox",
			InputSchema: toolSchema(map[string]interface{}{
				"file": prop("string", "File path relative to the project root"),
			}, "file"),
		},
		{
			Name:        "readFileRange",
			Description: "Read a 1-based inclusive line range of a file. Out-of-bounds lines are clamped, a missing file yields exists=false",
			InputSchema: toolSchema(map[string]interface{}{
				"file":      prop("string", "File path relative to the project root"),
				"startLine": prop("integer", "First line, 1-based"),
				"endLine":   prop("integer", "Last line, inclusive"),
			}, "file", "startLine", "endLine"),
		},
		{
			Name:        "writeFile",
			Description: "Create or overwrite a file. Parent directories are created; a new file is added to the scope so later reads can see it",
			InputSchema: toolSchema(map[string]interface{}{
				"file":    prop("string", "File path relative to the project root"),
				"content": prop("string", "Full file content"),
			}, "file", "content"),
		},
		{
			Name:        "makeDirs",
			Description: "Create a directory (and parents) inside the sandbox",
			InputSchema: toolSchema(map[string]interface{}{
				"path": prop("string", "Directory path relative to the project root"),
			}, "path"),
		},
		{
			Name:        "fileStat",
			Description: "Report existence, size, mtime, and line count of a file",
			InputSchema: toolSchema(map[string]interface{}{
				"file": prop("string", "File path relative to the project root"),
			}, "file"),
		},
		{
			Name:        "insertCode",
			Description: "Insert lines before or after a single resolved line, addressed by line number or anchor. No other lines are touched",
			InputSchema: toolSchema(map[string]interface{}{
				"file":      prop("string", "File path relative to the project root"),
				"payload":   prop("string", "Lines to insert"),
				"side":      map[string]interface{}{"type": "string", "enum": []string{"before", "after"}, "description": "Where to place the payload, default after"},
				"startLine": prop("integer", "Target line, 1-based (alternative to anchor)"),
				"anchor":    anchorProp(),
			}, "file", "payload"),
		},
		{
			Name:        "updateCode",
			Description: "Replace a resolved line range with new lines. A multi-line payload against a bare anchor is refused as ambiguous; set anchor.length",
			InputSchema: toolSchema(map[string]interface{}{
				"file":      prop("string", "File path relative to the project root"),
				"payload":   prop("string", "Replacement lines"),
				"startLine": prop("integer", "Range start, 1-based (alternative to anchor)"),
				"endLine":   prop("integer", "Range end, inclusive; defaults to startLine"),
				"anchor":    anchorProp(),
			}, "file", "payload"),
		},
		{
			Name:        "deleteCode",
			Description: "Delete a resolved line range, or mark it with removable sentinel comments when markOnly is set",
			InputSchema: toolSchema(map[string]interface{}{
				"file":      prop("string", "File path relative to the project root"),
				"startLine": prop("integer", "Range start, 1-based (alternative to anchor)"),
				"endLine":   prop("integer", "Range end, inclusive; defaults to startLine"),
				"anchor":    anchorProp(),
				"markOnly":  prop("boolean", "Wrap the range in sentinel comments instead of removing it"),
			}, "file"),
		},
		{
			Name:        "replaceInLine",
			Description: "Replace text within one resolved line. Preferred over updateCode for single-token changes",
			InputSchema: toolSchema(map[string]interface{}{
				"file":      prop("string", "File path relative to the project root"),
				"find":      prop("string", "Text or regex to replace within the line"),
				"replace":   prop("string", "Replacement text"),
				"isRegex":   prop("boolean", "Treat find as a regular expression"),
				"startLine": prop("integer", "Target line, 1-based (alternative to anchor)"),
				"anchor":    anchorProp(),
			}, "file", "find"),
		},
		{
			Name:        "loadScope",
			Description: "Load the project's search scope (include and exclude lists). Never fails; a missing or corrupt scope yields the default",
			InputSchema: toolSchema(map[string]interface{}{}),
		},
		{
			Name:        "saveScope",
			Description: "Replace the project's search scope. Directory includes are expanded to their current files; reserved excludes are always enforced",
			InputSchema: toolSchema(map[string]interface{}{
				"includes": stringArrayProp("Files and directories to include, relative to the project root"),
				"excludes": stringArrayProp("Paths to exclude"),
			}, "includes"),
		},
		{
			Name:        "buildTree",
			Description: "Return one directory level as tree nodes with hasChildren and selected flags, for lazy expansion",
			InputSchema: toolSchema(map[string]interface{}{
				"path": prop("string", "Directory to expand, relative to the project root; invalid paths fall back to the root"),
			}),
		},
	}
}

// RegisterTools wires the tool registry
func (s *MCPServer) RegisterTools() {
	s.tools = map[string]ToolHandler{
		"listProjects":  s.handleListProjects,
		"findFiles":     s.handleFindFiles,
		"listFiles":     s.handleListFiles,
		"listDirs":      s.handleListDirs,
		"searchGrep":    s.handleSearchGrep,
		"readFile":      s.handleReadFile,
		"readFileRange": s.handleReadFileRange,
		"writeFile":     s.handleWriteFile,
		"makeDirs":      s.handleMakeDirs,
		"fileStat":      s.handleFileStat,
		"insertCode":    s.handleInsertCode,
		"updateCode":    s.handleUpdateCode,
		"deleteCode":    s.handleDeleteCode,
		"replaceInLine": s.handleReplaceInLine,
		"loadScope":     s.handleLoadScope,
		"saveScope":     s.handleSaveScope,
		"buildTree":     s.handleBuildTree,
	}
}
