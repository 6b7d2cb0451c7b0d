package mcp

import (
	"reposcope/internal/envelope"
	"reposcope/internal/errors"
	"reposcope/internal/fsops"
	"reposcope/internal/grep"
	"reposcope/internal/paths"
	"reposcope/internal/scan"
	"reposcope/internal/scope"
	"reposcope/internal/surgery"
)

// resolveProject validates projectId, resolves the sandbox root, and
// loads the scope. Every filesystem tool starts here, so a moved or
// deleted root is caught on the next call, not at startup.
func (s *MCPServer) resolveProject(params map[string]interface{}) (int64, string, *scope.State, error) {
	id, err := requireProjectID(params)
	if err != nil {
		return 0, "", nil, err
	}
	p, err := s.projects.Get(id)
	if err != nil {
		return 0, "", nil, err
	}
	root, err := p.ResolveRoot()
	if err != nil {
		return 0, "", nil, err
	}
	return id, root, s.scopes.Load(id), nil
}

func (s *MCPServer) handleListProjects(params map[string]interface{}) (*envelope.Response, error) {
	projects, err := s.projects.List()
	if err != nil {
		return nil, err
	}
	return envelope.Success(map[string]interface{}{
		"projects": projects,
		"count":    len(projects),
	}), nil
}

func (s *MCPServer) handleFindFiles(params map[string]interface{}) (*envelope.Response, error) {
	_, root, state, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}

	maxFiles := intParam(params, "maxFiles")
	if maxFiles <= 0 {
		maxFiles = s.cfg.Scan.MaxResults
	}
	files, err := scan.FindFiles(root, state, scan.FindFilesOptions{
		RequestPath:             stringParam(params, "path"),
		Pattern:                 stringParam(params, "pattern"),
		MaxFiles:                maxFiles,
		IncludeExts:             stringSliceParam(params, "includeExts"),
		ExcludeExts:             stringSliceParam(params, "excludeExts"),
		ExcludeDirs:             stringSliceParam(params, "excludeDirs"),
		PatternTargetsScopePath: boolParam(params, "patternTargetsScopePath"),
	})
	if err != nil {
		return nil, err
	}

	return envelope.Success(map[string]interface{}{
		"files": files,
		"count": len(files),
	}).WithTruncation(len(files) >= maxFiles, len(files), "maxFiles"), nil
}

func (s *MCPServer) handleListFiles(params map[string]interface{}) (*envelope.Response, error) {
	_, root, state, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}

	maxFiles := intParam(params, "maxFiles")
	if maxFiles <= 0 {
		maxFiles = s.cfg.Scan.MaxResults
	}
	files, err := scan.ListFiles(root, state, scan.ListFilesOptions{
		RequestPath: stringParam(params, "path"),
		IncludeExts: stringSliceParam(params, "includeExts"),
		Shallow:     boolParam(params, "shallow"),
		MaxFiles:    maxFiles,
	})
	if err != nil {
		return nil, err
	}

	return envelope.Success(map[string]interface{}{
		"files": files,
		"count": len(files),
	}).WithTruncation(len(files) >= maxFiles, len(files), "maxFiles"), nil
}

func (s *MCPServer) handleListDirs(params map[string]interface{}) (*envelope.Response, error) {
	_, root, state, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}

	dirs, err := scan.ListDirs(root, state, scan.ListDirsOptions{
		RequestPath:             stringParam(params, "path"),
		Pattern:                 stringParam(params, "pattern"),
		MaxDirs:                 intParam(params, "maxDirs"),
		Shallow:                 boolParam(params, "shallow"),
		PatternTargetsScopePath: boolParam(params, "patternTargetsScopePath"),
	})
	if err != nil {
		return nil, err
	}

	return envelope.Success(map[string]interface{}{
		"dirs":  dirs,
		"count": len(dirs),
	}), nil
}

func (s *MCPServer) handleSearchGrep(params map[string]interface{}) (*envelope.Response, error) {
	_, root, state, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}
	query, err := requireString(params, "query")
	if err != nil {
		return nil, err
	}

	opts := grep.Options{
		RequestPath:       stringParam(params, "path"),
		Extensions:        stringSliceParam(params, "extensions"),
		MaxFiles:          s.cfg.Grep.MaxFiles,
		MaxMatchesPerFile: s.cfg.Grep.MaxMatchesPerFile,
		MaxTotalMatches:   s.cfg.Grep.MaxTotalMatches,
		ContextLines:      s.cfg.Grep.ContextLines,
		SizeLimitBytes:    int64(s.cfg.Grep.SizeLimitBytes),
		TimeoutSeconds:    s.cfg.Grep.TimeoutSeconds,
		MaxSnippetChars:   s.cfg.Grep.MaxSnippetChars,
	}
	if v := intParam(params, "maxFiles"); v > 0 {
		opts.MaxFiles = v
	}
	if v := intParam(params, "maxMatches"); v > 0 {
		opts.MaxMatchesPerFile = v
	}
	if _, ok := params["contextLines"]; ok {
		opts.ContextLines = intParam(params, "contextLines")
	}

	result := grep.Search(root, state, query, opts)
	return envelope.Success(result).
		WithTruncation(result.Stats.Truncated, result.Stats.TotalMatches, "search budget exhausted"), nil
}

func (s *MCPServer) handleReadFile(params map[string]interface{}) (*envelope.Response, error) {
	_, root, _, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}
	file, err := requireString(params, "file")
	if err != nil {
		return nil, err
	}

	content, err := fsops.ReadFile(root, file)
	if err != nil {
		return nil, err
	}
	return envelope.Success(map[string]interface{}{
		"path":    file,
		"content": content,
	}), nil
}

func (s *MCPServer) handleReadFileRange(params map[string]interface{}) (*envelope.Response, error) {
	_, root, _, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}
	file, err := requireString(params, "file")
	if err != nil {
		return nil, err
	}

	result, err := fsops.ReadFileRange(root, file, intParam(params, "startLine"), intParam(params, "endLine"))
	if err != nil {
		return nil, err
	}
	return envelope.Success(result), nil
}

func (s *MCPServer) handleWriteFile(params map[string]interface{}) (*envelope.Response, error) {
	id, root, _, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}
	file, err := requireString(params, "file")
	if err != nil {
		return nil, err
	}
	content, ok := params["content"].(string)
	if !ok {
		return nil, errors.NewInvalidParameterError("content", "required")
	}

	if err := fsops.WriteFile(root, file, content, s.scopes, id); err != nil {
		return nil, err
	}
	stat, err := fsops.FileStat(root, file)
	if err != nil {
		return nil, err
	}
	return envelope.Success(stat), nil
}

func (s *MCPServer) handleMakeDirs(params map[string]interface{}) (*envelope.Response, error) {
	_, root, _, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}
	dir, err := requireString(params, "path")
	if err != nil {
		return nil, err
	}

	if err := fsops.MakeDirs(root, dir); err != nil {
		return nil, err
	}
	return envelope.Success(map[string]interface{}{
		"path":    dir,
		"created": true,
	}), nil
}

func (s *MCPServer) handleFileStat(params map[string]interface{}) (*envelope.Response, error) {
	_, root, _, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}
	file, err := requireString(params, "file")
	if err != nil {
		return nil, err
	}

	stat, err := fsops.FileStat(root, file)
	if err != nil {
		return nil, err
	}
	return envelope.Success(stat), nil
}

func (s *MCPServer) handleInsertCode(params map[string]interface{}) (*envelope.Response, error) {
	abs, err := s.resolveFile(params)
	if err != nil {
		return nil, err
	}
	payload, err := requireString(params, "payload")
	if err != nil {
		return nil, err
	}
	target, err := parseTarget(params)
	if err != nil {
		return nil, err
	}

	side := surgery.After
	if stringParam(params, "side") == "before" {
		side = surgery.Before
	}
	result, err := surgery.Insert(abs, target, payload, side)
	if err != nil {
		return nil, err
	}
	return envelope.Success(result), nil
}

func (s *MCPServer) handleUpdateCode(params map[string]interface{}) (*envelope.Response, error) {
	abs, err := s.resolveFile(params)
	if err != nil {
		return nil, err
	}
	payload, err := requireString(params, "payload")
	if err != nil {
		return nil, err
	}
	target, err := parseTarget(params)
	if err != nil {
		return nil, err
	}

	result, err := surgery.Update(abs, target, payload)
	if err != nil {
		return nil, err
	}
	return envelope.Success(result), nil
}

func (s *MCPServer) handleDeleteCode(params map[string]interface{}) (*envelope.Response, error) {
	abs, err := s.resolveFile(params)
	if err != nil {
		return nil, err
	}
	target, err := parseTarget(params)
	if err != nil {
		return nil, err
	}

	result, err := surgery.Delete(abs, target, boolParam(params, "markOnly"))
	if err != nil {
		return nil, err
	}
	return envelope.Success(result), nil
}

func (s *MCPServer) handleReplaceInLine(params map[string]interface{}) (*envelope.Response, error) {
	abs, err := s.resolveFile(params)
	if err != nil {
		return nil, err
	}
	find, err := requireString(params, "find")
	if err != nil {
		return nil, err
	}
	target, err := parseTarget(params)
	if err != nil {
		return nil, err
	}

	result, err := surgery.ReplaceInLine(abs, target, find, stringParam(params, "replace"), boolParam(params, "isRegex"))
	if err != nil {
		return nil, err
	}
	return envelope.Success(result), nil
}

func (s *MCPServer) handleLoadScope(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireProjectID(params)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.Get(id); err != nil {
		return nil, err
	}

	state := s.scopes.Load(id)
	return envelope.Success(state), nil
}

func (s *MCPServer) handleSaveScope(params map[string]interface{}) (*envelope.Response, error) {
	id, err := requireProjectID(params)
	if err != nil {
		return nil, err
	}
	p, err := s.projects.Get(id)
	if err != nil {
		return nil, err
	}

	// A project without a usable root can still persist a scope; the
	// directory expansion just waits until the root exists.
	root, rootErr := p.ResolveRoot()
	if rootErr != nil {
		root = ""
	}

	state, err := s.scopes.Save(id, root,
		stringSliceParam(params, "includes"),
		stringSliceParam(params, "excludes"))
	if err != nil {
		return nil, err
	}
	resp := envelope.Success(state)
	if rootErr != nil {
		resp.AddWarning("ROOT_UNAVAILABLE", "root not resolvable, directory includes stored unexpanded")
	}
	return resp, nil
}

func (s *MCPServer) handleBuildTree(params map[string]interface{}) (*envelope.Response, error) {
	_, root, state, err := s.resolveProject(params)
	if err != nil {
		return nil, err
	}

	rel := stringParam(params, "path")
	nodes := scan.BuildTree(root, state, rel)
	return envelope.Success(map[string]interface{}{
		"path":  rel,
		"nodes": nodes,
	}), nil
}

// resolveFile resolves the project plus the mandatory file parameter to
// an absolute sandbox path for the editing tools.
func (s *MCPServer) resolveFile(params map[string]interface{}) (string, error) {
	_, root, _, err := s.resolveProject(params)
	if err != nil {
		return "", err
	}
	file, err := requireString(params, "file")
	if err != nil {
		return "", err
	}
	return paths.ResolveUnder(root, file)
}
