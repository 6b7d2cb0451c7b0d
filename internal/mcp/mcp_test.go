package mcp

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reposcope/internal/audit"
	"reposcope/internal/config"
	"reposcope/internal/logging"
	"reposcope/internal/project"
	"reposcope/internal/storage"
)

// newTestServer builds a server over a throwaway home plus one project
// whose sandbox root is a second temp dir.
func newTestServer(t *testing.T) (*MCPServer, int64, string) {
	t.Helper()

	home := t.TempDir()
	db, err := storage.Open(home, logging.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sandbox, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	server := NewMCPServer("test", cfg, home, db, logging.NewDiscardLogger())

	p := project.NewProject("demo", "", sandbox, "")
	if err := server.projects.Create(p); err != nil {
		t.Fatal(err)
	}
	return server, p.ID, sandbox
}

func writeSandboxFile(t *testing.T, sandbox, rel, content string) {
	t.Helper()
	abs := filepath.Join(sandbox, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// callTool drives a tools/call request through handleMessage and
// unwraps the envelope from the content text.
func callTool(t *testing.T, server *MCPServer, name string, args map[string]interface{}) map[string]interface{} {
	t.Helper()

	msg := &MCPMessage{
		Jsonrpc: "2.0",
		Id:      float64(1),
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}
	resp := server.handleMessage(msg)
	if resp == nil {
		t.Fatal("no response for tools/call")
	}
	if resp.Error != nil {
		t.Fatalf("protocol error: %v", resp.Error)
	}

	result := resp.Result.(map[string]interface{})
	content := result["content"].([]map[string]interface{})
	text := content[0]["text"].(string)

	var env map[string]interface{}
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	return env
}

func saveScope(t *testing.T, server *MCPServer, projectID int64, includes []string) {
	t.Helper()
	args := map[string]interface{}{"projectId": float64(projectID)}
	items := make([]interface{}, len(includes))
	for i, inc := range includes {
		items[i] = inc
	}
	args["includes"] = items
	env := callTool(t, server, "saveScope", args)
	if env["error"] != nil {
		t.Fatalf("saveScope failed: %v", env["error"])
	}
}

func TestInitialize(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := server.handleMessage(&MCPMessage{
		Jsonrpc: "2.0",
		Id:      float64(1),
		Method:  "initialize",
		Params:  map[string]interface{}{},
	})
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp)
	}
	result := resp.Result.(*InitializeResult)
	if result.ServerInfo.Name != "reposcope" {
		t.Errorf("server name = %q", result.ServerInfo.Name)
	}
	if result.ProtocolVersion == "" {
		t.Error("protocol version missing")
	}
}

func TestListTools(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := server.handleMessage(&MCPMessage{
		Jsonrpc: "2.0",
		Id:      float64(2),
		Method:  "tools/list",
	})
	result := resp.Result.(map[string]interface{})
	tools := result["tools"].([]Tool)
	if len(tools) != 17 {
		t.Fatalf("tools = %d, want 17", len(tools))
	}
	for _, tool := range tools {
		if tool.InputSchema == nil {
			t.Errorf("tool %s has no input schema", tool.Name)
		}
		if tool.Description == "" {
			t.Errorf("tool %s has no description", tool.Name)
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := server.handleMessage(&MCPMessage{
		Jsonrpc: "2.0",
		Id:      float64(3),
		Method:  "resources/list",
	})
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Errorf("expected MethodNotFound, got %+v", resp.Error)
	}
}

func TestUnknownTool(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := server.handleMessage(&MCPMessage{
		Jsonrpc: "2.0",
		Id:      float64(4),
		Method:  "tools/call",
		Params: map[string]interface{}{
			"name":      "teleport",
			"arguments": map[string]interface{}{},
		},
	})
	if resp.Error == nil || resp.Error.Code != MethodNotFound {
		t.Errorf("expected MethodNotFound, got %+v", resp.Error)
	}
}

func TestNotificationProducesNoResponse(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := server.handleMessage(&MCPMessage{
		Jsonrpc: "2.0",
		Method:  "notifications/initialized",
	})
	if resp != nil {
		t.Errorf("notification got a response: %+v", resp)
	}
}

func TestFindFiles_EndToEnd(t *testing.T) {
	server, id, sandbox := newTestServer(t)

	writeSandboxFile(t, sandbox, "src/main.go", "package main\n")
	writeSandboxFile(t, sandbox, "src/util.go", "package main\n")
	writeSandboxFile(t, sandbox, "docs/readme.md", "# hi\n")
	saveScope(t, server, id, []string{"src"})

	env := callTool(t, server, "findFiles", map[string]interface{}{
		"projectId": float64(id),
		"pattern":   "**/*.go",
	})
	if env["error"] != nil {
		t.Fatalf("findFiles failed: %v", env["error"])
	}
	data := env["data"].(map[string]interface{})
	files := data["files"].([]interface{})
	if len(files) != 2 {
		t.Fatalf("files = %v, want 2 entries", files)
	}
	// docs/readme.md is outside the scope
	for _, f := range files {
		if strings.Contains(f.(string), "readme") {
			t.Errorf("out-of-scope file leaked: %v", f)
		}
	}
}

func TestProjectNotFound_IsEnvelopeError(t *testing.T) {
	server, _, _ := newTestServer(t)

	env := callTool(t, server, "findFiles", map[string]interface{}{
		"projectId": float64(999),
	})
	errInfo, ok := env["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected envelope error")
	}
	if errInfo["code"] != "PROJECT_NOT_FOUND" {
		t.Errorf("code = %v", errInfo["code"])
	}
}

func TestMissingProjectID(t *testing.T) {
	server, _, _ := newTestServer(t)

	env := callTool(t, server, "readFile", map[string]interface{}{
		"file": "a.txt",
	})
	errInfo, ok := env["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected envelope error")
	}
	if errInfo["code"] != "INVALID_PARAMETER" {
		t.Errorf("code = %v", errInfo["code"])
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	server, id, _ := newTestServer(t)
	saveScope(t, server, id, nil)

	env := callTool(t, server, "writeFile", map[string]interface{}{
		"projectId": float64(id),
		"file":      "notes/todo.md",
		"content":   "first line\nsecond line\n",
	})
	if env["error"] != nil {
		t.Fatalf("writeFile failed: %v", env["error"])
	}

	env = callTool(t, server, "readFile", map[string]interface{}{
		"projectId": float64(id),
		"file":      "notes/todo.md",
	})
	data := env["data"].(map[string]interface{})
	if data["content"] != "first line\nsecond line\n" {
		t.Errorf("content = %q", data["content"])
	}

	// The write added the new file to the scope
	env = callTool(t, server, "findFiles", map[string]interface{}{
		"projectId": float64(id),
	})
	files := env["data"].(map[string]interface{})["files"].([]interface{})
	if len(files) != 1 || files[0] != "notes/todo.md" {
		t.Errorf("scope after write = %v", files)
	}
}

func TestReadFileRange_Clamped(t *testing.T) {
	server, id, sandbox := newTestServer(t)
	writeSandboxFile(t, sandbox, "a.txt", "1\n2\n3\n")
	saveScope(t, server, id, []string{"a.txt"})

	env := callTool(t, server, "readFileRange", map[string]interface{}{
		"projectId": float64(id),
		"file":      "a.txt",
		"startLine": float64(2),
		"endLine":   float64(99),
	})
	data := env["data"].(map[string]interface{})
	if data["exists"] != true || data["content"] != "2\n3\n" {
		t.Errorf("range = %+v", data)
	}
	if data["endLine"] != float64(3) {
		t.Errorf("endLine = %v, want the last line actually returned", data["endLine"])
	}
}

func TestSearchGrep(t *testing.T) {
	server, id, sandbox := newTestServer(t)
	writeSandboxFile(t, sandbox, "src/a.go", "package a\n\nfunc Alpha() {}\n")
	writeSandboxFile(t, sandbox, "src/b.go", "package a\n\nfunc Beta() {}\n")
	saveScope(t, server, id, []string{"src"})

	env := callTool(t, server, "searchGrep", map[string]interface{}{
		"projectId": float64(id),
		"query":     `func \w+\(`,
	})
	if env["error"] != nil {
		t.Fatalf("searchGrep failed: %v", env["error"])
	}
	data := env["data"].(map[string]interface{})
	stats := data["stats"].(map[string]interface{})
	if stats["totalMatches"] != float64(2) {
		t.Errorf("totalMatches = %v", stats["totalMatches"])
	}
}

func TestSurgeryTools(t *testing.T) {
	server, id, sandbox := newTestServer(t)
	writeSandboxFile(t, sandbox, "main.go", "package main\n\nfunc main() {\n\told()\n}\n")
	saveScope(t, server, id, []string{"main.go"})

	env := callTool(t, server, "replaceInLine", map[string]interface{}{
		"projectId": float64(id),
		"file":      "main.go",
		"find":      "old()",
		"replace":   "updated()",
		"anchor":    map[string]interface{}{"text": "old()"},
	})
	if env["error"] != nil {
		t.Fatalf("replaceInLine failed: %v", env["error"])
	}

	raw, err := os.ReadFile(filepath.Join(sandbox, "main.go"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "updated()") {
		t.Errorf("file not edited: %s", raw)
	}

	// A bad anchor must leave the file untouched and report a stable code
	before := string(raw)
	env = callTool(t, server, "deleteCode", map[string]interface{}{
		"projectId": float64(id),
		"file":      "main.go",
		"anchor":    map[string]interface{}{"text": "no such line"},
	})
	errInfo := env["error"].(map[string]interface{})
	if errInfo["code"] != "ANCHOR_NOT_FOUND" {
		t.Errorf("code = %v", errInfo["code"])
	}
	after, _ := os.ReadFile(filepath.Join(sandbox, "main.go"))
	if string(after) != before {
		t.Error("refused edit modified the file")
	}
}

func TestParseTarget_Validation(t *testing.T) {
	if _, err := parseTarget(map[string]interface{}{}); err == nil {
		t.Error("empty target accepted")
	}
	if _, err := parseTarget(map[string]interface{}{
		"startLine": float64(3),
		"anchor":    map[string]interface{}{"text": "x"},
	}); err == nil {
		t.Error("both startLine and anchor accepted")
	}
	target, err := parseTarget(map[string]interface{}{
		"anchor": map[string]interface{}{"text": "x", "occurrence": "nth", "nth": float64(2)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if target.Anchor == nil || target.Anchor.Nth != 2 {
		t.Errorf("anchor = %+v", target.Anchor)
	}
}

func TestLoadScope_DefaultForFreshProject(t *testing.T) {
	server, id, _ := newTestServer(t)

	env := callTool(t, server, "loadScope", map[string]interface{}{
		"projectId": float64(id),
	})
	data := env["data"].(map[string]interface{})
	excludes := data["excludes"].([]interface{})
	found := false
	for _, e := range excludes {
		if e == ".git" {
			found = true
		}
	}
	if !found {
		t.Errorf("reserved excludes missing: %v", excludes)
	}
}

func TestSaveScope_WarnsWhenRootUnavailable(t *testing.T) {
	server, _, sandbox := newTestServer(t)

	ghost := project.NewProject("ghost", "", filepath.Join(sandbox, "missing"), "")
	if err := server.projects.Create(ghost); err != nil {
		t.Fatal(err)
	}

	args := map[string]interface{}{
		"projectId": float64(ghost.ID),
		"includes":  []interface{}{"src"},
	}
	env := callTool(t, server, "saveScope", args)
	if env["error"] != nil {
		t.Fatalf("saveScope failed: %v", env["error"])
	}
	warnings, ok := env["warnings"].([]interface{})
	if !ok || len(warnings) == 0 {
		t.Fatalf("expected a warning, got %v", env["warnings"])
	}
	w := warnings[0].(map[string]interface{})
	if w["code"] != "ROOT_UNAVAILABLE" {
		t.Errorf("warning = %+v", w)
	}

	// the scope is stored unexpanded
	state := server.scopes.Load(ghost.ID)
	if len(state.Includes) != 1 || state.Includes[0] != "src" {
		t.Errorf("includes = %v", state.Includes)
	}
}

func TestBuildTree(t *testing.T) {
	server, id, sandbox := newTestServer(t)
	writeSandboxFile(t, sandbox, "src/a.go", "package a\n")
	writeSandboxFile(t, sandbox, "top.txt", "x\n")
	saveScope(t, server, id, []string{"src", "top.txt"})

	env := callTool(t, server, "buildTree", map[string]interface{}{
		"projectId": float64(id),
	})
	data := env["data"].(map[string]interface{})
	nodes := data["nodes"].([]interface{})
	if len(nodes) != 2 {
		t.Fatalf("nodes = %v", nodes)
	}
	first := nodes[0].(map[string]interface{})
	if first["type"] != "dir" || first["name"] != "src" {
		t.Errorf("dirs should sort first: %+v", first)
	}
}

func TestAuditRecordsToolCalls(t *testing.T) {
	server, id, _ := newTestServer(t)
	saveScope(t, server, id, nil)

	callTool(t, server, "findFiles", map[string]interface{}{
		"projectId": float64(id),
	})

	events, err := audit.Events(server.projects.DB(), server.trail.RunID())
	if err != nil {
		t.Fatal(err)
	}
	// saveScope + findFiles
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[1].Tool != "findFiles" || !events[1].OK {
		t.Errorf("event = %+v", events[1])
	}
}

func TestStart_StopsOnEOF(t *testing.T) {
	server, _, _ := newTestServer(t)

	var out bytes.Buffer
	server.SetStdin(strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}` + "\n"))
	server.SetStdout(&out)

	if err := server.Start(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"protocolVersion"`) {
		t.Errorf("no initialize response on stdout: %s", out.String())
	}
}
