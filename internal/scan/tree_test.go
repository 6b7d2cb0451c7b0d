package scan

import (
	"os"
	"path/filepath"
	"testing"

	"reposcope/internal/scope"
)

func nodeByName(nodes []TreeNode, name string) *TreeNode {
	for i := range nodes {
		if nodes[i].Name == name {
			return &nodes[i]
		}
	}
	return nil
}

func TestBuildTree_RootLevel(t *testing.T) {
	root := sandbox(t, "src/app.go", "src/sub/deep.go", "readme.md", ".git/config", "node_modules/x/y.js")
	state := stateWith([]string{"src/app.go"}, []string{".git", "vendor"})

	nodes := BuildTree(root, state, "")

	if n := nodeByName(nodes, ".git"); n != nil {
		t.Error(".git should be pruned")
	}
	if n := nodeByName(nodes, "node_modules"); n != nil {
		t.Error("node_modules should be pruned")
	}

	src := nodeByName(nodes, "src")
	if src == nil || src.Type != "dir" {
		t.Fatalf("src dir node missing: %v", nodes)
	}
	if !src.HasChildren {
		t.Error("src should report children")
	}

	readme := nodeByName(nodes, "readme.md")
	if readme == nil || readme.Type != "file" {
		t.Fatalf("readme.md file node missing: %v", nodes)
	}
	if readme.Selected {
		t.Error("readme.md is not in scope, selected should be false")
	}

	// dirs sort before files
	if len(nodes) != 2 || nodes[0].Name != "src" || nodes[1].Name != "readme.md" {
		t.Errorf("node order = %v", nodes)
	}
}

func TestBuildTree_SubPathAndSelection(t *testing.T) {
	root := sandbox(t, "src/app.go", "src/other.go")
	state := stateWith([]string{"src/app.go"}, nil)

	nodes := BuildTree(root, state, "src")

	app := nodeByName(nodes, "app.go")
	if app == nil || !app.Selected {
		t.Errorf("src/app.go should be selected: %v", nodes)
	}
	other := nodeByName(nodes, "other.go")
	if other == nil || other.Selected {
		t.Errorf("src/other.go should not be selected: %v", nodes)
	}
	if app.Rel != "src/app.go" {
		t.Errorf("rel = %q, want src/app.go", app.Rel)
	}
}

func TestBuildTree_V1AncestorSelection(t *testing.T) {
	root := sandbox(t, "src/app.go")
	state := &scope.State{Version: 1, Includes: []string{"src"}, Excludes: []string{".git"}}

	nodes := BuildTree(root, state, "src")
	app := nodeByName(nodes, "app.go")
	if app == nil || !app.Selected {
		t.Errorf("v1 directory include should select descendants: %v", nodes)
	}
}

func TestBuildTree_BadRelFallsBackToRoot(t *testing.T) {
	root := sandbox(t, "top.txt")
	state := stateWith(nil, nil)

	for _, rel := range []string{"../outside", "missing/dir", ".git"} {
		nodes := BuildTree(root, state, rel)
		if nodeByName(nodes, "top.txt") == nil {
			t.Errorf("rel %q should fall back to root listing, got %v", rel, nodes)
		}
	}
}

func TestBuildTree_HasChildrenProbeIgnoresPruned(t *testing.T) {
	root := sandbox(t, "pkg/.git/config")
	state := stateWith(nil, nil)

	nodes := BuildTree(root, state, "")
	pkg := nodeByName(nodes, "pkg")
	if pkg == nil {
		t.Fatalf("pkg missing: %v", nodes)
	}
	if pkg.HasChildren {
		t.Error("pkg only contains pruned entries, hasChildren should be false")
	}
}

func TestBuildTree_V1SelectionSurvivesAddInclude(t *testing.T) {
	root := sandbox(t, "src/app.py", "newfile.go")
	store := scope.NewStore(t.TempDir())
	if err := os.MkdirAll(filepath.Dir(store.Path(7)), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `{"version": 1, "includes": ["src"], "excludes": []}`
	if err := os.WriteFile(store.Path(7), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	// appending a file to a v1 directory whitelist must not flip the
	// document to exact-membership selection
	store.AddInclude(7, "newfile.go")
	state := store.Load(7)

	nodes := BuildTree(root, state, "src")
	app := nodeByName(nodes, "app.py")
	if app == nil {
		t.Fatalf("app.py missing: %v", nodes)
	}
	if !app.Selected {
		t.Error("file under a v1 directory include should stay selected")
	}
}
