package scan

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"reposcope/internal/errors"
	"reposcope/internal/scope"
)

// sandbox creates a canonical temp root populated with the given files.
func sandbox(t *testing.T, files ...string) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("content of "+f+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func stateWith(includes, excludes []string) *scope.State {
	return &scope.State{Version: 2, Includes: includes, Excludes: excludes}
}

func TestScan_IncludeIsolation(t *testing.T) {
	// a/c.py exists on disk but only a/b.py is whitelisted
	root := sandbox(t, "a/b.py", "a/c.py")
	state := stateWith([]string{"a/b.py"}, nil)

	got, err := Scan(Query{Mode: Files, Root: root, RequireScope: true}, state)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a/b.py"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_RequireScopeEmptyIncludes(t *testing.T) {
	root := sandbox(t, "a/b.py")
	got, err := Scan(Query{Mode: Files, Root: root, RequireScope: true}, stateWith(nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("empty includes with RequireScope should yield nothing, got %v", got)
	}
}

func TestScan_ExplicitIncludeWinsOverAncestorExclude(t *testing.T) {
	root := sandbox(t, "src/keep.go", "src/drop.go")
	state := &scope.State{
		Version:  1,
		Includes: []string{"src/keep.go", "src"},
		Excludes: []string{"src"},
	}

	got, err := Scan(Query{
		Mode: Files, Root: root,
		AllowAncestorForInclude: true,
		IgnoreExcludes:          false,
		RequireScope:            true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"src/keep.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_AncestorExpansionGate(t *testing.T) {
	root := sandbox(t, "src/a.go", "src/deep/b.go")
	state := stateWith([]string{"src"}, nil)

	// directory includes are ignored without the ancestor flag
	got, err := Scan(Query{Mode: Files, Root: root, RequireScope: true}, state)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("directory include expanded without flag: %v", got)
	}

	got, err = Scan(Query{
		Mode: Files, Root: root,
		AllowAncestorForInclude: true,
		RequireScope:            true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"src/a.go", "src/deep/b.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_SystemDirsPrunedDuringExpansion(t *testing.T) {
	root := sandbox(t, "src/a.go", "src/node_modules/pkg/index.js", "src/.git/config")
	state := stateWith([]string{"src"}, nil)

	got, err := Scan(Query{
		Mode: Files, Root: root,
		AllowAncestorForInclude: true,
		RequireScope:            true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"src/a.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_RequestPathEscape(t *testing.T) {
	root := sandbox(t, "a.txt")
	_, err := Scan(Query{Mode: Files, Root: root, RequestPath: "../elsewhere"}, stateWith(nil, nil))
	if errors.CodeOf(err) != errors.PathEscape {
		t.Fatalf("code = %s, want PATH_ESCAPE", errors.CodeOf(err))
	}
}

func TestScan_RequestPathScopesResults(t *testing.T) {
	root := sandbox(t, "src/app/main.go", "docs/readme.md")
	state := stateWith([]string{"src/app/main.go", "docs/readme.md"}, nil)

	got, err := Scan(Query{
		Mode: Files, Root: root, RequestPath: "src",
		RequireScope: true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	// paths are relative to the request path and docs/ is outside it
	want := []string{"app/main.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_ExtensionFilters(t *testing.T) {
	root := sandbox(t, "a.go", "b.py", "c.md")
	state := stateWith([]string{"a.go", "b.py", "c.md"}, nil)

	got, err := Scan(Query{
		Mode: Files, Root: root,
		IncludeExts:  []string{"go", ".py"},
		ExcludeExts:  []string{".py"},
		RequireScope: true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_PatternOnScopePath(t *testing.T) {
	root := sandbox(t, "src/app/main.go", "src/app/util.go")
	state := stateWith([]string{"src/app/main.go", "src/app/util.go"}, nil)

	got, err := Scan(Query{
		Mode: Files, Root: root, RequestPath: "src/app",
		Pattern:                 "**/main.go",
		PatternTargetsScopePath: true,
		RequireScope:            true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"main.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan = %v, want %v", got, want)
	}
}

func TestScan_MaxItemsCap(t *testing.T) {
	root := sandbox(t, "a.txt", "b.txt", "c.txt", "d.txt")
	state := stateWith([]string{"a.txt", "b.txt", "c.txt", "d.txt"}, nil)

	got, err := Scan(Query{Mode: Files, Root: root, MaxItems: 2, RequireScope: true}, state)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2 (got %v)", len(got), got)
	}
}

func TestScan_DirsMode(t *testing.T) {
	root := sandbox(t, "src/app.py", "src/secret.py", ".git/config")
	state := stateWith([]string{"src/app.py"}, []string{".git", "vendor"})

	files, err := Scan(Query{Mode: Files, Root: root, RequireScope: true}, state)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(files, []string{"src/app.py"}) {
		t.Errorf("files = %v, want [src/app.py]", files)
	}

	dirs, err := Scan(Query{
		Mode: Dirs, Root: root,
		AllowAncestorForInclude: true,
		RequireScope:            true,
	}, state)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dirs, []string{"src"}) {
		t.Errorf("dirs = %v, want [src]", dirs)
	}
}

func TestScan_MissingIncludeEntriesSkipped(t *testing.T) {
	root := sandbox(t, "real.txt")
	state := stateWith([]string{"real.txt", "ghost.txt"}, nil)

	got, err := Scan(Query{Mode: Files, Root: root, RequireScope: true}, state)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"real.txt"}) {
		t.Errorf("Scan = %v, want [real.txt]", got)
	}
}

func TestFindFiles_Scenario(t *testing.T) {
	root := sandbox(t, "src/app.py", "src/secret.py", ".git/config")
	state := stateWith([]string{"src/app.py"}, []string{".git", "vendor"})

	files, err := FindFiles(root, state, FindFilesOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(files, []string{"src/app.py"}) {
		t.Errorf("FindFiles = %v, want [src/app.py]", files)
	}

	dirs, err := ListDirs(root, state, ListDirsOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dirs, []string{"src"}) {
		t.Errorf("ListDirs = %v, want [src]", dirs)
	}
}

func TestListFiles_DefaultExtsAndShallow(t *testing.T) {
	root := sandbox(t, "top.md", "src/deep.md", "binary.bin")
	state := stateWith([]string{"top.md", "src/deep.md", "binary.bin"}, nil)

	all, err := ListFiles(root, state, ListFilesOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"src/deep.md", "top.md"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("ListFiles = %v, want %v", all, want)
	}

	shallow, err := ListFiles(root, state, ListFilesOptions{Shallow: true})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(shallow, []string{"top.md"}) {
		t.Errorf("shallow = %v, want [top.md]", shallow)
	}
}

func TestListDirs_ShallowDropsDotAndNested(t *testing.T) {
	root := sandbox(t, "top.txt", "src/app/x.txt")
	state := stateWith([]string{"top.txt", "src/app/x.txt"}, nil)

	all, err := ListDirs(root, state, ListDirsOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{".", "src/app"}
	if !reflect.DeepEqual(all, want) {
		t.Errorf("ListDirs = %v, want %v", all, want)
	}

	shallow, err := ListDirs(root, state, ListDirsOptions{Shallow: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(shallow) != 0 {
		t.Errorf("shallow = %v, want empty (no direct child dirs hold files)", shallow)
	}
}
