package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-python/gpython/py"
)

const scriptTemplate = `import _graphlet

lib = _graphlet.LoadLibrary(%q)
assert lib.Len() == 2
assert len(lib.Validate()) == 0

g = _graphlet.NewGraph()
g.AddEdge(0, 1)
g.AddEdge(1, 2)
g.AddEdge(2, 0)
g.AddEdge(0, 3)
assert g.NumEdges() == 4

out = _graphlet.Compress(lib, g, %q)
res = _graphlet.Decompress(out, 0)
assert res[1] == 8
assert res[0].EqualEdges(g)

ws = _graphlet.GetWorkspace()
cat = ws.OpenCatalog(%q)
cat.Import(lib)
assert cat.NumPatterns() == 2
assert cat.Library().Len() == 2
`

func TestRunScript(t *testing.T) {
	dir := t.TempDir()

	libPath := filepath.Join(dir, "patterns.txt")
	if err := os.WriteFile(libPath, []byte("0,1 1,2 2,0|0,1|0,1,2\n0,1 1,0|0,1|0,1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	script := fmt.Sprintf(scriptTemplate, libPath, filepath.Join(dir, "tri"), filepath.Join(dir, "catalog"))
	scriptPath := filepath.Join(dir, "roundtrip.py")
	if err := os.WriteFile(scriptPath, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	if err := runScript(scriptPath); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(dir, "tri_compressed.graph")); err != nil {
		t.Fatal(err)
	}
}

func TestRunScriptError(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fail.py")
	if err := os.WriteFile(scriptPath, []byte("import _graphlet\n_graphlet.Compress(1, 2, \"out\")\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := runScript(scriptPath)
	if err == nil {
		t.Fatal("expected an error from a failing script")
	}
	if !py.IsException(py.TypeError, err) || !strings.Contains(err.Error(), "expected Library object") {
		t.Fatalf("expected the script's TypeError, got %v", err)
	}

	err = runScript(filepath.Join(dir, "missing.py"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a missing script error, got %v", err)
	}
}
