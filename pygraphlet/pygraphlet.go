package pygraphlet

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/compress"
	"github.com/fine-structures/graphlet/lib/config"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/fine-structures/graphlet/lib/library"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2024.1"
)

var (
	pyGraphType     = py.NewType("Graph", "a directed graph")
	pyLibraryType   = py.NewType("Library", "an ordered pattern library")
	pyCatalogType   = py.NewType("Catalog", "a badger-backed pattern catalog")
	pyWorkspaceType = py.NewType("Workspace", "collects active session resources and catalogs")
)

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

type pyGraph struct {
	*digraph.Graph
}

func (X pyGraph) Type() *py.Type {
	return pyGraphType
}

func (X pyGraph) M__str__() (py.Object, error) {
	return py.String(graphSummary(X.Graph)), nil
}

func (X pyGraph) M__repr__() (py.Object, error) {
	return X.M__str__()
}

func graphSummary(G *digraph.Graph) string {
	return fmt.Sprintf("Graph(%d nodes, %d edges)", G.NumNodes(), G.NumEdges())
}

func getGraph(obj py.Object) (pyGraph, error) {
	X, ok := obj.(pyGraph)
	if !ok {
		return pyGraph{}, py.ExceptionNewf(py.TypeError, "expected Graph object (got %v)", obj.Type().Name)
	}
	return X, nil
}

func getLibrary(obj py.Object) (pyLibrary, error) {
	lib, ok := obj.(pyLibrary)
	if !ok {
		return pyLibrary{}, py.ExceptionNewf(py.TypeError, "expected Library object (got %v)", obj.Type().Name)
	}
	return lib, nil
}

func py_NewGraph(module py.Object, args py.Tuple) (py.Object, error) {
	return py.Object(pyGraph{digraph.NewGraph()}), nil
}

func py_LoadEdgeList(module py.Object, args py.Tuple) (py.Object, error) {
	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	G, err := digraph.LoadEdgeList(pathname)
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.Object(pyGraph{G}), nil
}

func py_Graph_AddEdge(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	var u, v int64
	err := py.LoadTuple(args, []interface{}{&u, &v})
	if err != nil {
		return nil, err
	}
	if u < 0 || v < 0 {
		return nil, py.ExceptionNewf(py.ValueError, "%v", graphlet.ErrBadNodeID)
	}
	if X.AddEdge(graphlet.NodeID(u), graphlet.NodeID(v)) {
		return py.True, nil
	}
	return py.False, nil
}

func py_Graph_NumNodes(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	return py.Int(X.NumNodes()), nil
}

func py_Graph_NumEdges(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	return py.Int(X.NumEdges()), nil
}

func py_Graph_Edges(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	edges := X.Edges()
	tuple := make(py.Tuple, len(edges))
	for i, e := range edges {
		tuple[i] = py.Tuple{py.Int(e.From), py.Int(e.To)}
	}
	return tuple, nil
}

func py_Graph_Write(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	file, err := os.Create(pathname)
	if err != nil {
		return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
	}
	err = digraph.WriteEdgeList(file, X.Graph)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.None, nil
}

func py_Graph_EqualEdges(self py.Object, args py.Tuple) (py.Object, error) {
	X := self.(pyGraph)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "EqualEdges() takes 1 argument")
	}
	other, err := getGraph(args[0])
	if err != nil {
		return nil, err
	}
	if X.EqualEdges(other.Graph) {
		return py.True, nil
	}
	return py.False, nil
}

type pyLibrary struct {
	*library.Library
}

func (lib pyLibrary) Type() *py.Type {
	return pyLibraryType
}

func py_LoadLibrary(module py.Object, args py.Tuple) (py.Object, error) {
	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	lib, err := library.Load(pathname)
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.Object(pyLibrary{lib}), nil
}

func py_Library_Len(self py.Object, args py.Tuple) (py.Object, error) {
	lib := self.(pyLibrary)
	return py.Int(lib.Len()), nil
}

// Returns a tuple of strings, one per inconsistent pattern.
func py_Library_Validate(self py.Object, args py.Tuple) (py.Object, error) {
	lib := self.(pyLibrary)
	issues := library.Validate(lib.Library)
	tuple := make(py.Tuple, len(issues))
	for i, issue := range issues {
		tuple[i] = py.String(issue.String())
	}
	return tuple, nil
}

// Arg 1 (Library)
// Arg 2 (Graph)
// Arg 3 (str): output name; "_compressed.graph" is appended
// Arg 4 (int, optional): edge cutoff
func py_Compress(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) < 3 {
		return nil, py.ExceptionNewf(py.TypeError, "Compress() takes at least 3 arguments")
	}
	lib, err := getLibrary(args[0])
	if err != nil {
		return nil, err
	}
	X, err := getGraph(args[1])
	if err != nil {
		return nil, err
	}
	outputName, ok := args[2].(py.String)
	if !ok {
		return nil, py.ExceptionNewf(py.TypeError, "output name must be a str")
	}

	cfg := config.Default()
	if len(args) > 3 {
		cutoff, err := py.GetInt(args[3])
		if err != nil {
			return nil, err
		}
		cfg.EdgeCutoff = int(cutoff)
	}
	if err = cfg.Validate(); err != nil {
		return nil, py.ExceptionNewf(py.ValueError, "%v", err)
	}

	c := compress.NewCompressor(lib.Library, cfg.CompressOpts(), nil)
	pathname, err := c.Compress(context.Background(), X.Graph, string(outputName))
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.String(pathname), nil
}

// Arg 1 (str): compressed graph file
// Arg 2 (int, optional): starting node
// Returns (Graph, token count)
func py_Decompress(module py.Object, args py.Tuple) (py.Object, error) {
	var pathname string
	var start int64
	err := py.LoadTuple(args, []interface{}{&pathname, &start})
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, py.ExceptionNewf(py.ValueError, "%v", graphlet.ErrBadNodeID)
	}
	G, tokens, err := compress.Decompress(pathname, graphlet.NodeID(start), nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.Tuple{pyGraph{G}, py.Int(tokens)}, nil
}

// Arg 1 (str): adjacency patterns file
// Arg 2 (str): literal edges file
// Arg 3 (int, optional): starting node
// Returns (Graph, token count)
func py_DecompressAdj(module py.Object, args py.Tuple) (py.Object, error) {
	var patternPath, edgePath string
	var start int64
	err := py.LoadTuple(args, []interface{}{&patternPath, &edgePath, &start})
	if err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, py.ExceptionNewf(py.ValueError, "%v", graphlet.ErrBadNodeID)
	}
	G, tokens, err := compress.DecompressAdj(patternPath, edgePath, graphlet.NodeID(start), nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.Tuple{pyGraph{G}, py.Int(tokens)}, nil
}

// Workspace tracks catalogs opened from script so they are closed when the script's context closes.
type Workspace struct {
	catalogs []*library.Catalog
}

func (ws *Workspace) Close() {
	for _, cat := range ws.catalogs {
		cat.Close()
	}
	ws.catalogs = nil
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		wsObj = &Workspace{}
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func py_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	_ = self.(*Workspace)

	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(pathname)
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

// Arg 1 (str): catalog db pathname ("" for in-memory)
// Arg 2 (int, optional): flags (READ_ONLY)
func py_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	var flags int32
	err := py.LoadTuple(args, []interface{}{&pathname, &flags})
	if err != nil {
		return nil, err
	}

	cat, err := library.OpenCatalog(library.CatalogOpts{
		ReadOnly:   (flags & READ_ONLY) != 0,
		DbPathName: pathname,
	})
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}
	ws.catalogs = append(ws.catalogs, cat)

	return py.Object(pyCatalog{cat}), nil
}

type pyCatalog struct {
	*library.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if err := cat.Close(); err != nil {
		return nil, wrapErr(err)
	}
	return py.None, nil
}

func py_Catalog_NumPatterns(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	return py.Int(cat.NumPatterns()), nil
}

func py_Catalog_Import(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Import() takes 1 argument")
	}
	lib, err := getLibrary(args[0])
	if err != nil {
		return nil, err
	}
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "catalog is in read-only mode")
	}
	if err = cat.Import(lib.Library); err != nil {
		return nil, wrapErr(err)
	}
	return py.None, nil
}

func py_Catalog_Library(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	lib, err := cat.Library()
	if err != nil {
		return nil, wrapErr(err)
	}
	return py.Object(pyLibrary{lib}), nil
}

// wrapErr maps Go errors onto the closest python exception.
func wrapErr(err error) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return py.ExceptionNewf(py.FileNotFoundError, "%v", err)
	case errors.Is(err, graphlet.ErrFormat):
		return py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.ExceptionNewf(py.RuntimeError, "%v", err)
}

func init() {

	/////////////////////////////////
	// Graph
	{
		pyGraphType.Dict["AddEdge"] = py.MustNewMethod("AddEdge", py_Graph_AddEdge, 0, "adds u -> v; returns False if already present")
		pyGraphType.Dict["NumNodes"] = py.MustNewMethod("NumNodes", py_Graph_NumNodes, 0, "")
		pyGraphType.Dict["NumEdges"] = py.MustNewMethod("NumEdges", py_Graph_NumEdges, 0, "")
		pyGraphType.Dict["Edges"] = py.MustNewMethod("Edges", py_Graph_Edges, 0, "returns all edges as sorted (u, v) tuples")
		pyGraphType.Dict["Write"] = py.MustNewMethod("Write", py_Graph_Write, 0, "writes this graph as an edge list file")
		pyGraphType.Dict["EqualEdges"] = py.MustNewMethod("EqualEdges", py_Graph_EqualEdges, 0, "")
	}

	/////////////////////////////////
	// Library
	{
		pyLibraryType.Dict["Len"] = py.MustNewMethod("Len", py_Library_Len, 0, "")
		pyLibraryType.Dict["Validate"] = py.MustNewMethod("Validate", py_Library_Validate, 0, "describes each pattern whose generators do not reproduce its edges")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["Import"] = py.MustNewMethod("Import", py_Catalog_Import, 0, "replaces the catalog's patterns with the given Library")
		pyCatalogType.Dict["Library"] = py.MustNewMethod("Library", py_Catalog_Library, 0, "")
		pyCatalogType.Dict["NumPatterns"] = py.MustNewMethod("NumPatterns", py_Catalog_NumPatterns, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
		pyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", py_Workspace_CatalogExists, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("NewGraph", py_NewGraph, 0, ""),
			py.MustNewMethod("LoadEdgeList", py_LoadEdgeList, 0, ""),
			py.MustNewMethod("LoadLibrary", py_LoadLibrary, 0, ""),
			py.MustNewMethod("Compress", py_Compress, 0, "Compress(lib, graph, output_name[, cutoff]) -> pathname"),
			py.MustNewMethod("Decompress", py_Decompress, 0, "Decompress(pathname[, start]) -> (graph, tokens)"),
			py.MustNewMethod("DecompressAdj", py_DecompressAdj, 0, "DecompressAdj(patterns, edges[, start]) -> (graph, tokens)"),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION":       py.String(LIB_VERSION),
			"PY_VERSION":        py.String("v3.4.0"),
			"COMPRESSED_SUFFIX": py.String(graphlet.CompressedSuffix),
			"READ_ONLY":         py.Int(READ_ONLY),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_graphlet",
				Doc:  "graphlet compression gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})
	}
}
