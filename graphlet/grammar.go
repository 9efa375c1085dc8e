package graphlet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Line grammars shared by the pattern library and the compressed graph formats:
//
//	library line:    edges|residual|generators
//	instance line:   residual:generators
//	adjacency line:  node:nbr,nbr node:nbr|generators
//
// Edge strings are space-separated "u,v" pairs.  Generators are space-separated groups of
// comma-separated indices.  Whitespace is elided, so a group ends wherever an index is not
// followed by a comma.

type EdgeTok struct {
	From int64 `@Int ","`
	To   int64 `@Int`
}

type GroupTok struct {
	Indices []int64 `@Int ( "," @Int )*`
}

type AdjTok struct {
	Node int64   `@Int ":"`
	Nbrs []int64 `@Int ( "," @Int )*`
}

type LibraryLine struct {
	Edges      []*EdgeTok  `@@+ "|"`
	Residual   []*EdgeTok  `@@+ "|"`
	Generators []*GroupTok `@@*`
}

type InstanceLine struct {
	Residual   []*EdgeTok  `@@+ ":"`
	Generators []*GroupTok `@@*`
}

type AdjacencyLine struct {
	Adjacency  []*AdjTok   `@@+ "|"`
	Generators []*GroupTok `@@*`
}

var sLineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{"Int", `[0-9]+`},
	{"Punct", `[,:|]`},
	{"whitespace", `[ \t\r\n]+`},
})

var (
	parseLibraryLine   = participle.MustBuild[LibraryLine](participle.Lexer(sLineLexer))
	parseInstanceLine  = participle.MustBuild[InstanceLine](participle.Lexer(sLineLexer))
	parseAdjacencyLine = participle.MustBuild[AdjacencyLine](participle.Lexer(sLineLexer))
)

// ParseLibraryLine parses a single "edges|residual|generators" pattern definition.
func ParseLibraryLine(line string) (edges, residual []Edge, generators []Cycle, err error) {
	ast, err := parseLibraryLine.ParseString("", line)
	if err != nil {
		return nil, nil, nil, syntaxError(line, err)
	}
	edges = exportEdges(ast.Edges)
	residual = exportEdges(ast.Residual)
	generators, err = exportGroups(ast.Generators)
	return
}

// ParseInstance parses a "residual:generators" line of a compressed graph file.
func ParseInstance(line string) (Instance, error) {
	ast, err := parseInstanceLine.ParseString("", line)
	if err != nil {
		return Instance{}, syntaxError(line, err)
	}
	gens, err := exportGroups(ast.Generators)
	if err != nil {
		return Instance{}, err
	}
	return Instance{
		Residual:   exportEdges(ast.Residual),
		Generators: gens,
	}, nil
}

// ParseAdjacencyInstance parses a "node:nbr,nbr ..|generators" line, expanding the adjacency groups
// into the equivalent residual edge list (node -> nbr for each listed neighbor, in listed order).
func ParseAdjacencyInstance(line string) (Instance, error) {
	ast, err := parseAdjacencyLine.ParseString("", line)
	if err != nil {
		return Instance{}, syntaxError(line, err)
	}
	gens, err := exportGroups(ast.Generators)
	if err != nil {
		return Instance{}, err
	}
	inst := Instance{
		Generators: gens,
	}
	for _, adj := range ast.Adjacency {
		for _, nbr := range adj.Nbrs {
			inst.Residual = append(inst.Residual, Edge{NodeID(adj.Node), NodeID(nbr)})
		}
	}
	return inst, nil
}

// AppendAdjacencyString appends the "node:nbr,nbr" form of the given edges, grouping consecutive
// edges that share a source node.
func AppendAdjacencyString(dst []byte, edges []Edge) []byte {
	for i, e := range edges {
		if i > 0 && edges[i-1].From == e.From {
			dst = append(dst, ',')
		} else {
			if i > 0 {
				dst = append(dst, ' ')
			}
			dst = appendInt(dst, e.From)
			dst = append(dst, ':')
		}
		dst = appendInt(dst, e.To)
	}
	return dst
}

func exportEdges(toks []*EdgeTok) []Edge {
	edges := make([]Edge, len(toks))
	for i, tok := range toks {
		edges[i] = Edge{NodeID(tok.From), NodeID(tok.To)}
	}
	return edges
}

func exportGroups(toks []*GroupTok) ([]Cycle, error) {
	if len(toks) == 0 {
		return nil, nil
	}
	cycles := make([]Cycle, len(toks))
	for i, tok := range toks {
		if len(tok.Indices) == 0 {
			return nil, &FormatError{Kind: ErrBadGenerator, Msg: "empty generator group"}
		}
		cycle := make(Cycle, len(tok.Indices))
		for j, idx := range tok.Indices {
			cycle[j] = NodeID(idx)
		}
		cycles[i] = cycle
	}
	return cycles, nil
}

func syntaxError(line string, err error) error {
	return &FormatError{
		Msg: fmt.Sprintf("%q: %v", strings.TrimSpace(line), err),
	}
}

func appendInt(dst []byte, v NodeID) []byte {
	return strconv.AppendInt(dst, int64(v), 10)
}
