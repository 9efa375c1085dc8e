package library

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/pkg/errors"
)

// Library is an ordered, immutable list of patterns.  Library order is matching priority.
//
// A Library is safe to share across goroutines.
type Library struct {
	patterns []graphlet.Pattern
}

// New returns a library holding the given patterns, assigning each its position as its ID.
func New(patterns []graphlet.Pattern) *Library {
	lib := &Library{
		patterns: make([]graphlet.Pattern, len(patterns)),
	}
	copy(lib.patterns, patterns)
	for i := range lib.patterns {
		lib.patterns[i].ID = i
	}
	return lib
}

func (lib *Library) Len() int {
	return len(lib.patterns)
}

// Pattern returns the pattern at the given library position.  The returned value must not be modified.
func (lib *Library) Pattern(i int) *graphlet.Pattern {
	return &lib.patterns[i]
}

// Patterns returns all patterns in library order.  The returned slice must not be modified.
func (lib *Library) Patterns() []graphlet.Pattern {
	return lib.patterns
}

// MaxPatternNodes returns the largest pattern node count in this library.
func (lib *Library) MaxPatternNodes() int {
	max := 0
	for i := range lib.patterns {
		if n := lib.patterns[i].NumNodes(); n > max {
			max = n
		}
	}
	return max
}

// Parse reads one "edges|residual|generators" pattern per line.  Blank lines are skipped.
// A malformed line fails the entire load.
func Parse(r io.Reader) (*Library, error) {
	var patterns []graphlet.Pattern

	br := bufio.NewReader(r)
	for lineNum := 1; ; lineNum++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if trimmed := strings.TrimSpace(line); len(trimmed) > 0 {
			P, perr := parsePattern(trimmed)
			if perr != nil {
				return nil, graphlet.AtLine(perr, lineNum)
			}
			P.ID = len(patterns)
			patterns = append(patterns, P)
		}
		if err == io.EOF {
			break
		}
	}

	return &Library{
		patterns: patterns,
	}, nil
}

func parsePattern(line string) (graphlet.Pattern, error) {
	edges, residual, generators, err := graphlet.ParseLibraryLine(line)
	if err != nil {
		return graphlet.Pattern{}, err
	}
	return graphlet.Pattern{
		Edges:      edges,
		Residual:   residual,
		Generators: generators,
	}, nil
}

// Load opens and parses the given pattern library file.
func Load(pathname string) (*Library, error) {
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	lib, err := Parse(file)
	if err != nil {
		return nil, errors.Wrapf(err, "pattern library %q", pathname)
	}
	return lib, nil
}

// Write emits the library in the same line format Parse reads.
func Write(w io.Writer, lib *Library) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 256)
	for i := range lib.patterns {
		P := &lib.patterns[i]
		line = graphlet.AppendEdgeString(line[:0], P.Edges)
		line = append(line, '|')
		line = graphlet.AppendEdgeString(line, P.Residual)
		line = append(line, '|')
		line = graphlet.AppendGenerators(line, P.Generators)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}
