package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/pkg/errors"
)

// File is the in-memory form of a compressed graph:
//
//	<node count>
//	<residual>:<generators>     (one line per instance)
//	*
//	<u> <v>                     (one line per literal edge)
type File struct {
	NodeCount int
	Instances []graphlet.Instance
	Literals  []graphlet.Edge
}

// TokenCount is a diagnostic size measure: one for the node count, plus each instance's tokens, plus two per literal edge.
func (f *File) TokenCount() int {
	count := 1
	for _, inst := range f.Instances {
		count += inst.NumTokens()
	}
	count += 2 * len(f.Literals)
	return count
}

// WriteInstance appends an instance line (with newline) to w.
func WriteInstance(w io.Writer, inst graphlet.Instance) error {
	var scrap [128]byte
	line := inst.AppendTo(scrap[:0])
	line = append(line, '\n')
	_, err := w.Write(line)
	return err
}

// ParseInstance parses a single "residual:generators" instance line.
func ParseInstance(line string) (graphlet.Instance, error) {
	return graphlet.ParseInstance(line)
}

// Write emits f in compressed graph file form.
func Write(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)

	line := make([]byte, 0, 256)
	line = strconv.AppendInt(line, int64(f.NodeCount), 10)
	line = append(line, '\n')
	if _, err := bw.Write(line); err != nil {
		return err
	}

	for _, inst := range f.Instances {
		line = inst.AppendTo(line[:0])
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}

	if _, err := bw.WriteString(graphlet.SentinelLine + "\n"); err != nil {
		return err
	}

	for _, e := range f.Literals {
		if _, err := bw.Write(graphlet.AppendLiteral(line[:0], e)); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Read parses a compressed graph file.  Blank lines are ignored.
//
// Any malformed line fails the whole read with an error matching graphlet.ErrFormat; no partial File is returned.
func Read(r io.Reader) (*File, error) {
	f := &File{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), digraph.MaxLineLen)

	const (
		readingCount = iota
		readingInstances
		readingLiterals
	)

	section := readingCount
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var err error
		switch section {
		case readingCount:
			f.NodeCount, err = parseNodeCount(line)
			section = readingInstances
		case readingInstances:
			if bytes.HasPrefix(line, []byte(graphlet.SentinelLine)) {
				section = readingLiterals
				continue
			}
			var inst graphlet.Instance
			inst, err = graphlet.ParseInstance(string(line))
			f.Instances = append(f.Instances, inst)
		case readingLiterals:
			var e graphlet.Edge
			e, err = digraph.ParseLiteral(line)
			f.Literals = append(f.Literals, e)
		}
		if err != nil {
			return nil, graphlet.AtLine(err, lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading compressed graph")
	}

	switch section {
	case readingCount:
		return nil, &graphlet.FormatError{Msg: "missing node count"}
	case readingInstances:
		return nil, &graphlet.FormatError{Kind: graphlet.ErrMissingSentinel, Msg: fmt.Sprintf("no %q line", graphlet.SentinelLine)}
	}
	return f, nil
}

func parseNodeCount(line []byte) (int, error) {
	n, err := strconv.Atoi(string(line))
	if err != nil || n < 0 {
		return 0, &graphlet.FormatError{
			Msg: fmt.Sprintf("bad node count %q", line),
		}
	}
	return n, nil
}
