package codec

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/digraph"
	"github.com/pkg/errors"
)

// The adjacency variant splits a compressed graph in two streams:
//
//	patterns stream:  <node count>, then one "node:nbr,nbr node:nbr|generators" line per instance
//	edges stream:     one "u v" literal per line
//
// Residual edges sharing a source node are grouped, which shortens instances with high out-degree nodes.

// AdjacencyString returns the "node:nbr,nbr" form of the given edges, grouping consecutive edges with a shared source.
func AdjacencyString(edges []graphlet.Edge) string {
	return string(graphlet.AppendAdjacencyString(nil, edges))
}

// WriteAdjacency emits f as a patterns stream and an edges stream.
func WriteAdjacency(patterns, edges io.Writer, f *File) error {
	bw := bufio.NewWriter(patterns)

	line := make([]byte, 0, 256)
	line = strconv.AppendInt(line, int64(f.NodeCount), 10)
	line = append(line, '\n')
	if _, err := bw.Write(line); err != nil {
		return err
	}
	for _, inst := range f.Instances {
		line = graphlet.AppendAdjacencyString(line[:0], inst.Residual)
		line = append(line, '|')
		line = graphlet.AppendGenerators(line, inst.Generators)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	bw = bufio.NewWriter(edges)
	for _, e := range f.Literals {
		if _, err := bw.Write(graphlet.AppendLiteral(line[:0], e)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadAdjacency parses the adjacency variant.  As with Read, any malformed line fails the whole read.
func ReadAdjacency(patterns, edges io.Reader) (*File, error) {
	f := &File{}

	scanner := bufio.NewScanner(patterns)
	scanner.Buffer(make([]byte, 0, 64*1024), digraph.MaxLineLen)

	haveCount := false
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		if !haveCount {
			n, err := parseNodeCount(line)
			if err != nil {
				return nil, graphlet.AtLine(err, lineNum)
			}
			f.NodeCount = n
			haveCount = true
			continue
		}

		inst, err := graphlet.ParseAdjacencyInstance(string(line))
		if err != nil {
			return nil, errors.Wrap(graphlet.AtLine(err, lineNum), "patterns")
		}
		f.Instances = append(f.Instances, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading patterns")
	}
	if !haveCount {
		return nil, &graphlet.FormatError{Msg: "missing node count"}
	}

	scanner = bufio.NewScanner(edges)
	scanner.Buffer(make([]byte, 0, 64*1024), digraph.MaxLineLen)
	lineNum = 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := digraph.ParseLiteral(line)
		if err != nil {
			return nil, errors.Wrap(graphlet.AtLine(err, lineNum), "edges")
		}
		f.Literals = append(f.Literals, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading edges")
	}

	return f, nil
}
