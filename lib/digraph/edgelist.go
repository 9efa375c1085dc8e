package digraph

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/pkg/errors"
)

// MaxLineLen bounds a single line of an edge list or compressed graph file.
const MaxLineLen = 1 << 20

// ReadEdgeList reads "u v" pairs, one per line.  Lines starting with '#' and blank lines are skipped;
// fields past the second (e.g. weights) are ignored.
func ReadEdgeList(r io.Reader) (*Graph, error) {
	G := NewGraph()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLen)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		e, err := ParseLiteral(line)
		if err != nil {
			return nil, graphlet.AtLine(err, lineNum)
		}
		G.AddEdge(e.From, e.To)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading edge list")
	}

	return G, nil
}

// LoadEdgeList reads an edge list from the given file.
func LoadEdgeList(pathname string) (*Graph, error) {
	file, err := os.Open(pathname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	G, err := ReadEdgeList(file)
	if err != nil {
		return nil, errors.Wrapf(err, "edge list %q", pathname)
	}
	return G, nil
}

// WriteEdgeList writes all of G's edges as "u v" lines in sorted order.
func WriteEdgeList(w io.Writer, G *Graph) error {
	bw := bufio.NewWriter(w)
	var buf [48]byte
	for _, e := range G.Edges() {
		if _, err := bw.Write(graphlet.AppendLiteral(buf[:0], e)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseLiteral parses a whitespace-separated "u v" pair.
func ParseLiteral(line []byte) (Edge, error) {
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return Edge{}, &graphlet.FormatError{
			Kind: graphlet.ErrBadEdge,
			Msg:  strconv.Quote(string(line)),
		}
	}
	u, err := parseNodeID(fields[0])
	if err != nil {
		return Edge{}, err
	}
	v, err := parseNodeID(fields[1])
	if err != nil {
		return Edge{}, err
	}
	return Edge{u, v}, nil
}

func parseNodeID(field []byte) (NodeID, error) {
	id, err := strconv.ParseInt(string(field), 10, 64)
	if err != nil || id < 0 {
		return 0, &graphlet.FormatError{
			Kind: graphlet.ErrBadNodeID,
			Msg:  strconv.Quote(string(field)),
		}
	}
	return NodeID(id), nil
}
