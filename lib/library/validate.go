package library

import (
	"fmt"
	"strings"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/fine-structures/graphlet/lib/symmetry"
)

// Inconsistency describes a pattern whose residual and generators do not regenerate exactly its edges.
type Inconsistency struct {
	PatternID int
	Missing   []graphlet.Edge // in Edges but not produced by expansion
	Extra     []graphlet.Edge // produced by expansion but not in Edges
	Err       error           // set if the generators themselves are malformed
}

func (inc Inconsistency) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pattern %d:", inc.PatternID)
	if inc.Err != nil {
		fmt.Fprintf(&b, " %v", inc.Err)
		return b.String()
	}
	if len(inc.Missing) > 0 {
		b.WriteString(" missing ")
		b.Write(graphlet.AppendEdgeString(nil, inc.Missing))
	}
	if len(inc.Extra) > 0 {
		b.WriteString(" extra ")
		b.Write(graphlet.AppendEdgeString(nil, inc.Extra))
	}
	return b.String()
}

// Validate expands every pattern's residual under its generators and reports each pattern whose
// expansion differs from its edge set.  A nil return means the library is consistent.
func Validate(lib *Library) []Inconsistency {
	var issues []Inconsistency

	for i := range lib.patterns {
		P := &lib.patterns[i]
		if inc, ok := checkPattern(P); !ok {
			issues = append(issues, inc)
		}
	}
	return issues
}

func checkPattern(P *graphlet.Pattern) (Inconsistency, bool) {
	inc := Inconsistency{
		PatternID: P.ID,
	}

	if err := checkIndices(P); err != nil {
		inc.Err = err
		return inc, false
	}

	expanded, err := symmetry.ExpandLocal(P.Residual, P.Generators)
	if err != nil {
		inc.Err = err
		return inc, false
	}

	want := make(map[graphlet.Edge]struct{}, len(P.Edges))
	for _, e := range P.Edges {
		want[e] = struct{}{}
	}
	got := make(map[graphlet.Edge]struct{}, len(expanded))
	for _, e := range expanded {
		got[e] = struct{}{}
		if _, ok := want[e]; !ok {
			inc.Extra = append(inc.Extra, e)
		}
	}
	for e := range want {
		if _, ok := got[e]; !ok {
			inc.Missing = append(inc.Missing, e)
		}
	}
	graphlet.SortEdges(inc.Missing)

	return inc, len(inc.Missing) == 0 && len(inc.Extra) == 0
}

// checkIndices ensures the pattern's node indices are dense and that residual edges and generators only use them.
func checkIndices(P *graphlet.Pattern) error {
	k := graphlet.NodeID(P.NumNodes())
	if k == 0 {
		return &graphlet.FormatError{Kind: graphlet.ErrBadEdge, Msg: "pattern has no edges"}
	}

	// Local indices must be dense: 0..k-1 each on some edge
	if int(k) > 2*len(P.Edges) {
		return &graphlet.FormatError{
			Kind: graphlet.ErrBadEdge,
			Msg:  fmt.Sprintf("%d edges cannot span node indices 0..%d", len(P.Edges), k-1),
		}
	}
	used := make([]bool, k)
	for _, e := range P.Edges {
		used[e.From] = true
		used[e.To] = true
	}
	for i, ok := range used {
		if !ok {
			return &graphlet.FormatError{
				Kind: graphlet.ErrBadEdge,
				Msg:  fmt.Sprintf("node index %d is on no edge", i),
			}
		}
	}
	for _, e := range P.Residual {
		if e.From >= k || e.To >= k {
			return &graphlet.FormatError{
				Kind: graphlet.ErrBadEdge,
				Msg:  fmt.Sprintf("residual edge %d,%d is outside the pattern's %d nodes", e.From, e.To, k),
			}
		}
	}
	for _, cycle := range P.Generators {
		for _, idx := range cycle {
			if idx >= k {
				return &graphlet.FormatError{
					Kind: graphlet.ErrBadGenerator,
					Msg:  fmt.Sprintf("generator index %d is outside the pattern's %d nodes", idx, k),
				}
			}
		}
	}
	return nil
}
