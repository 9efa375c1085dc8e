package symmetry

import (
	"errors"
	"testing"

	"github.com/fine-structures/graphlet/graphlet"
	"github.com/stretchr/testify/require"
)

func TestTriangleSingleCycle(t *testing.T) {
	edges, err := ExpandLocal(
		[]Edge{{0, 1}},
		[]graphlet.Cycle{{0, 1, 2}},
	)
	require.NoError(t, err)
	require.Equal(t, []Edge{{0, 1}, {1, 2}, {2, 0}}, edges)
}

func TestNoGenerators(t *testing.T) {
	residual := []Edge{{3, 1}, {0, 2}, {0, 1}}
	edges, err := ExpandLocal(residual, nil)
	require.NoError(t, err)
	require.Equal(t, []Edge{{0, 1}, {0, 2}, {3, 1}}, edges)
}

func TestFixedPoints(t *testing.T) {
	// star: hub 0 -> leaves 1,2,3 (cycle over the leaves only)
	edges, err := ExpandLocal(
		[]Edge{{0, 1}},
		[]graphlet.Cycle{{1, 2, 3}},
	)
	require.NoError(t, err)
	require.Equal(t, []Edge{{0, 1}, {0, 2}, {0, 3}}, edges)
}

func TestShortOrbitUnderSingleCycle(t *testing.T) {
	// 4-cycle plus both diagonals in each direction
	edges, err := ExpandLocal(
		[]Edge{{0, 1}, {0, 2}},
		[]graphlet.Cycle{{0, 1, 2, 3}},
	)
	require.NoError(t, err)
	require.Equal(t, []Edge{{0, 1}, {0, 2}, {1, 2}, {1, 3}, {2, 0}, {2, 3}, {3, 0}, {3, 1}}, edges)

	// a 2-cycle's swapped edge closes after two steps, so four steps repeat it
	P, err := NewPermutation([]graphlet.Cycle{{0, 1, 2, 3}})
	require.NoError(t, err)
	require.Len(t, P.Orbit(nil, Edge{0, 2}), 4)
}

func TestMultipleGeneratorsLockStep(t *testing.T) {
	// Two disjoint 2-cycles 0->1, 2->3 swapped together: (0 2)(1 3)
	edges, err := ExpandLocal(
		[]Edge{{0, 1}},
		[]graphlet.Cycle{{0, 2}, {1, 3}},
	)
	require.NoError(t, err)
	require.Equal(t, []Edge{{0, 1}, {2, 3}}, edges)

	// Lock-step stepping of a 2-cycle and a 3-cycle traces one orbit of length 6.
	P, err := NewPermutation([]graphlet.Cycle{{0, 1}, {2, 3, 4}})
	require.NoError(t, err)
	orbit := P.Orbit(nil, Edge{0, 2})
	require.Len(t, orbit, 6)
	require.Equal(t, Edge{0, 2}, orbit[len(orbit)-1], "orbit closes on the starting edge")
}

func TestMappedMatchesLocal(t *testing.T) {
	P := graphlet.Pattern{
		Edges:      []Edge{{0, 1}, {1, 2}, {2, 0}},
		Residual:   []Edge{{0, 1}},
		Generators: []graphlet.Cycle{{0, 1, 2}},
	}
	inst := P.MapInstance([]NodeID{40, 17, 23})
	require.Equal(t, "40,17:40,17,23", inst.String())

	edges, err := ExpandMapped(inst)
	require.NoError(t, err)
	require.Equal(t, []Edge{{17, 23}, {23, 40}, {40, 17}}, edges)
}

func TestBadGenerators(t *testing.T) {
	_, err := ExpandLocal([]Edge{{0, 1}}, []graphlet.Cycle{{0, 1}, {1, 2}})
	require.True(t, errors.Is(err, graphlet.ErrFormat))
	require.True(t, errors.Is(err, graphlet.ErrBadGenerator))

	_, err = NewPermutation([]graphlet.Cycle{{}})
	require.True(t, errors.Is(err, graphlet.ErrBadGenerator))

	_, err = NewPermutation([]graphlet.Cycle{{0, 1, 0}})
	require.True(t, errors.Is(err, graphlet.ErrBadGenerator))
}
