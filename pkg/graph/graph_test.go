package graph

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/poi-engine/pkg/matrix"
)

// buildOutlinks creates a size x size matrix with weight 1 on every edge
func buildOutlinks(size int, edges [][2]int) *matrix.SparseMatrix {
	m := matrix.NewSparseMatrix(size, size, 0)
	for _, e := range edges {
		m.Set(e[0], e[1], 1)
	}
	return m
}

func buildNeighborhood(t *testing.T, size int, edges [][2]int, params Params) *Neighborhood {
	t.Helper()
	nh, err := BuildNeighborhood(buildOutlinks(size, edges), params)
	require.NoError(t, err)
	return nh
}

func randomSet(rng *rand.Rand, universe int) []NodeID {
	seen := make(map[NodeID]bool)
	count := rng.Intn(universe)
	for i := 0; i < count; i++ {
		seen[NodeID(rng.Intn(universe))] = true
	}
	ids := make([]NodeID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func toSet(ids []NodeID) map[NodeID]bool {
	set := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedKeys(set map[NodeID]bool) []NodeID {
	ids := make([]NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

func TestNodeNeighborsRejectsNonAscendingInsertion(t *testing.T) {
	tests := []struct {
		name string
		ids  []NodeID
	}{
		{"descending", []NodeID{3, 1}},
		{"duplicate", []NodeID{2, 2}},
		{"late smaller", []NodeID{0, 4, 5, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { NewNodeNeighbors(tt.ids...) })
		})
	}
}

func TestRecoverInvariantConvertsPanic(t *testing.T) {
	build := func() (err error) {
		defer RecoverInvariant(&err)
		NewNodeNeighbors(5, 1)
		return nil
	}

	err := build()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvariantViolation))

	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Contains(t, ie.Message, "neighbor 1 added after 5")
}

func TestRecoverInvariantRepanicsOtherValues(t *testing.T) {
	assert.PanicsWithValue(t, "boom", func() {
		var err error
		defer RecoverInvariant(&err)
		panic("boom")
	})
}

func TestNodeNeighborsSetOperationsMatchReference(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		a := randomSet(rng, 30)
		b := randomSet(rng, 30)
		c := randomSet(rng, 30)
		setA, setB, setC := NewNodeNeighbors(a...), NewNodeNeighbors(b...), NewNodeNeighbors(c...)
		refA, refB, refC := toSet(a), toSet(b), toSet(c)

		common := 0
		for id := range refA {
			if refB[id] {
				common++
			}
		}
		assert.Equal(t, common, setA.CommonNeighborsSize(setB))
		assert.Equal(t, common, setB.CommonNeighborsSize(setA))

		diff := make(map[NodeID]bool)
		for id := range refA {
			if !refB[id] {
				diff[id] = true
			}
		}
		assert.Equal(t, sortedKeys(diff), setA.Difference(setB).IDs())

		union := make(map[NodeID]bool)
		for _, ref := range []map[NodeID]bool{refA, refB, refC} {
			for id := range ref {
				union[id] = true
			}
		}
		assert.Equal(t, sortedKeys(union), UnionNeighbors(setA, setB, setC).IDs())

		for id := NodeID(0); id < 30; id++ {
			assert.Equal(t, refA[id], setA.Contains(id))
		}
	}
}

func TestNodeNeighborsBasics(t *testing.T) {
	n := NewNodeNeighbors(1, 4, 7)
	assert.Equal(t, 3, n.Size())
	assert.Equal(t, NodeID(4), n.At(1))
	assert.Equal(t, "{1, 4, 7}", n.String())

	ids := n.IDs()
	ids[0] = 99
	assert.Equal(t, NodeID(1), n.At(0), "IDs must return a copy")

	assert.True(t, n.Equal(NewNodeNeighbors(1, 4, 7)))
	assert.False(t, n.Equal(NewNodeNeighbors(1, 7)))
	assert.False(t, n.Equal(NewNodeNeighbors(1, 4, 8)))

	assert.Equal(t, 0, UnionNeighbors().Size())
	assert.Equal(t, "{}", NewNodeNeighbors().String())
}

func TestNodeNeighborMapIsReadOnly(t *testing.T) {
	m, err := NewNodeNeighborMap(buildOutlinks(3, [][2]int{{0, 1}, {1, 2}}))
	require.NoError(t, err)

	neighbors, err := m.Neighbors(1)
	require.NoError(t, err)
	ids := neighbors.IDs()
	ids[0] = 2

	again, err := m.Neighbors(1)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{0, 1, 2}, again.IDs())
}

func TestNodeNeighborMap(t *testing.T) {
	t.Run("non-square matrix", func(t *testing.T) {
		_, err := NewNodeNeighborMap(matrix.NewSparseMatrix(2, 3, 0))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})

	t.Run("in and out links are adjacency", func(t *testing.T) {
		m, err := NewNodeNeighborMap(buildOutlinks(4, [][2]int{{0, 1}, {2, 0}, {1, 0}}))
		require.NoError(t, err)
		assert.Equal(t, 4, m.LogicalSize())

		expected := map[NodeID][]NodeID{
			0: {0, 1, 2},
			1: {0, 1},
			2: {0, 2},
			3: {3},
		}
		for id, ids := range expected {
			neighbors, err := m.Neighbors(id)
			require.NoError(t, err)
			assert.Equal(t, ids, neighbors.IDs(), "node %d", id)
		}
	})

	t.Run("out of range ids", func(t *testing.T) {
		m, err := NewNodeNeighborMap(buildOutlinks(2, nil))
		require.NoError(t, err)
		for _, id := range []NodeID{-1, 2} {
			_, err := m.Neighbors(id)
			assert.True(t, errors.Is(err, ErrInvalidArgument), "node %d", id)
		}
	})
}

func TestStructuralSimilarity(t *testing.T) {
	t.Run("clique members are fully similar", func(t *testing.T) {
		edges := [][2]int{}
		for i := 0; i < 5; i++ {
			for j := i + 1; j < 5; j++ {
				edges = append(edges, [2]int{i, j})
			}
		}
		m, err := NewNodeNeighborMap(buildOutlinks(5, edges))
		require.NoError(t, err)
		sim := NewStructuralSimilarity(m)

		score, err := sim.Similarity(0, 4)
		require.NoError(t, err)
		assert.Equal(t, 1.0, score)
	})

	t.Run("known value on a path", func(t *testing.T) {
		m, err := NewNodeNeighborMap(buildOutlinks(3, [][2]int{{0, 1}, {1, 2}}))
		require.NoError(t, err)
		sim := NewStructuralSimilarity(m)

		score, err := sim.Similarity(0, 1)
		require.NoError(t, err)
		assert.Equal(t, 2/math.Sqrt(6), score)

		score, err = sim.Similarity(0, 2)
		require.NoError(t, err)
		assert.Equal(t, 1/math.Sqrt(4), score)
	})

	t.Run("symmetric on random graphs", func(t *testing.T) {
		rng := rand.New(rand.NewSource(7))
		for round := 0; round < 20; round++ {
			size := 5 + rng.Intn(20)
			edges := [][2]int{}
			for k := 0; k < size*2; k++ {
				edges = append(edges, [2]int{rng.Intn(size), rng.Intn(size)})
			}
			m, err := NewNodeNeighborMap(buildOutlinks(size, edges))
			require.NoError(t, err)
			sim := NewStructuralSimilarity(m)

			for a := 0; a < size; a++ {
				for b := 0; b < size; b++ {
					ab, err := sim.Similarity(NodeID(a), NodeID(b))
					require.NoError(t, err)
					ba, err := sim.Similarity(NodeID(b), NodeID(a))
					require.NoError(t, err)
					assert.Equal(t, math.Float64bits(ab), math.Float64bits(ba))
				}
			}
		}
	})

	t.Run("unknown node", func(t *testing.T) {
		m, err := NewNodeNeighborMap(buildOutlinks(2, nil))
		require.NoError(t, err)
		_, err = NewStructuralSimilarity(m).Similarity(0, 5)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", DefaultParams(), false},
		{"epsilon bounds", Params{Mu: 1, Epsilon: 1}, false},
		{"zero epsilon", Params{Mu: 2, Epsilon: 0}, false},
		{"zero mu", Params{Mu: 0, Epsilon: 0.4}, true},
		{"negative epsilon", Params{Mu: 3, Epsilon: -0.1}, true},
		{"epsilon above one", Params{Mu: 3, Epsilon: 1.01}, true},
		{"nan epsilon", Params{Mu: 3, Epsilon: math.NaN()}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidArgument))
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := BuildNeighborhood(buildOutlinks(2, nil), Params{Mu: 0})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestNeighborhoodCommunity(t *testing.T) {
	path := [][2]int{{0, 1}, {1, 2}}

	t.Run("similarity equal to epsilon is dissimilar", func(t *testing.T) {
		nh := buildNeighborhood(t, 3, path, Params{Mu: 2, Epsilon: 2 / math.Sqrt(6)})

		community, err := nh.Community(0)
		require.NoError(t, err)
		assert.Equal(t, []NodeID{0}, community.SimilarNeighbors().IDs())
		assert.Equal(t, []NodeID{1}, community.DissimilarNeighbors().IDs())
		assert.False(t, community.IsCore())
	})

	t.Run("similarity above epsilon is similar", func(t *testing.T) {
		nh := buildNeighborhood(t, 3, path, Params{Mu: 2, Epsilon: 0.8})

		community, err := nh.Community(0)
		require.NoError(t, err)
		assert.Equal(t, []NodeID{0, 1}, community.SimilarNeighbors().IDs())
		assert.True(t, community.IsCore())
	})

	t.Run("pivot is similar even at epsilon one", func(t *testing.T) {
		nh := buildNeighborhood(t, 2, [][2]int{{0, 1}, {1, 0}}, Params{Mu: 1, Epsilon: 1})

		community, err := nh.Community(1)
		require.NoError(t, err)
		assert.Equal(t, []NodeID{1}, community.SimilarNeighbors().IDs())
		assert.Equal(t, []NodeID{0}, community.DissimilarNeighbors().IDs())
		assert.True(t, community.IsCore())
		assert.False(t, community.IsIsolated())
	})

	t.Run("isolated node", func(t *testing.T) {
		nh := buildNeighborhood(t, 3, [][2]int{{0, 1}}, DefaultParams())

		community, err := nh.Community(2)
		require.NoError(t, err)
		assert.True(t, community.IsIsolated())
		assert.False(t, community.IsCore())
	})

	t.Run("communities are memoized", func(t *testing.T) {
		nh := buildNeighborhood(t, 3, path, DefaultParams())

		first, err := nh.Community(1)
		require.NoError(t, err)
		second, err := nh.Community(1)
		require.NoError(t, err)
		assert.Same(t, first, second)
		assert.Equal(t, 1, nh.CachedCommunities())
	})

	t.Run("out of range pivot", func(t *testing.T) {
		nh := buildNeighborhood(t, 3, path, DefaultParams())
		_, err := nh.Community(3)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
}

func TestNeighborhoodNeighboringCommunities(t *testing.T) {
	nh := buildNeighborhood(t, 4, [][2]int{{0, 1}, {1, 2}, {2, 3}}, DefaultParams())

	communities, err := nh.NeighboringCommunities(1)
	require.NoError(t, err)
	require.Len(t, communities, 3)
	for i, pivot := range []NodeID{0, 1, 2} {
		assert.Equal(t, pivot, communities[i].Pivot())
	}
	assert.Equal(t, 3, nh.CachedCommunities())
}

func TestNeighborhoodTwoHopAwayNeighbors(t *testing.T) {
	line := [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}
	nh := buildNeighborhood(t, 5, line, Params{Mu: 2, Epsilon: 0})

	tests := []struct {
		pivot    NodeID
		expected []NodeID
	}{
		{0, []NodeID{2}},
		{1, []NodeID{3}},
		{2, []NodeID{0, 4}},
		{4, []NodeID{2}},
	}

	for _, tt := range tests {
		twoHop, err := nh.TwoHopAwayNeighbors(tt.pivot)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, twoHop.IDs(), "pivot %d", tt.pivot)
		assert.False(t, twoHop.Contains(tt.pivot))
	}

	t.Run("only similar neighbors are expanded", func(t *testing.T) {
		strict := buildNeighborhood(t, 5, line, Params{Mu: 2, Epsilon: 1})
		twoHop, err := strict.TwoHopAwayNeighbors(2)
		require.NoError(t, err)
		assert.Equal(t, 0, twoHop.Size())
	})
}

func TestCommunityInvariants(t *testing.T) {
	assert.Panics(t, func() {
		NewCommunity(0, NewNodeNeighbors(1), NewNodeNeighbors(), 1)
	})
	assert.Panics(t, func() {
		NewCommunity(0, NewNodeNeighbors(0, 1), NewNodeNeighbors(1), 1)
	})

	c := NewCommunity(2, NewNodeNeighbors(1, 2), NewNodeNeighbors(3), 2)
	assert.Equal(t, "Community(pivot=2, similar={1, 2}, dissimilar={3})", c.String())
}
