package louvain

import (
	"fmt"
	"sort"

	"github.com/gilchrisn/poi-engine/pkg/matrix"
)

// Graph is a weighted undirected graph with integer node indices.
// Neighbor lists are ascending and exclude the node itself; self-loop
// weights are kept apart in SelfLoops.
type Graph struct {
	NumNodes    int
	Neighbors   [][]int
	Weights     [][]float64
	SelfLoops   []float64
	Degrees     []float64 // incident weight, self-loops counted twice
	TotalWeight float64   // sum of edge weights, each edge once
}

// builder accumulates edges before the adjacency lists are frozen
type builder struct {
	adj  []map[int]float64
	self []float64
}

func newBuilder(numNodes int) *builder {
	b := &builder{adj: make([]map[int]float64, numNodes), self: make([]float64, numNodes)}
	for i := range b.adj {
		b.adj[i] = make(map[int]float64)
	}
	return b
}

func (b *builder) addEdge(from, to int, weight float64) {
	if from == to {
		b.self[from] += weight
		return
	}
	b.adj[from][to] += weight
	b.adj[to][from] += weight
}

func (b *builder) graph() *Graph {
	n := len(b.adj)
	g := &Graph{
		NumNodes:  n,
		Neighbors: make([][]int, n),
		Weights:   make([][]float64, n),
		SelfLoops: b.self,
		Degrees:   make([]float64, n),
	}

	degreeSum := 0.0
	for i, row := range b.adj {
		ids := make([]int, 0, len(row))
		for j := range row {
			ids = append(ids, j)
		}
		sort.Ints(ids)

		weights := make([]float64, len(ids))
		degree := 2 * b.self[i]
		for k, j := range ids {
			weights[k] = row[j]
			degree += row[j]
		}
		g.Neighbors[i] = ids
		g.Weights[i] = weights
		g.Degrees[i] = degree
		degreeSum += degree
	}
	g.TotalWeight = degreeSum / 2
	return g
}

// FromOutlinks symmetrizes a square outlink matrix: the undirected edge
// {i, j} weighs w(i, j) + w(j, i). Non-positive entries and the diagonal
// are ignored.
func FromOutlinks(outlinks *matrix.SparseMatrix) (*Graph, error) {
	if !outlinks.IsSquare() {
		return nil, fmt.Errorf("outlink matrix is %dx%d, not square", outlinks.Rows(), outlinks.Cols())
	}

	b := newBuilder(outlinks.Rows())
	outlinks.ForEachNonZero(func(row, col int, value float64) {
		if row != col && value > 0 {
			b.addEdge(row, col, value)
		}
	})
	return b.graph(), nil
}

// Modularity returns Newman's modularity of the partition given as one
// community label per node
func Modularity(g *Graph, communities []int) (float64, error) {
	if len(communities) != g.NumNodes {
		return 0, fmt.Errorf("%d community labels for %d nodes", len(communities), g.NumNodes)
	}
	if g.TotalWeight == 0 {
		return 0, nil
	}

	numCommunities := 0
	for _, c := range communities {
		if c < 0 {
			return 0, fmt.Errorf("negative community label %d", c)
		}
		if c >= numCommunities {
			numCommunities = c + 1
		}
	}

	internal := make([]float64, numCommunities)
	total := make([]float64, numCommunities)
	for i := 0; i < g.NumNodes; i++ {
		c := communities[i]
		total[c] += g.Degrees[i]
		internal[c] += 2 * g.SelfLoops[i]
		for k, j := range g.Neighbors[i] {
			if communities[j] == c {
				internal[c] += g.Weights[i][k]
			}
		}
	}

	m2 := 2 * g.TotalWeight
	q := 0.0
	for c := 0; c < numCommunities; c++ {
		q += internal[c]/m2 - (total[c]/m2)*(total[c]/m2)
	}
	return q, nil
}
