package clustering

import (
	"sort"

	"github.com/gilchrisn/poi-engine/pkg/graph"
	"github.com/gilchrisn/poi-engine/pkg/matrix"
)

// InterLevelProximityMatrix links the node level and the cluster level of
// a clustering.
//
// Columns follow ClusteringResult.Columns: regular clusters, hubs, outliers.
//
//	A (nodes x columns):  A[v][c] = 1 iff v belongs to column c
//	R (columns x nodes):  R[c][v] = |N(v) ∩ members(c)| / Σ_u |N(u) ∩ members(c)|
//
// Neighbor counts are integers; each row of R is divided once by its integer
// total, so every entry is a single correctly rounded quotient.
type InterLevelProximityMatrix struct {
	a        *matrix.SparseMatrix
	r        *matrix.SparseMatrix
	columnOf []int
}

// NewInterLevelProximityMatrix derives A and R from a clustering of nh
func NewInterLevelProximityMatrix(result *ClusteringResult, nh *graph.Neighborhood) (*InterLevelProximityMatrix, error) {
	if result.NumNodes() != nh.Size() {
		return nil, partitionErrorf("clustering covers %d nodes, neighborhood has %d", result.NumNodes(), nh.Size())
	}

	columns := result.Columns()
	numNodes := result.NumNodes()
	p := &InterLevelProximityMatrix{
		a:        matrix.NewSparseMatrix(numNodes, len(columns), 1),
		r:        matrix.NewSparseMatrix(len(columns), numNodes, 0),
		columnOf: make([]int, numNodes),
	}

	for col, cluster := range columns {
		counts := make(map[graph.NodeID]int)
		for _, member := range cluster.Members().IDs() {
			p.a.Set(int(member), col, 1)
			p.columnOf[member] = col

			// neighbor sets are symmetric: v ∈ N(member) iff member ∈ N(v)
			neighbors, err := nh.Neighbors(member)
			if err != nil {
				return nil, err
			}
			for _, v := range neighbors.IDs() {
				counts[v]++
			}
		}

		nodes := make([]graph.NodeID, 0, len(counts))
		total := 0
		for v, count := range counts {
			nodes = append(nodes, v)
			total += count
		}
		sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

		for _, v := range nodes {
			p.r.Set(col, int(v), float64(counts[v])/float64(total))
		}
	}
	return p, nil
}

// A returns the node-to-column membership matrix
func (p *InterLevelProximityMatrix) A() *matrix.SparseMatrix { return p.a }

// R returns the column-to-node proximity matrix
func (p *InterLevelProximityMatrix) R() *matrix.SparseMatrix { return p.r }

// ColumnOf returns the column node belongs to
func (p *InterLevelProximityMatrix) ColumnOf(node graph.NodeID) int { return p.columnOf[node] }

// NumColumns returns the number of columns
func (p *InterLevelProximityMatrix) NumColumns() int { return p.r.Rows() }
