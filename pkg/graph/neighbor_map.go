package graph

import (
	"sort"

	"github.com/gilchrisn/poi-engine/pkg/matrix"
)

// NeighborRepository supplies neighbor sets for a fixed node id space
type NeighborRepository interface {
	// LogicalSize returns the number of nodes
	LogicalSize() int

	// Neighbors returns the neighbor set of id, including id itself
	Neighbors(id NodeID) (*NodeNeighbors, error)
}

// NodeNeighborMap holds the neighbor set of every node of an outlink matrix.
// A node's neighbors are the node itself plus every node it links to or that
// links to it.
type NodeNeighborMap struct {
	neighbors []*NodeNeighbors
}

// NewNodeNeighborMap derives the neighbor sets from a square adjacency matrix
func NewNodeNeighborMap(outlinks *matrix.SparseMatrix) (*NodeNeighborMap, error) {
	if !outlinks.IsSquare() {
		return nil, invalidArgumentf("outlink matrix must be square, got %dx%d", outlinks.Rows(), outlinks.Cols())
	}

	size := outlinks.Rows()
	adjacency := make([][]NodeID, size)
	for i := 0; i < size; i++ {
		adjacency[i] = []NodeID{NodeID(i)}
	}
	outlinks.ForEachNonZero(func(row, col int, value float64) {
		adjacency[row] = append(adjacency[row], NodeID(col))
		adjacency[col] = append(adjacency[col], NodeID(row))
	})

	m := &NodeNeighborMap{neighbors: make([]*NodeNeighbors, size)}
	for i, ids := range adjacency {
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		set := &NodeNeighbors{ids: make([]NodeID, 0, len(ids))}
		for k, id := range ids {
			if k > 0 && ids[k-1] == id {
				continue
			}
			set.addNeighbor(id)
		}
		m.neighbors[i] = set
	}
	return m, nil
}

// LogicalSize returns the matrix dimension
func (m *NodeNeighborMap) LogicalSize() int { return len(m.neighbors) }

// Neighbors returns the neighbor set of id, including id itself
func (m *NodeNeighborMap) Neighbors(id NodeID) (*NodeNeighbors, error) {
	if id < 0 || int(id) >= len(m.neighbors) {
		return nil, invalidArgumentf("node id %d outside [0, %d)", id, len(m.neighbors))
	}
	return m.neighbors[id], nil
}
