package graph

import "fmt"

// Community is a pivot node together with its neighbors split by similarity.
// The pivot is always part of the similar neighbors.
type Community struct {
	pivot      NodeID
	similar    *NodeNeighbors
	dissimilar *NodeNeighbors
	mu         int
}

// NewCommunity creates a community; mu is the core threshold
func NewCommunity(pivot NodeID, similar, dissimilar *NodeNeighbors, mu int) *Community {
	if !similar.Contains(pivot) {
		invariantf("community pivot %d missing from its similar neighbors", pivot)
	}
	if similar.CommonNeighborsSize(dissimilar) != 0 {
		invariantf("community %d has overlapping similar and dissimilar neighbors", pivot)
	}
	return &Community{pivot: pivot, similar: similar, dissimilar: dissimilar, mu: mu}
}

// Pivot returns the node the community was computed for
func (c *Community) Pivot() NodeID { return c.pivot }

// SimilarNeighbors returns the pivot and every neighbor more similar than epsilon
func (c *Community) SimilarNeighbors() *NodeNeighbors { return c.similar }

// DissimilarNeighbors returns the remaining neighbors
func (c *Community) DissimilarNeighbors() *NodeNeighbors { return c.dissimilar }

// IsCore reports whether the community has at least mu similar neighbors
func (c *Community) IsCore() bool { return c.similar.Size() >= c.mu }

// IsIsolated reports whether the pivot has no neighbors besides itself
func (c *Community) IsIsolated() bool {
	return c.similar.Size() == 1 && c.dissimilar.Size() == 0
}

func (c *Community) String() string {
	return fmt.Sprintf("Community(pivot=%d, similar=%s, dissimilar=%s)", c.pivot, c.similar, c.dissimilar)
}
