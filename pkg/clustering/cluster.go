// Package clustering partitions an account graph into clusters, hubs and
// outliers with SCAN-family strategies, and derives the inter-level
// proximity matrix used by the importance iteration.
package clustering

import (
	"fmt"

	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// Cluster is a set of nodes identified by the node that seeded it.
// Hubs and outliers are represented as singleton clusters keyed by their node.
type Cluster struct {
	id      graph.ClusterID
	members *graph.NodeNeighbors
}

// NewCluster creates a cluster with the given members
func NewCluster(id graph.ClusterID, members *graph.NodeNeighbors) *Cluster {
	if members == nil {
		members = graph.NewNodeNeighbors()
	}
	return &Cluster{id: id, members: members}
}

// NewSingletonCluster creates the cluster {node} keyed by node
func NewSingletonCluster(node graph.NodeID) *Cluster {
	return &Cluster{id: graph.ClusterIDOf(node), members: graph.NewNodeNeighbors(node)}
}

// ID returns the cluster id
func (c *Cluster) ID() graph.ClusterID { return c.id }

// Members returns the member set
func (c *Cluster) Members() *graph.NodeNeighbors { return c.members }

// Size returns the number of members
func (c *Cluster) Size() int { return c.members.Size() }

// Contains reports whether node is a member
func (c *Cluster) Contains(node graph.NodeID) bool { return c.members.Contains(node) }

// Equal reports whether both clusters have the same id and members
func (c *Cluster) Equal(other *Cluster) bool {
	return c.id == other.id && c.members.Equal(other.members)
}

func (c *Cluster) String() string {
	return fmt.Sprintf("Cluster(id=%d, members=%s)", c.id, c.members)
}
