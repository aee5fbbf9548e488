package graph

import "strconv"

// NodeID identifies an account by its position in the snapshot (0..N-1)
type NodeID int

// ClusterID identifies a cluster by the id of the node that seeded it
type ClusterID int

// Raw returns the underlying integer
func (id NodeID) Raw() int { return int(id) }

func (id NodeID) String() string { return strconv.Itoa(int(id)) }

// Raw returns the underlying integer
func (id ClusterID) Raw() int { return int(id) }

func (id ClusterID) String() string { return strconv.Itoa(int(id)) }

// ClusterIDOf returns the cluster id seeded by node
func ClusterIDOf(node NodeID) ClusterID { return ClusterID(node) }
