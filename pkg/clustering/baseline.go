package clustering

import "github.com/gilchrisn/poi-engine/pkg/graph"

// OutlierScan classifies every node as its own outlier.
// It ignores graph structure and serves as a comparison baseline.
type OutlierScan struct{}

// NewOutlierScan creates an OutlierScan strategy
func NewOutlierScan() *OutlierScan { return &OutlierScan{} }

// Name returns "outlier_scan"
func (s *OutlierScan) Name() string { return string(StrategyOutlierScan) }

// Cluster returns one outlier per node
func (s *OutlierScan) Cluster(nh *graph.Neighborhood) (*ClusteringResult, error) {
	outliers := make([]*Cluster, nh.Size())
	for i := range outliers {
		outliers[i] = NewSingletonCluster(graph.NodeID(i))
	}
	return NewClusteringResult(nh.Size(), nil, nil, outliers)
}

// SingleClusterScan puts every node into one cluster with id 0.
// It ignores graph structure and serves as a comparison baseline. A lone
// node cannot form a cluster and becomes an outlier.
type SingleClusterScan struct{}

// NewSingleClusterScan creates a SingleClusterScan strategy
func NewSingleClusterScan() *SingleClusterScan { return &SingleClusterScan{} }

// Name returns "single_cluster_scan"
func (s *SingleClusterScan) Name() string { return string(StrategySingleClusterScan) }

// Cluster returns a single cluster holding all nodes
func (s *SingleClusterScan) Cluster(nh *graph.Neighborhood) (*ClusteringResult, error) {
	switch nh.Size() {
	case 0:
		return NewClusteringResult(0, nil, nil, nil)
	case 1:
		return NewClusteringResult(1, nil, nil, []*Cluster{NewSingletonCluster(0)})
	}

	members := make([]graph.NodeID, nh.Size())
	for i := range members {
		members[i] = graph.NodeID(i)
	}
	cluster := NewCluster(graph.ClusterID(0), graph.NewNodeNeighbors(members...))
	return NewClusteringResult(nh.Size(), []*Cluster{cluster}, nil, nil)
}
