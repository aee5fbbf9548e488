package clustering

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// ClusteringResult is a partition of the node ids [0, numNodes) into
// regular clusters of at least two nodes, and singleton hubs and outliers.
// Every node belongs to exactly one group; NewClusteringResult refuses
// anything else.
type ClusteringResult struct {
	numNodes      int
	clusters      []*Cluster
	hubs          []*Cluster
	outliers      []*Cluster
	nodeToCluster []graph.ClusterID
	columns       map[graph.ClusterID]int
}

// NewClusteringResult validates the partition and builds the node index.
// Each group is sorted by ascending cluster id.
func NewClusteringResult(numNodes int, clusters, hubs, outliers []*Cluster) (*ClusteringResult, error) {
	if numNodes < 0 {
		return nil, fmt.Errorf("%w: negative node count %d", graph.ErrInvalidArgument, numNodes)
	}

	r := &ClusteringResult{
		numNodes:      numNodes,
		clusters:      sortedByID(clusters),
		hubs:          sortedByID(hubs),
		outliers:      sortedByID(outliers),
		nodeToCluster: make([]graph.ClusterID, numNodes),
		columns:       make(map[graph.ClusterID]int, len(clusters)+len(hubs)+len(outliers)),
	}

	assigned := make([]bool, numNodes)
	for idx, c := range r.Columns() {
		if _, dup := r.columns[c.ID()]; dup {
			return nil, partitionErrorf("cluster id %d used twice", c.ID())
		}
		r.columns[c.ID()] = idx

		for _, node := range c.Members().IDs() {
			if node < 0 || int(node) >= numNodes {
				return nil, partitionErrorf("cluster %d holds node %d outside [0, %d)", c.ID(), node, numNodes)
			}
			if assigned[node] {
				return nil, partitionErrorf("node %d classified more than once", node)
			}
			assigned[node] = true
			r.nodeToCluster[node] = c.ID()
		}
	}

	for _, c := range r.clusters {
		if c.Size() < 2 {
			return nil, partitionErrorf("regular cluster %d has %d members", c.ID(), c.Size())
		}
	}
	for _, c := range r.hubs {
		if c.Size() != 1 {
			return nil, partitionErrorf("hub %d has %d members", c.ID(), c.Size())
		}
	}
	for _, c := range r.outliers {
		if c.Size() != 1 {
			return nil, partitionErrorf("outlier %d has %d members", c.ID(), c.Size())
		}
	}
	for node, ok := range assigned {
		if !ok {
			return nil, partitionErrorf("node %d left unclassified", node)
		}
	}
	return r, nil
}

func partitionErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", graph.ErrInvariantViolation, fmt.Sprintf(format, args...))
}

func sortedByID(clusters []*Cluster) []*Cluster {
	out := make([]*Cluster, len(clusters))
	copy(out, clusters)
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// NumNodes returns the size of the node id space
func (r *ClusteringResult) NumNodes() int { return r.numNodes }

// Clusters returns the regular clusters by ascending id
func (r *ClusteringResult) Clusters() []*Cluster { return r.clusters }

// Hubs returns the hub singletons by ascending id
func (r *ClusteringResult) Hubs() []*Cluster { return r.hubs }

// Outliers returns the outlier singletons by ascending id
func (r *ClusteringResult) Outliers() []*Cluster { return r.outliers }

// NumClusters returns the number of regular clusters
func (r *ClusteringResult) NumClusters() int { return len(r.clusters) }

// NumColumns returns the number of regular clusters, hubs and outliers combined
func (r *ClusteringResult) NumColumns() int { return len(r.columns) }

// Columns returns regular clusters, then hubs, then outliers.
// This is the column order of the inter-level proximity matrix.
func (r *ClusteringResult) Columns() []*Cluster {
	columns := make([]*Cluster, 0, len(r.clusters)+len(r.hubs)+len(r.outliers))
	columns = append(columns, r.clusters...)
	columns = append(columns, r.hubs...)
	return append(columns, r.outliers...)
}

// IDForNode returns the id of the group node belongs to
func (r *ClusteringResult) IDForNode(node graph.NodeID) (graph.ClusterID, error) {
	if node < 0 || int(node) >= r.numNodes {
		return 0, fmt.Errorf("%w: node id %d outside [0, %d)", graph.ErrInvalidArgument, node, r.numNodes)
	}
	return r.nodeToCluster[node], nil
}

// ColumnForNode returns the column index of the group node belongs to
func (r *ClusteringResult) ColumnForNode(node graph.NodeID) (int, error) {
	id, err := r.IDForNode(node)
	if err != nil {
		return 0, err
	}
	return r.columns[id], nil
}

// IsHub reports whether node was classified as a hub
func (r *ClusteringResult) IsHub(node graph.NodeID) bool {
	return r.isIn(node, len(r.clusters), len(r.clusters)+len(r.hubs))
}

// IsOutlier reports whether node was classified as an outlier
func (r *ClusteringResult) IsOutlier(node graph.NodeID) bool {
	return r.isIn(node, len(r.clusters)+len(r.hubs), len(r.columns))
}

func (r *ClusteringResult) isIn(node graph.NodeID, from, to int) bool {
	col, err := r.ColumnForNode(node)
	if err != nil {
		return false
	}
	return col >= from && col < to
}

// Equal reports whether both results describe the same partition
func (r *ClusteringResult) Equal(other *ClusteringResult) bool {
	if r.numNodes != other.numNodes {
		return false
	}
	return groupsEqual(r.clusters, other.clusters) &&
		groupsEqual(r.hubs, other.hubs) &&
		groupsEqual(r.outliers, other.outliers)
}

func groupsEqual(a, b []*Cluster) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func (r *ClusteringResult) String() string {
	return fmt.Sprintf("ClusteringResult(nodes=%d, clusters=%d, hubs=%d, outliers=%d)",
		r.numNodes, len(r.clusters), len(r.hubs), len(r.outliers))
}

// ClusterSummary is the serialized form of one cluster
type ClusterSummary struct {
	ID      int   `json:"id"`
	Members []int `json:"members"`
}

// Summary is the serialized form of a clustering result
type Summary struct {
	NumNodes int              `json:"numNodes"`
	Clusters []ClusterSummary `json:"clusters"`
	Hubs     []int            `json:"hubs"`
	Outliers []int            `json:"outliers"`
}

// Summary flattens the result into plain ints
func (r *ClusteringResult) Summary() Summary {
	s := Summary{
		NumNodes: r.numNodes,
		Clusters: make([]ClusterSummary, 0, len(r.clusters)),
		Hubs:     make([]int, 0, len(r.hubs)),
		Outliers: make([]int, 0, len(r.outliers)),
	}
	for _, c := range r.clusters {
		members := make([]int, 0, c.Size())
		for _, id := range c.Members().IDs() {
			members = append(members, id.Raw())
		}
		s.Clusters = append(s.Clusters, ClusterSummary{ID: c.ID().Raw(), Members: members})
	}
	for _, c := range r.hubs {
		s.Hubs = append(s.Hubs, c.ID().Raw())
	}
	for _, c := range r.outliers {
		s.Outliers = append(s.Outliers, c.ID().Raw())
	}
	return s
}

// MarshalJSON encodes the result as its Summary
func (r *ClusteringResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Summary())
}
