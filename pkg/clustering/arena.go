package clustering

import (
	"sort"

	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// Node states besides a cluster id (>= 0)
const (
	unvisited graph.ClusterID = -2
	nonMember graph.ClusterID = -1
)

// arena holds the single node assignment map shared by the SCAN variants
// and the clusters it creates, keyed by the seeding pivot
type arena struct {
	nh      *graph.Neighborhood
	state   []graph.ClusterID
	seeds   []graph.ClusterID
	members map[graph.ClusterID][]graph.NodeID
}

func newArena(nh *graph.Neighborhood) *arena {
	state := make([]graph.ClusterID, nh.Size())
	for i := range state {
		state[i] = unvisited
	}
	return &arena{
		nh:      nh,
		state:   state,
		members: make(map[graph.ClusterID][]graph.NodeID),
	}
}

// open starts an empty cluster seeded by pivot
func (a *arena) open(pivot graph.NodeID) graph.ClusterID {
	id := graph.ClusterIDOf(pivot)
	a.seeds = append(a.seeds, id)
	a.members[id] = nil
	return id
}

// absorb assigns every node of similar that is unvisited or a non-member to
// cluster id. Nodes owned by another cluster stay where they are.
// onAbsorb receives each absorbed node and its previous state.
func (a *arena) absorb(id graph.ClusterID, similar *graph.NodeNeighbors, onAbsorb func(node graph.NodeID, previous graph.ClusterID)) {
	for _, node := range similar.IDs() {
		previous := a.state[node]
		if previous != unvisited && previous != nonMember {
			continue
		}
		a.state[node] = id
		a.members[id] = append(a.members[id], node)
		if onAbsorb != nil {
			onAbsorb(node, previous)
		}
	}
}

// dissolveIfAlone reverts the most recently opened cluster to a
// non-member pivot when expansion added nothing beyond the pivot, so that
// finish classifies it like any other non-member.
func (a *arena) dissolveIfAlone(id graph.ClusterID) {
	members := a.members[id]
	if len(members) > 1 {
		return
	}
	for _, node := range members {
		a.state[node] = nonMember
	}
	delete(a.members, id)
	a.seeds = a.seeds[:len(a.seeds)-1]
}

// neighborsAllIn reports whether every neighbor of node belongs to cluster id
func (a *arena) neighborsAllIn(node graph.NodeID, id graph.ClusterID) (bool, error) {
	neighbors, err := a.nh.Neighbors(node)
	if err != nil {
		return false, err
	}
	for _, n := range neighbors.IDs() {
		if a.state[n] != id {
			return false, nil
		}
	}
	return true, nil
}

// finish classifies the remaining non-members against the assignment as it
// stood when core expansion ended: neighbors in exactly one cluster make the
// node a peripheral member of it, two or more make it a hub, none an outlier.
func (a *arena) finish() (*ClusteringResult, error) {
	snapshot := make([]graph.ClusterID, len(a.state))
	copy(snapshot, a.state)

	var hubs, outliers []*Cluster
	for i, current := range snapshot {
		node := graph.NodeID(i)
		switch {
		case current == unvisited:
			return nil, partitionErrorf("node %d never visited", node)
		case current != nonMember:
			continue
		}

		neighbors, err := a.nh.Neighbors(node)
		if err != nil {
			return nil, err
		}
		touched := distinctClusters(neighbors, snapshot)

		switch len(touched) {
		case 0:
			outliers = append(outliers, NewSingletonCluster(node))
		case 1:
			a.state[node] = touched[0]
			a.members[touched[0]] = append(a.members[touched[0]], node)
		default:
			hubs = append(hubs, NewSingletonCluster(node))
		}
	}

	clusters := make([]*Cluster, 0, len(a.seeds))
	for _, id := range a.seeds {
		nodes := a.members[id]
		sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
		clusters = append(clusters, NewCluster(id, graph.NewNodeNeighbors(nodes...)))
	}

	return NewClusteringResult(len(a.state), clusters, hubs, outliers)
}

// distinctClusters returns the cluster ids found among neighbors
func distinctClusters(neighbors *graph.NodeNeighbors, state []graph.ClusterID) []graph.ClusterID {
	var touched []graph.ClusterID
	for _, n := range neighbors.IDs() {
		id := state[n]
		if id < 0 {
			continue
		}
		seen := false
		for _, t := range touched {
			if t == id {
				seen = true
				break
			}
		}
		if !seen {
			touched = append(touched, id)
		}
	}
	return touched
}
