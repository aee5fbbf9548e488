package clustering

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gilchrisn/poi-engine/pkg/graph"
)

// Scan is the full SCAN clustering.
//
// Nodes are visited in ascending id order. A core node seeds a cluster with
// its similar neighbors, and the cluster then grows breadth-first through
// every newly reached node whose own community is core. Isolated nodes
// never seed, and a seed that reaches no other node is dissolved. Non-core
// nodes are left as non-members until expansion ends, when they are
// resolved into peripheral members, hubs or outliers.
type Scan struct {
	logger zerolog.Logger
}

// NewScan creates a Scan strategy
func NewScan(logger zerolog.Logger) *Scan {
	return &Scan{logger: logger}
}

// Name returns "scan"
func (s *Scan) Name() string { return string(StrategyScan) }

// Cluster partitions the nodes of nh
func (s *Scan) Cluster(nh *graph.Neighborhood) (result *ClusteringResult, err error) {
	defer graph.RecoverInvariant(&err)
	start := time.Now()

	a := newArena(nh)
	for i := 0; i < nh.Size(); i++ {
		node := graph.NodeID(i)
		if a.state[node] != unvisited {
			continue
		}

		community, err := nh.Community(node)
		if err != nil {
			return nil, err
		}
		if !community.IsCore() || community.IsIsolated() {
			a.state[node] = nonMember
			continue
		}

		id := a.open(node)
		var queue []graph.NodeID
		enqueue := func(n graph.NodeID, previous graph.ClusterID) {
			if previous == unvisited {
				queue = append(queue, n)
			}
		}
		a.absorb(id, community.SimilarNeighbors(), enqueue)

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			next, err := nh.Community(current)
			if err != nil {
				return nil, err
			}
			if !next.IsCore() {
				continue
			}
			a.absorb(id, next.SimilarNeighbors(), enqueue)
		}
		a.dissolveIfAlone(id)
	}

	result, err = a.finish()
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("nodes", nh.Size()).
		Int("clusters", result.NumClusters()).
		Int("hubs", len(result.Hubs())).
		Int("outliers", len(result.Outliers())).
		Dur("duration", time.Since(start)).
		Msg("Scan clustering completed")
	return result, nil
}
